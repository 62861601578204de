// Package server exposes the statistics pipeline over HTTP: ledger workbooks
// are uploaded per request, computed, and returned as JSON. Nothing is kept
// between requests; a new upload is always a full recompute.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zxyuan/guarantee-stats/internal/engine"
	"github.com/zxyuan/guarantee-stats/internal/formula"
	"github.com/zxyuan/guarantee-stats/internal/ingest"
	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// DefaultMaxUploadSizeBytes bounds one multipart request body.
const DefaultMaxUploadSizeBytes int64 = 32 << 20

// Multipart part names for the uploaded workbooks. The lending file feeds
// both the traditional and batch lines via the classification split.
const (
	partLending         = "lending"
	partGuaranteeLetter = "guaranteeLetter"
	partCompensation    = "compensation"
	partClassification  = "classification"
	partTemplate        = "template"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the statistics API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/statistics", h.handleStatistics)
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type statisticsResponse struct {
	AsOf       string             `json:"asOf"`
	Lines      []lineResult       `json:"lines"`
	Report     map[string]float64 `json:"report"`
	Audit      []auditRule        `json:"audit,omitempty"`
	Overdue    map[string]int     `json:"overdue,omitempty"`
	Unresolved []string           `json:"unresolved,omitempty"`
	Duration   string             `json:"duration"`
}

type lineResult struct {
	Line    string        `json:"line"`
	Metrics []metricValue `json:"metrics"`
	Errors  []string      `json:"errors,omitempty"`
}

type metricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type auditRule struct {
	Target   string         `json:"target"`
	Value    float64        `json:"value"`
	Operands []auditOperand `json:"operands"`
}

type auditOperand struct {
	Token    string  `json:"token"`
	Value    float64 `json:"value"`
	Negative bool    `json:"negative,omitempty"`
}

func (h *handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
		return
	}

	mapping, roster, err := h.readClassification(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tables, err := h.readTables(r, mapping, roster)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(tables) == 0 {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("no ledger files uploaded; expected at least one of %s, %s, %s",
				partLending, partGuaranteeLetter, partCompensation))
		return
	}

	stages, err := h.readTemplate(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	asOf := dateutil.Midnight(time.Now())
	if raw := strings.TrimSpace(r.FormValue("asOfDate")); raw != "" {
		parsed, err := time.Parse(dateutil.DateLayout, raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid asOfDate %q, expected %s", raw, dateutil.DateLayout))
			return
		}
		asOf = parsed
	}

	in := engine.Input{
		AsOf:   asOf,
		Tables: tables,
		Stages: stages,
		Prior: engine.PriorPeriod{
			MonthEndBalance: ledger.ParseAmount(r.FormValue("priorMonthEndBalance")),
			YearEndBalance:  ledger.ParseAmount(r.FormValue("priorYearEndBalance")),
			YearAgoBalance:  ledger.ParseAmount(r.FormValue("priorYearAgoBalance")),
		},
		Ceiling: ledger.ParseAmount(r.FormValue("balanceCeiling")),
		Strict:  formValueBool(r, "strict"),
	}
	if topN, err := strconv.Atoi(strings.TrimSpace(r.FormValue("topCustomers"))); err == nil {
		in.TopN = topN
	}

	out, err := engine.Run(h.logger, in)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute statistics: %v", err))
		return
	}

	elapsed := time.Since(start)
	response := buildResponse(asOf, out, elapsed)

	h.logger.Info("statistics computed",
		zap.String("op", "server.handleStatistics"),
		zap.Int("lines", len(response.Lines)),
		zap.Int("indicators", len(response.Report)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// formFile opens a named part; a missing part is not an error, the caller
// skips that input.
func formFile(r *http.Request, name string) (multipart.File, *multipart.FileHeader, bool, error) {
	file, header, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("failed to read uploaded %s file: %v", name, err)
	}
	return file, header, true, nil
}

func (h *handler) readClassification(r *http.Request) (ingest.Mapping, ingest.Roster, error) {
	file, _, ok, err := formFile(r, partClassification)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	defer h.closeUpload(file, partClassification)

	mapping, roster, err := ingest.ReadClassification(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", partClassification, err)
	}
	return mapping, roster, nil
}

func (h *handler) readTables(r *http.Request, mapping ingest.Mapping, roster ingest.Roster) (map[string]ledger.Table, error) {
	tables := make(map[string]ledger.Table)

	if file, header, ok, err := formFile(r, partLending); err != nil {
		return nil, err
	} else if ok {
		tbl, readErr := h.readLedger(file, header, mapping, roster)
		h.closeUpload(file, partLending)
		if readErr != nil {
			return nil, fmt.Errorf("%s: %v", partLending, readErr)
		}
		for line, lineTbl := range ingest.SplitLending(tbl, h.logger) {
			tables[line] = lineTbl
		}
	}

	for part, line := range map[string]string{
		partGuaranteeLetter: ledger.LineGuaranteeLetter,
		partCompensation:    ledger.LineCompensation,
	} {
		file, header, ok, err := formFile(r, part)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		tbl, readErr := h.readLedger(file, header, mapping, roster)
		h.closeUpload(file, part)
		if readErr != nil {
			return nil, fmt.Errorf("%s: %v", part, readErr)
		}
		tables[line] = tbl
	}

	return tables, nil
}

func (h *handler) readLedger(file multipart.File, header *multipart.FileHeader, mapping ingest.Mapping, roster ingest.Roster) (ledger.Table, error) {
	if strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return ingest.ReadCSV(file, mapping, roster, h.logger)
	}
	return ingest.ReadWorkbook(file, mapping, roster, h.logger)
}

func (h *handler) readTemplate(r *http.Request) ([]formula.Stage, error) {
	file, _, ok, err := formFile(r, partTemplate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer h.closeUpload(file, partTemplate)

	stages, err := formula.ReadTemplate(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", partTemplate, err)
	}
	return stages, nil
}

func (h *handler) closeUpload(file multipart.File, part string) {
	if err := file.Close(); err != nil {
		h.logger.Warn("failed to close uploaded file",
			zap.String("op", "server.handleStatistics"),
			zap.String("part", part),
			zap.Error(err),
		)
	}
}

func buildResponse(asOf time.Time, out *engine.Output, elapsed time.Duration) statisticsResponse {
	response := statisticsResponse{
		AsOf:       asOf.Format(dateutil.DateLayout),
		Report:     out.Report,
		Unresolved: out.Formula.Unresolved,
		Duration:   elapsed.String(),
	}

	for _, line := range out.Lines {
		lr := lineResult{Line: line.Line}
		for _, name := range line.Names {
			lr.Metrics = append(lr.Metrics, metricValue{Name: name, Value: line.Values[name]})
		}
		for _, metricErr := range line.Errors {
			lr.Errors = append(lr.Errors, fmt.Sprintf("%s: %v", metricErr.Metric, metricErr.Err))
		}
		response.Lines = append(response.Lines, lr)
	}

	for _, rule := range out.Formula.Rules {
		ar := auditRule{Target: rule.Target, Value: rule.Value}
		for _, op := range rule.Operands {
			ar.Operands = append(ar.Operands, auditOperand{
				Token:    op.Token,
				Value:    op.Value,
				Negative: op.Negative,
			})
		}
		response.Audit = append(response.Audit, ar)
	}

	if len(out.Overdue) > 0 {
		response.Overdue = make(map[string]int, len(out.Overdue))
		for line, od := range out.Overdue {
			response.Overdue[line] = od.Count
		}
	}

	return response
}

func formValueBool(r *http.Request, name string) bool {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return false
	}
	parsed, err := strconv.ParseBool(raw)
	return err == nil && parsed
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.logger.Error("statistics request failed",
		zap.String("op", "server.handleStatistics"),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
