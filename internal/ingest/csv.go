package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// ReadCSV parses a ledger table from CSV. The same header discovery and cell
// coercion rules apply as for workbooks, which keeps CSV fixtures and
// headless exports interchangeable with xlsx uploads.
func ReadCSV(r io.Reader, mapping Mapping, roster Roster, logger *zap.Logger) (ledger.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading csv, %s", err)
	}
	return tableFromRows(rows, mapping, roster)
}

// LoadCSV reads a ledger table from a CSV file path.
func LoadCSV(path string, mapping Mapping, roster Roster, logger *zap.Logger) (ledger.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ledger file %s, %s", path, err)
	}
	defer f.Close()

	tbl, err := ReadCSV(f, mapping, roster, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, err)
	}
	return tbl, nil
}
