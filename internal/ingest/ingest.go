// Package ingest loads ledger spreadsheets into cleaned tables. It owns the
// messy edge of the pipeline: sheet guessing, header discovery, column-label
// normalization, cell coercion, classification enrichment, and the
// state-owned-entity roster.
package ingest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Classification tags one product with its line class and tertiary subclass.
type Classification struct {
	Class    string
	Subclass string
}

// Mapping is the business-classification table: product -> tags.
type Mapping map[string]Classification

// Roster is the set of customer names known to be state-owned entities.
type Roster map[string]struct{}

// Canonical column keys after normalization. Ledger headers are matched
// case-insensitively with whitespace and unit suffixes stripped.
const (
	colCustomer             = "customer"
	colProduct              = "product"
	colLoanAmount           = "loanamount"
	colPendingAmount        = "pendingamount"
	colDisburseDate         = "disbursedate"
	colMaturityDate         = "maturitydate"
	colContractMaturityDate = "contractmaturitydate"
	colOutstandingBalance   = "outstandingbalance"
	colPayoutAmount         = "payoutamount"
	colRecoveredAmount      = "recoveredamount"
	colPayoutDate           = "payoutdate"
	colRiskTier             = "risktier"
	colEnterpriseSize       = "enterprisesize"
	colNewOrRenewal         = "neworrenewal"
	colFeeRate              = "feerate"
	colCompanyShare         = "companyshare"
	colBankShare            = "bankshare"
	colCoGuarantorShare     = "coguarantorshare"
)

func normalizeKey(label string) string {
	return strings.ToLower(ledger.NormalizeLabel(label))
}

// guessSheet prefers a sheet whose name mentions the ledger; hand-maintained
// workbooks tend to carry extra scratch sheets first.
func guessSheet(names []string) string {
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), "ledger") {
			return name
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

// findHeader locates the header row: the first row containing a customer
// column. Ledger sheets often start with a title and a blank row above the
// real header.
func findHeader(rows [][]string) (int, map[string]int) {
	for i, row := range rows {
		cols := make(map[string]int)
		for j, cell := range row {
			key := normalizeKey(cell)
			if key == "" {
				continue
			}
			if _, seen := cols[key]; !seen {
				cols[key] = j
			}
		}
		if _, ok := cols[colCustomer]; ok {
			return i, cols
		}
	}
	return -1, nil
}

func hasColumn(cols map[string]int, key string) bool {
	_, ok := cols[key]
	return ok
}

func cell(row []string, cols map[string]int, key string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// buildRow coerces one record into a ledger row, applying the lenient
// parsing rules and the classification and ownership enrichment.
func buildRow(record []string, cols map[string]int, mapping Mapping, roster Roster) ledger.Row {
	row := ledger.Row{
		Customer:        cell(record, cols, colCustomer),
		Product:         cell(record, cols, colProduct),
		RiskTier:        cell(record, cols, colRiskTier),
		EnterpriseSize:  cell(record, cols, colEnterpriseSize),
		NewOrRenewal:    cell(record, cols, colNewOrRenewal),
		LoanAmount:      ledger.ParseAmount(cell(record, cols, colLoanAmount)),
		PendingAmount:   ledger.ParseAmount(cell(record, cols, colPendingAmount)),
		PendingKnown:    hasColumn(cols, colPendingAmount),
		PayoutAmount:    ledger.ParseAmount(cell(record, cols, colPayoutAmount)),
		RecoveredAmount: ledger.ParseAmount(cell(record, cols, colRecoveredAmount)),
		FeeRate:         ledger.ParseAmount(cell(record, cols, colFeeRate)),

		OutstandingBalance: ledger.ParseAmount(cell(record, cols, colOutstandingBalance)),

		DisburseDate:         ledger.ParseDate(cell(record, cols, colDisburseDate)),
		MaturityDate:         ledger.ParseDate(cell(record, cols, colMaturityDate)),
		ContractMaturityDate: ledger.ParseDate(cell(record, cols, colContractMaturityDate)),
		PayoutDate:           ledger.ParseDate(cell(record, cols, colPayoutDate)),

		CompanyShare:     ledger.ParseShare(cell(record, cols, colCompanyShare)),
		BankShare:        ledger.ParseShare(cell(record, cols, colBankShare)),
		CoGuarantorShare: ledger.ParseShare(cell(record, cols, colCoGuarantorShare)),
	}

	if tags, ok := mapping[row.Product]; ok {
		row.ProductClass = tags.Class
		row.ProductSubclass = tags.Subclass
	}

	// Default ownership is private; the roster and the entrusted-loan product
	// override it.
	row.Ownership = ledger.OwnershipPrivate
	if _, ok := roster[row.Customer]; ok || row.Product == ledger.ProductEntrusted {
		row.Ownership = ledger.OwnershipState
	}

	return row
}

// tableFromRows converts a raw sheet into a cleaned table. Rows with an
// empty customer cell are dropped; everything else survives coercion.
func tableFromRows(rows [][]string, mapping Mapping, roster Roster) (ledger.Table, error) {
	headerIdx, cols := findHeader(rows)
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row with a customer column found")
	}

	var tbl ledger.Table
	for _, record := range rows[headerIdx+1:] {
		row := buildRow(record, cols, mapping, roster)
		if row.Customer == "" {
			continue
		}
		tbl = append(tbl, row)
	}
	return tbl, nil
}

// ReadWorkbook parses one ledger workbook from a reader.
func ReadWorkbook(r io.Reader, mapping Mapping, roster Roster, logger *zap.Logger) (ledger.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook, %s", err)
	}
	defer f.Close()

	sheet := guessSheet(f.GetSheetList())
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	logger.Debug("selected ledger sheet",
		zap.String("op", "ingest.ReadWorkbook"),
		zap.String("sheet", sheet),
	)

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s, %s", sheet, err)
	}
	return tableFromRows(rows, mapping, roster)
}

// LoadWorkbook parses one ledger workbook from a file path.
func LoadWorkbook(path string, mapping Mapping, roster Roster, logger *zap.Logger) (ledger.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ledger file %s, %s", path, err)
	}
	defer f.Close()

	tbl, err := ReadWorkbook(f, mapping, roster, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, err)
	}
	return tbl, nil
}

// SplitLending divides a lending table into the traditional and batch lines
// by product class. Rows with neither class are logged and dropped; they
// belong to products missing from the classification mapping.
func SplitLending(tbl ledger.Table, logger *zap.Logger) map[string]ledger.Table {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make(map[string]ledger.Table)
	unclassified := 0
	for _, row := range tbl {
		switch row.ProductClass {
		case ledger.LineTraditional, ledger.LineBatch:
			out[row.ProductClass] = append(out[row.ProductClass], row)
		default:
			unclassified++
		}
	}
	if unclassified > 0 {
		logger.Warn("dropped rows with unclassified products",
			zap.String("op", "ingest.SplitLending"),
			zap.Int("rows", unclassified),
		)
	}
	return out
}
