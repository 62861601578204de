// Package ledger defines the cleaned tabular data model for guarantee
// contracts and the lenient cell-coercion rules shared by every ingestion
// path.
package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
)

// Enterprise-size categories.
const (
	SizeSmall  = "small"
	SizeMicro  = "micro"
	SizeMedium = "medium"
	SizeAgri   = "agri"
)

// Risk tiers, in regulatory order.
const (
	TierNormal      = "normal"
	TierWatch       = "watch"
	TierSubstandard = "substandard"
	TierDoubtful    = "doubtful"
	TierLoss        = "loss"
)

// Ownership tags.
const (
	OwnershipState   = "stateOwned"
	OwnershipPrivate = "private"
)

// FlagNew marks a contract recorded as new business rather than a renewal.
const FlagNew = "new"

// Product and classification tags supplied by the business-classification
// mapping table.
const (
	ProductEntrusted      = "entrustedLoan"
	ProductStationExpress = "stationExpress"
	ProductMicroOwner     = "microOwner"
	SubclassSubsidized    = "subsidized"
)

// Business-line labels.
const (
	LineTraditional     = "traditional"
	LineBatch           = "batch"
	LineGuaranteeLetter = "guaranteeLetter"
	LineCompensation    = "compensation"
)

// Row is one guarantee contract from a cleaned ledger table. Fields a line
// does not carry are simply left at their zero value; predicates treat
// missing categorical fields as non-matching.
type Row struct {
	Customer        string
	Product         string
	ProductClass    string
	ProductSubclass string

	LoanAmount float64
	// PendingAmount is meaningful only when the feed carried the column;
	// PendingKnown records that table-level fact on every row so derived
	// columns pick one formula for the whole feed.
	PendingAmount         float64
	PendingKnown          bool
	ActualLoan            float64
	OutstandingBalance    float64
	ResponsibilityBalance float64
	PayoutAmount          float64
	RecoveredAmount       float64

	DisburseDate         time.Time
	MaturityDate         time.Time
	ContractMaturityDate time.Time
	PayoutDate           time.Time

	RiskTier       string
	EnterpriseSize string
	Ownership      string
	NewOrRenewal   string

	FeeRate          float64
	CompanyShare     float64
	BankShare        float64
	CoGuarantorShare float64
}

// Table is an ordered collection of ledger rows for one business line.
type Table []Row

// Filter returns the rows selected by mask. The mask must be aligned to the
// table's row order; a short mask selects nothing beyond its length.
func (t Table) Filter(mask []bool) Table {
	var out Table
	for i := range t {
		if i < len(mask) && mask[i] {
			out = append(out, t[i])
		}
	}
	return out
}

var numericOnly = regexp.MustCompile(`^\d*$`)

// BalanceByCustomer sums outstanding balances per customer. Rows whose
// customer id is empty or purely numeric after trimming are excluded; those
// are subtotal or placeholder rows in hand-maintained ledgers, not customers.
func (t Table) BalanceByCustomer() map[string]float64 {
	sums := make(map[string]float64)
	for _, row := range t {
		name := strings.TrimSpace(row.Customer)
		if numericOnly.MatchString(name) {
			continue
		}
		sums[name] += row.OutstandingBalance
	}
	return sums
}

// ParseAmount coerces a numeric cell to a float64. Thousands separators are
// tolerated; anything unparseable becomes 0 so a bad cell degrades one value
// instead of aborting the run.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseShare coerces a risk-share cell to a fraction in [0, 1]. Cells may be
// written as "100%", "100", or "1"; values above 1 are read as percentages.
func ParseShare(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if v > 1 {
		v = v / 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// ParseDate coerces a date cell, mapping unparseable cells to the
// dateutil.Never sentinel.
func ParseDate(s string) time.Time {
	return dateutil.Parse(s)
}

var (
	labelWhitespace = regexp.MustCompile(`\s+`)
	labelUnitSuffix = regexp.MustCompile(`[（(]\s*(?:10k|%|10-thousand|万元)\s*[）)]`)
)

// NormalizeLabel canonicalizes a column label: interior whitespace removed and
// unit-annotation suffixes like "(10k)" or "(%)" stripped.
func NormalizeLabel(s string) string {
	s = labelWhitespace.ReplaceAllString(s, "")
	s = labelUnitSuffix.ReplaceAllString(s, "")
	return s
}
