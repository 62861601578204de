// Package calculator runs the per-line metric pipelines. Each business line
// owns a predicate library, an aggregation table, and a fixed ordered list of
// compound metric names; a run derives the computed columns, builds the
// exposure sets, and then evaluates every metric against the cleaned table.
package calculator

import (
	"time"

	"go.uber.org/zap"

	"github.com/zxyuan/guarantee-stats/internal/metric"
	"github.com/zxyuan/guarantee-stats/internal/predicate"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Defaults for the exposure-set parameters, in the ledger's 10k currency
// units: a 5M single-customer ceiling and a top-10 ranking.
const (
	DefaultCeiling = 500.0
	DefaultTopN    = 10
)

// Summary scalar names emitted outside the metric-name grammar.
const (
	SummaryUnderCeilingSmallMicro = "underCeilingSmallMicroBalance"
	SummaryTopTen                 = "topTenBalance"
	SummaryLargestCustomer        = "largestCustomerBalance"
)

// MetricError records the isolated failure of a single metric.
type MetricError struct {
	Metric string
	Err    error
}

// Result is one line's named-scalar result set.
type Result struct {
	Line     string
	Names    []string
	Values   map[string]float64
	Errors   []MetricError
	Exposure ExposureSets
}

// Calculator evaluates one business line.
type Calculator struct {
	Line    string
	Library predicate.Library
	Aggs    metric.Table
	Metrics []string

	Ceiling float64
	TopN    int

	summaries bool
}

// NewTraditional builds the calculator for the traditional guarantee line.
func NewTraditional(ceiling float64, topN int) *Calculator {
	return &Calculator{
		Line:      ledger.LineTraditional,
		Library:   predicate.Traditional(),
		Aggs:      metric.LoanAggs(),
		Metrics:   traditionalMetrics(),
		Ceiling:   ceiling,
		TopN:      topN,
		summaries: true,
	}
}

// NewBatch builds the calculator for the batch guarantee line.
func NewBatch(ceiling float64, topN int) *Calculator {
	return &Calculator{
		Line:      ledger.LineBatch,
		Library:   predicate.Batch(),
		Aggs:      metric.LoanAggs(),
		Metrics:   batchMetrics(),
		Ceiling:   ceiling,
		TopN:      topN,
		summaries: true,
	}
}

// NewGuaranteeLetter builds the calculator for the letter-of-guarantee line.
func NewGuaranteeLetter(ceiling float64, topN int) *Calculator {
	return &Calculator{
		Line:    ledger.LineGuaranteeLetter,
		Library: predicate.GuaranteeLetter(),
		Aggs:    metric.LetterAggs(),
		Metrics: guaranteeLetterMetrics(),
		Ceiling: ceiling,
		TopN:    topN,
	}
}

// NewCompensation builds the calculator for the compensation-payout line.
func NewCompensation(ceiling float64, topN int) *Calculator {
	return &Calculator{
		Line:    ledger.LineCompensation,
		Library: predicate.Compensation(),
		Aggs:    metric.CompensationAggs(),
		Metrics: compensationMetrics(),
		Ceiling: ceiling,
		TopN:    topN,
	}
}

// Derive computes the per-row derived columns on a copy of the table. Actual
// disbursement nets out the pending amount when the feed carries that column
// (a fully disbursed row then nets out zero) and falls back to netting out
// the bank's risk share otherwise; responsibility balance nets out the
// co-guarantor share.
func Derive(tbl ledger.Table) ledger.Table {
	out := make(ledger.Table, len(tbl))
	copy(out, tbl)
	for i := range out {
		if out[i].PendingKnown {
			out[i].ActualLoan = out[i].LoanAmount - out[i].PendingAmount
		} else {
			out[i].ActualLoan = out[i].LoanAmount * (1 - out[i].BankShare)
		}
		out[i].ResponsibilityBalance = out[i].OutstandingBalance * (1 - out[i].CoGuarantorShare)
	}
	return out
}

// Run executes the two-phase pipeline for one line: derive columns and
// exposure sets first, then evaluate the metric list. Metric failures are
// collected, logged, and excluded from the values map; they never abort the
// batch.
func (c *Calculator) Run(logger *zap.Logger, tbl ledger.Table, asOf time.Time) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	tbl = Derive(tbl)

	result := Result{
		Line:   c.Line,
		Values: make(map[string]float64, len(c.Metrics)),
	}

	// Phase 1: exposure sets, strictly before any predicate evaluation.
	result.Exposure = DeriveExposureSets(tbl, c.Ceiling, c.TopN)

	ctx := predicate.NewContext(asOf)
	ctx.UnderCeiling = result.Exposure.UnderCeiling
	ctx.TopCustomers = result.Exposure.TopCustomers
	ctx.Largest = result.Exposure.Largest

	// Phase 2: the metric list, in declared order.
	for _, name := range c.Metrics {
		value, err := metric.Evaluate(name, tbl, c.Library, c.Aggs, ctx)
		if err != nil {
			result.Errors = append(result.Errors, MetricError{Metric: name, Err: err})
			logger.Warn("metric evaluation failed",
				zap.String("op", "calculator.Run"),
				zap.String("line", c.Line),
				zap.String("metric", name),
				zap.Error(err),
			)
			continue
		}
		result.Names = append(result.Names, name)
		result.Values[name] = value
	}

	if c.summaries {
		c.addSummaries(&result, tbl)
	}

	logger.Debug("line calculation complete",
		zap.String("op", "calculator.Run"),
		zap.String("line", c.Line),
		zap.Int("metrics", len(result.Names)),
		zap.Int("failures", len(result.Errors)),
	)

	return result
}

// addSummaries emits the customer-grouping scalars the lending lines report
// alongside their metric lists: the under-ceiling small/micro balance, the
// top-ten balance, and the largest single customer balance.
func (c *Calculator) addSummaries(result *Result, tbl ledger.Table) {
	smallMicro := make(map[string]struct{})
	for _, row := range tbl {
		if row.EnterpriseSize == ledger.SizeSmall || row.EnterpriseSize == ledger.SizeMicro {
			smallMicro[row.Customer] = struct{}{}
		}
	}

	var underCeilingSmallMicro float64
	for customer := range result.Exposure.UnderCeiling {
		if _, ok := smallMicro[customer]; ok {
			underCeilingSmallMicro += result.Exposure.Balance(customer)
		}
	}

	for _, s := range []struct {
		name  string
		value float64
	}{
		{SummaryUnderCeilingSmallMicro, underCeilingSmallMicro},
		{SummaryTopTen, result.Exposure.TopBalance},
		{SummaryLargestCustomer, result.Exposure.LargestBalance},
	} {
		result.Names = append(result.Names, s.name)
		result.Values[s.name] = s.value
	}
}
