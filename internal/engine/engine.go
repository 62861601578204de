// Package engine orchestrates one full statistics run: per-line metric
// calculation, namespace seeding, staged formula evaluation, and the overdue
// check. A run is a pure function of its input; all session handling lives
// with the caller.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zxyuan/guarantee-stats/internal/calculator"
	"github.com/zxyuan/guarantee-stats/internal/formula"
	"github.com/zxyuan/guarantee-stats/internal/overdue"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Namespace keys for the manually entered prior-period scalars.
const (
	PriorMonthEndKey = "prior.monthEndBalance"
	PriorYearEndKey  = "prior.yearEndBalance"
	PriorYearAgoKey  = "prior.yearAgoBalance"
)

// PriorPeriod carries the three manually entered balances from earlier
// reporting periods.
type PriorPeriod struct {
	MonthEndBalance float64
	YearEndBalance  float64
	YearAgoBalance  float64
}

// Input is everything a run depends on. Tables is keyed by business-line
// label; lines without a table are simply absent from the results and their
// scalars read as 0 in formulas.
type Input struct {
	AsOf      time.Time
	Tables    map[string]ledger.Table
	Prior     PriorPeriod
	Overrides map[string]float64
	Stages    []formula.Stage

	Ceiling float64
	TopN    int
	Strict  bool
}

// Output is the complete result of one run.
type Output struct {
	Lines   []calculator.Result
	Report  formula.Namespace
	Formula formula.Report
	Overdue map[string]overdue.Result
}

// Lines are processed in this fixed order so result sets and exports are
// deterministic.
var lineOrder = []string{
	ledger.LineTraditional,
	ledger.LineBatch,
	ledger.LineGuaranteeLetter,
	ledger.LineCompensation,
}

func newCalculator(line string, ceiling float64, topN int) *calculator.Calculator {
	switch line {
	case ledger.LineTraditional:
		return calculator.NewTraditional(ceiling, topN)
	case ledger.LineBatch:
		return calculator.NewBatch(ceiling, topN)
	case ledger.LineGuaranteeLetter:
		return calculator.NewGuaranteeLetter(ceiling, topN)
	case ledger.LineCompensation:
		return calculator.NewCompensation(ceiling, topN)
	default:
		return nil
	}
}

// Run executes the full pipeline. It fails only when no line table was
// supplied at all; every data-level problem degrades a single value per the
// leniency policy.
func Run(logger *zap.Logger, in Input) (*Output, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(in.Tables) == 0 {
		return nil, fmt.Errorf("no ledger tables supplied")
	}

	ceiling := in.Ceiling
	if ceiling == 0 {
		ceiling = calculator.DefaultCeiling
	}
	topN := in.TopN
	if topN == 0 {
		topN = calculator.DefaultTopN
	}

	out := &Output{
		Report:  make(formula.Namespace),
		Overdue: make(map[string]overdue.Result),
	}

	for _, line := range lineOrder {
		tbl, ok := in.Tables[line]
		if !ok {
			logger.Debug("line not supplied, skipping",
				zap.String("op", "engine.Run"),
				zap.String("line", line),
			)
			continue
		}

		calc := newCalculator(line, ceiling, topN)
		result := calc.Run(logger, tbl, in.AsOf)
		out.Lines = append(out.Lines, result)

		for name, value := range result.Values {
			out.Report[line+"."+name] = value
		}

		out.Overdue[line] = overdue.Check(calculator.Derive(tbl), in.AsOf)
	}

	out.Report[PriorMonthEndKey] = in.Prior.MonthEndBalance
	out.Report[PriorYearEndKey] = in.Prior.YearEndBalance
	out.Report[PriorYearAgoKey] = in.Prior.YearAgoBalance
	for name, value := range in.Overrides {
		out.Report[name] = value
	}

	out.Formula = formula.EvalStages(in.Stages, out.Report, formula.Options{Strict: in.Strict})
	if in.Strict && len(out.Formula.Unresolved) > 0 {
		logger.Warn("formula rules referenced unresolved names",
			zap.String("op", "engine.Run"),
			zap.Strings("names", out.Formula.Unresolved),
		)
	}

	logger.Info("statistics run complete",
		zap.String("op", "engine.Run"),
		zap.Int("lines", len(out.Lines)),
		zap.Int("indicators", len(out.Report)),
	)

	return out, nil
}
