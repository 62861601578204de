package engine

import (
	"testing"

	"github.com/zxyuan/guarantee-stats/internal/formula"
	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

func lendingTable() ledger.Table {
	return ledger.Table{
		{
			Customer:           "alpha",
			LoanAmount:         100,
			DisburseDate:       dateutil.MustParse("2025-02-01"),
			MaturityDate:       dateutil.MustParse("2025-05-01"),
			OutstandingBalance: 80,
			EnterpriseSize:     ledger.SizeSmall,
			RiskTier:           ledger.TierNormal,
		},
		{
			Customer:           "beta",
			LoanAmount:         200,
			DisburseDate:       dateutil.MustParse("2025-03-01"),
			MaturityDate:       dateutil.MustParse("2026-03-01"),
			OutstandingBalance: 150,
			EnterpriseSize:     ledger.SizeMedium,
			RiskTier:           ledger.TierNormal,
		},
	}
}

func mustStages(t *testing.T, lines ...string) []formula.Stage {
	t.Helper()
	stage := formula.Stage{Name: "test"}
	for _, line := range lines {
		rule, ok := formula.ParseRule(line)
		if !ok {
			t.Fatalf("ParseRule(%q) failed", line)
		}
		stage.Rules = append(stage.Rules, rule)
	}
	return []formula.Stage{stage}
}

func TestRunSeedsNamespacePerLine(t *testing.T) {
	out, err := Run(nil, Input{
		AsOf: dateutil.MustParse("2025-06-30"),
		Tables: map[string]ledger.Table{
			ledger.LineTraditional: lendingTable(),
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := out.Report["traditional.currentYear_nominalLoan"]; got != 300 {
		t.Errorf("traditional.currentYear_nominalLoan = %v, expected 300", got)
	}
	if got := out.Report["traditional.outstandingBalance"]; got != 230 {
		t.Errorf("traditional.outstandingBalance = %v, expected 230", got)
	}
	if len(out.Lines) != 1 || out.Lines[0].Line != ledger.LineTraditional {
		t.Errorf("Lines = %v, expected just the traditional result", out.Lines)
	}
}

func TestRunMissingLineReadsZero(t *testing.T) {
	out, err := Run(nil, Input{
		AsOf: dateutil.MustParse("2025-06-30"),
		Tables: map[string]ledger.Table{
			ledger.LineTraditional: lendingTable(),
		},
		Stages: mustStages(t,
			"combined = traditional.currentYear_nominalLoan + batch.currentYear_nominalLoan",
		),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The batch line was never supplied; its scalar contributes 0.
	if got := out.Report["combined"]; got != 300 {
		t.Errorf("combined = %v, expected 300 with absent batch line as 0", got)
	}
}

func TestRunPriorPeriodAndOverrides(t *testing.T) {
	out, err := Run(nil, Input{
		AsOf: dateutil.MustParse("2025-06-30"),
		Tables: map[string]ledger.Table{
			ledger.LineTraditional: lendingTable(),
		},
		Prior:     PriorPeriod{YearEndBalance: 1000},
		Overrides: map[string]float64{"magnifierCap": 10},
		Stages: mustStages(t,
			"growth = traditional.outstandingBalance - prior.yearEndBalance",
			"cap = magnifierCap",
		),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := out.Report["growth"]; got != -770 {
		t.Errorf("growth = %v, expected -770", got)
	}
	if got := out.Report["cap"]; got != 10 {
		t.Errorf("cap = %v, expected 10", got)
	}
}

func TestRunStrictCollectsUnresolved(t *testing.T) {
	out, err := Run(nil, Input{
		AsOf: dateutil.MustParse("2025-06-30"),
		Tables: map[string]ledger.Table{
			ledger.LineTraditional: lendingTable(),
		},
		Strict: true,
		Stages: mustStages(t, "x = definitelyMissing + 1"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(out.Formula.Unresolved) != 1 || out.Formula.Unresolved[0] != "definitelyMissing" {
		t.Errorf("Unresolved = %v, expected [definitelyMissing]", out.Formula.Unresolved)
	}
	if got := out.Report["x"]; got != 1 {
		t.Errorf("x = %v, expected 1 (strict mode must not change values)", got)
	}
}

func TestRunOverduePerLine(t *testing.T) {
	out, err := Run(nil, Input{
		AsOf: dateutil.MustParse("2025-06-30"),
		Tables: map[string]ledger.Table{
			ledger.LineTraditional: lendingTable(),
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// alpha matured 2025-05-01 with balance 80 still outstanding.
	got := out.Overdue[ledger.LineTraditional]
	if got.Count != 1 || got.Rows[0].Customer != "alpha" {
		t.Errorf("Overdue = %v, expected exactly the alpha row", got)
	}
}

func TestRunNoTables(t *testing.T) {
	if _, err := Run(nil, Input{AsOf: dateutil.MustParse("2025-06-30")}); err == nil {
		t.Errorf("Run() with no tables returned nil error")
	}
}
