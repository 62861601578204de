package metric

import (
	"testing"

	"github.com/zxyuan/guarantee-stats/internal/predicate"
	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

func lendingFixture() (ledger.Table, predicate.Library, Table, *predicate.Context) {
	tbl := ledger.Table{
		{
			Customer:           "alpha",
			LoanAmount:         100,
			DisburseDate:       dateutil.MustParse("2025-02-01"),
			OutstandingBalance: 80,
			EnterpriseSize:     ledger.SizeSmall,
		},
		{
			Customer:           "alpha",
			LoanAmount:         200,
			DisburseDate:       dateutil.MustParse("2025-03-01"),
			OutstandingBalance: 150,
			EnterpriseSize:     ledger.SizeSmall,
		},
		{
			Customer:           "beta",
			LoanAmount:         300,
			DisburseDate:       dateutil.MustParse("2025-04-01"),
			OutstandingBalance: 0,
			EnterpriseSize:     ledger.SizeMedium,
		},
		{
			Customer:           "gamma",
			LoanAmount:         400,
			DisburseDate:       dateutil.MustParse("2023-04-01"),
			OutstandingBalance: 400,
			EnterpriseSize:     ledger.SizeMicro,
		},
	}
	return tbl, predicate.Traditional(), LoanAggs(), predicate.NewContext(dateutil.MustParse("2025-06-30"))
}

func TestEvaluateRoundTrip(t *testing.T) {
	tbl, lib, aggs, ctx := lendingFixture()

	tests := []struct {
		name     string
		metric   string
		expected float64
	}{
		{name: "Current year sum", metric: "currentYear_nominalLoan", expected: 600},
		{name: "Current year count", metric: "currentYear_cases", expected: 3},
		{name: "Current year customers", metric: "currentYear_customers", expected: 2},
		{name: "Current year small micro sum", metric: "currentYear_smallMicro_nominalLoan", expected: 300},
		{name: "In force balance", metric: "inForce_outstandingBalance", expected: 630},
		{name: "Bare aggregation over whole table", metric: "nominalLoan", expected: 1000},
		{name: "All rows count", metric: "cases", expected: 4},
		{name: "Distinct customers", metric: "customers", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.metric, tbl, lib, aggs, ctx)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.metric, err)
			}
			if got != tt.expected {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.metric, got, tt.expected)
			}
		})
	}
}

func TestConjunctionCommutativity(t *testing.T) {
	tbl, lib, aggs, ctx := lendingFixture()

	pairs := [][2]string{
		{"currentYear_smallMicro_nominalLoan", "smallMicro_currentYear_nominalLoan"},
		{"inForce_smallMicro_customers", "smallMicro_inForce_customers"},
	}

	for _, pair := range pairs {
		a, err := Evaluate(pair[0], tbl, lib, aggs, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", pair[0], err)
		}
		b, err := Evaluate(pair[1], tbl, lib, aggs, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", pair[1], err)
		}
		if a != b {
			t.Errorf("reordered predicates disagree: %q = %v, %q = %v", pair[0], a, pair[1], b)
		}
	}
}

func TestEmptyMaskAggregations(t *testing.T) {
	tbl, lib, aggs, ctx := lendingFixture()

	// No row is both medium and small/micro.
	for _, metric := range []string{
		"medium_smallMicro_nominalLoan",
		"medium_smallMicro_cases",
		"medium_smallMicro_customers",
	} {
		got, err := Evaluate(metric, tbl, lib, aggs, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", metric, err)
		}
		if got != 0 {
			t.Errorf("Evaluate(%q) = %v, expected 0 for empty mask", metric, got)
		}
	}
}

func TestUnknownNamesAreIsolatedErrors(t *testing.T) {
	tbl, lib, aggs, ctx := lendingFixture()

	if _, err := Evaluate("noSuchPredicate_nominalLoan", tbl, lib, aggs, ctx); err == nil {
		t.Errorf("Evaluate() with unknown predicate returned nil error")
	}
	if _, err := Evaluate("currentYear_noSuchVerb", tbl, lib, aggs, ctx); err == nil {
		t.Errorf("Evaluate() with unknown verb returned nil error")
	}

	// A failure above must not poison later evaluations.
	got, err := Evaluate("currentYear_nominalLoan", tbl, lib, aggs, ctx)
	if err != nil || got != 600 {
		t.Errorf("Evaluate() after failed metric = %v, %v; expected 600, nil", got, err)
	}
}

func TestEvaluateEmptyTable(t *testing.T) {
	_, lib, aggs, _ := lendingFixture()
	ctx := predicate.NewContext(dateutil.MustParse("2025-06-30"))

	got, err := Evaluate("currentYear_nominalLoan", nil, lib, aggs, ctx)
	if err != nil {
		t.Fatalf("Evaluate() on empty table error = %v", err)
	}
	if got != 0 {
		t.Errorf("Evaluate() on empty table = %v, expected 0", got)
	}
}
