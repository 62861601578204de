// Package metric parses compound metric names and evaluates them against a
// line's table. A metric name is a list of predicate names joined by "_" and
// terminated by an aggregation verb; the predicates are combined with logical
// AND and the verb decides how the surviving rows are reduced to a scalar.
package metric

import (
	"fmt"
	"strings"

	"github.com/zxyuan/guarantee-stats/internal/predicate"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Separator joins the segments of a compound metric name.
const Separator = "_"

// Kind selects the reduction applied under the conjunction mask.
type Kind int

const (
	// Sum adds the aggregation's value column over the masked rows.
	Sum Kind = iota
	// Count counts the masked rows.
	Count
	// Distinct counts distinct values of the aggregation's key column over
	// the masked rows.
	Distinct
)

// Agg describes one aggregation verb: its kind plus the column selector it
// reduces. Value is required for Sum, Key for Distinct; Count ignores both.
type Agg struct {
	Kind  Kind
	Value func(ledger.Row) float64
	Key   func(ledger.Row) string
}

// Table maps aggregation verbs to their definitions for one line.
type Table map[string]Agg

// Evaluate computes a single compound metric. A name referencing an unknown
// predicate or aggregation verb returns an error for that metric only; the
// caller decides whether to surface a placeholder or skip the value.
func Evaluate(name string, tbl ledger.Table, lib predicate.Library, aggs Table, ctx *predicate.Context) (float64, error) {
	segments := strings.Split(name, Separator)
	verb := segments[len(segments)-1]
	ruleNames := segments[:len(segments)-1]

	agg, ok := aggs[verb]
	if !ok {
		return 0, fmt.Errorf("unknown aggregation verb %q in metric %q", verb, name)
	}

	mask := make([]bool, len(tbl))
	for i := range mask {
		mask[i] = true
	}
	for _, ruleName := range ruleNames {
		p, ok := lib.Lookup(ruleName)
		if !ok {
			return 0, fmt.Errorf("unknown predicate %q in metric %q", ruleName, name)
		}
		for i, v := range p(tbl, ctx) {
			mask[i] = mask[i] && v
		}
	}

	switch agg.Kind {
	case Sum:
		var total float64
		for i := range tbl {
			if mask[i] {
				total += agg.Value(tbl[i])
			}
		}
		return total, nil
	case Count:
		n := 0
		for i := range mask {
			if mask[i] {
				n++
			}
		}
		return float64(n), nil
	case Distinct:
		seen := make(map[string]struct{})
		for i := range tbl {
			if mask[i] {
				seen[agg.Key(tbl[i])] = struct{}{}
			}
		}
		return float64(len(seen)), nil
	default:
		return 0, fmt.Errorf("unsupported aggregation kind %d in metric %q", agg.Kind, name)
	}
}

// LoanAggs is the aggregation table shared by the traditional and batch
// lending lines.
func LoanAggs() Table {
	return Table{
		"nominalLoan":        {Kind: Sum, Value: func(r ledger.Row) float64 { return r.LoanAmount }},
		"actualLoan":         {Kind: Sum, Value: func(r ledger.Row) float64 { return r.ActualLoan }},
		"outstandingBalance": {Kind: Sum, Value: func(r ledger.Row) float64 { return r.OutstandingBalance }},
		"responsibilityBalance": {Kind: Sum, Value: func(r ledger.Row) float64 {
			return r.ResponsibilityBalance
		}},
		"cases":     {Kind: Count},
		"customers": {Kind: Distinct, Key: func(r ledger.Row) string { return r.Customer }},
	}
}

// LetterAggs is the aggregation table for the letter-of-guarantee line.
func LetterAggs() Table {
	return Table{
		"nominalLoan":        {Kind: Sum, Value: func(r ledger.Row) float64 { return r.LoanAmount }},
		"outstandingBalance": {Kind: Sum, Value: func(r ledger.Row) float64 { return r.OutstandingBalance }},
		"cases":              {Kind: Count},
		"customers":          {Kind: Distinct, Key: func(r ledger.Row) string { return r.Customer }},
	}
}

// CompensationAggs is the aggregation table for the compensation-payout line.
func CompensationAggs() Table {
	return Table{
		"payout":             {Kind: Sum, Value: func(r ledger.Row) float64 { return r.PayoutAmount }},
		"recovered":          {Kind: Sum, Value: func(r ledger.Row) float64 { return r.RecoveredAmount }},
		"outstandingBalance": {Kind: Sum, Value: func(r ledger.Row) float64 { return r.OutstandingBalance }},
		"cases":              {Kind: Count},
		"customers":          {Kind: Distinct, Key: func(r ledger.Row) string { return r.Customer }},
	}
}
