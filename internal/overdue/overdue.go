// Package overdue identifies contracts whose maturity date has passed while
// their outstanding balance was never cleared.
package overdue

import (
	"time"

	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Result is the overdue subset of one line's table.
type Result struct {
	Rows  ledger.Table
	Count int
}

// Check returns the rows whose maturity date parsed to a real date, strictly
// precedes the as-of date at midnight, and whose outstanding balance is
// nonzero. Rows with unparseable maturity cells carry the far-future
// sentinel and are excluded by construction.
func Check(tbl ledger.Table, asOf time.Time) Result {
	cutoff := dateutil.Midnight(asOf)

	var rows ledger.Table
	for _, row := range tbl {
		if dateutil.IsNever(row.MaturityDate) {
			continue
		}
		if !row.MaturityDate.Before(cutoff) {
			continue
		}
		if row.OutstandingBalance == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return Result{Rows: rows, Count: len(rows)}
}
