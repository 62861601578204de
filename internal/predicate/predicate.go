// Package predicate defines the named row-filter library evaluated by the
// metric engine. Each predicate is a pure function producing a boolean mask
// aligned to the input table; predicates never mutate the table and never
// fail on rows with missing optional fields.
package predicate

import (
	"time"

	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// Context carries the per-run inputs predicates depend on: the as-of date,
// the precomputed reporting windows derived from it, and the line's customer
// exposure sets. Exposure sets are attached by the calculator after its
// phase-1 grouping pass, strictly before any predicate is evaluated.
type Context struct {
	AsOf       time.Time
	Year       dateutil.Window
	Month      dateutil.Window
	PriorYear  dateutil.Window
	PriorMonth dateutil.Window

	UnderCeiling map[string]struct{}
	TopCustomers map[string]struct{}
	Largest      string
}

// NewContext precomputes the reporting windows for the given as-of date.
func NewContext(asOf time.Time) *Context {
	return &Context{
		AsOf:       dateutil.Midnight(asOf),
		Year:       dateutil.YearWindow(asOf),
		Month:      dateutil.MonthWindow(asOf),
		PriorYear:  dateutil.PriorYearWindow(asOf),
		PriorMonth: dateutil.PriorMonthWindow(asOf),
	}
}

// Predicate evaluates a named condition against every row of a table,
// returning a mask with one entry per row.
type Predicate func(tbl ledger.Table, ctx *Context) []bool

// Library maps predicate names to their implementations. A library is built
// once per line and must not be modified afterwards.
type Library map[string]Predicate

// Lookup returns the predicate registered under name.
func (l Library) Lookup(name string) (Predicate, bool) {
	p, ok := l[name]
	return p, ok
}

// rowTest lifts a per-row condition into a mask-producing predicate.
func rowTest(f func(row ledger.Row, ctx *Context) bool) Predicate {
	return func(tbl ledger.Table, ctx *Context) []bool {
		mask := make([]bool, len(tbl))
		for i := range tbl {
			mask[i] = f(tbl[i], ctx)
		}
		return mask
	}
}

// DateIn matches rows whose selected date falls inside the selected window.
func DateIn(field func(ledger.Row) time.Time, window func(*Context) dateutil.Window) Predicate {
	return rowTest(func(row ledger.Row, ctx *Context) bool {
		return window(ctx).Contains(field(row))
	})
}

// CategoryIn matches rows whose selected field equals one of the given
// values. An empty field never matches.
func CategoryIn(field func(ledger.Row) string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return rowTest(func(row ledger.Row, _ *Context) bool {
		_, ok := set[field(row)]
		return ok
	})
}

// InSet matches rows whose customer belongs to the selected exposure set.
func InSet(set func(*Context) map[string]struct{}) Predicate {
	return rowTest(func(row ledger.Row, ctx *Context) bool {
		s := set(ctx)
		if s == nil {
			return false
		}
		_, ok := s[row.Customer]
		return ok
	})
}
