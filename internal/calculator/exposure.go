package calculator

import (
	"sort"

	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// ExposureSets holds the customer sets derived from a line's full table
// before any predicate runs: customers whose summed outstanding balance is at
// or below the ceiling, the top-N customers by summed balance, and the single
// largest customer. The summed balances behind each set are kept for the
// summary scalars.
type ExposureSets struct {
	UnderCeiling map[string]struct{}
	TopCustomers map[string]struct{}
	Largest      string

	UnderCeilingBalance float64
	TopBalance          float64
	LargestBalance      float64

	byCustomer map[string]float64
}

// DeriveExposureSets is phase 1 of a line calculation. It groups outstanding
// balances by customer and builds the threshold and ranking sets consumed by
// the exposure predicates.
func DeriveExposureSets(tbl ledger.Table, ceiling float64, topN int) ExposureSets {
	sums := tbl.BalanceByCustomer()

	sets := ExposureSets{
		UnderCeiling: make(map[string]struct{}),
		TopCustomers: make(map[string]struct{}),
		byCustomer:   sums,
	}

	customers := make([]string, 0, len(sums))
	for name := range sums {
		customers = append(customers, name)
	}
	// Deterministic ranking: balance descending, then name so ties never
	// reorder between runs.
	sort.Slice(customers, func(i, j int) bool {
		if sums[customers[i]] != sums[customers[j]] {
			return sums[customers[i]] > sums[customers[j]]
		}
		return customers[i] < customers[j]
	})

	for _, name := range customers {
		if sums[name] <= ceiling {
			sets.UnderCeiling[name] = struct{}{}
			sets.UnderCeilingBalance += sums[name]
		}
	}

	for i, name := range customers {
		if i >= topN {
			break
		}
		sets.TopCustomers[name] = struct{}{}
		sets.TopBalance += sums[name]
	}

	if len(customers) > 0 {
		sets.Largest = customers[0]
		sets.LargestBalance = sums[customers[0]]
	}

	return sets
}

// Balance returns the summed outstanding balance for one customer.
func (s ExposureSets) Balance(customer string) float64 {
	return s.byCustomer[customer]
}
