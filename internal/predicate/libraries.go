package predicate

import (
	"time"

	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
)

// shared returns the predicates common to every business line: categorical
// memberships, risk tiers, ownership, the new-business flag, the fee-rate
// ceiling, and exposure-set memberships.
func shared() Library {
	lib := Library{
		"smallMicro": CategoryIn(enterpriseSize, ledger.SizeSmall, ledger.SizeMicro),
		"medium":     CategoryIn(enterpriseSize, ledger.SizeMedium),
		"sme":        CategoryIn(enterpriseSize, ledger.SizeSmall, ledger.SizeMicro, ledger.SizeMedium),
		"agriSupport": CategoryIn(enterpriseSize,
			ledger.SizeSmall, ledger.SizeMicro, ledger.SizeAgri),
		"farmHousehold": CategoryIn(enterpriseSize, ledger.SizeAgri),

		"private":    CategoryIn(ownership, ledger.OwnershipPrivate),
		"stateOwned": CategoryIn(ownership, ledger.OwnershipState),

		"new": CategoryIn(newOrRenewal, ledger.FlagNew),

		"lowFeeRate": rowTest(func(row ledger.Row, _ *Context) bool {
			return row.FeeRate <= 1
		}),

		"underCeiling": InSet(func(ctx *Context) map[string]struct{} { return ctx.UnderCeiling }),
		"topTen":       InSet(func(ctx *Context) map[string]struct{} { return ctx.TopCustomers }),
		"largestCustomer": rowTest(func(row ledger.Row, ctx *Context) bool {
			return ctx.Largest != "" && row.Customer == ctx.Largest
		}),
	}

	for _, tier := range []string{
		ledger.TierNormal, ledger.TierWatch, ledger.TierSubstandard,
		ledger.TierDoubtful, ledger.TierLoss,
	} {
		lib[tier] = CategoryIn(riskTier, tier)
	}

	return lib
}

// loanTemporal adds the disbursement- and maturity-driven window predicates
// used by the lending lines. Current-year and current-month membership also
// require a strictly positive loan amount, which keeps reversal and
// correction rows out of new-business figures; the prior windows carry no
// such guard.
func loanTemporal(lib Library) {
	positive := func(row ledger.Row) bool { return row.LoanAmount > 0 }

	lib["currentYear"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.Year.Contains(row.DisburseDate) && positive(row)
	})
	lib["currentMonth"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.Month.Contains(row.DisburseDate) && positive(row)
	})
	lib["priorYear"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.PriorYear.Contains(row.DisburseDate)
	})
	lib["priorYearMonth"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.PriorMonth.Contains(row.DisburseDate)
	})
	lib["releasedThisYear"] = DateIn(maturityDate, func(ctx *Context) dateutil.Window { return ctx.Year })
	lib["releasedThisMonth"] = DateIn(maturityDate, func(ctx *Context) dateutil.Window { return ctx.Month })
}

// Traditional builds the predicate library for the traditional guarantee line.
func Traditional() Library {
	lib := shared()
	loanTemporal(lib)

	lib["inForce"] = rowTest(func(row ledger.Row, _ *Context) bool {
		return row.OutstandingBalance > 0
	})
	lib["traditional"] = CategoryIn(productClass, ledger.LineTraditional)
	lib["batch"] = CategoryIn(productClass, ledger.LineBatch)
	lib["fullLiability"] = rowTest(func(row ledger.Row, _ *Context) bool {
		return row.CompanyShare == 1
	})
	lib["subsidized"] = CategoryIn(productSubclass, ledger.SubclassSubsidized)
	lib["stationExpress"] = CategoryIn(product, ledger.ProductStationExpress)
	lib["microOwner"] = CategoryIn(product, ledger.ProductMicroOwner)

	return lib
}

// Batch builds the predicate library for the batch (bulk) guarantee line.
// The batch feed shares the lending schema, so the library matches the
// traditional one; the two lines differ in their metric lists.
func Batch() Library {
	return Traditional()
}

// GuaranteeLetter builds the predicate library for the letter-of-guarantee
// line. Its feed carries a separate contract-maturity column that may hold
// textual placeholders; those coerce to the far-future sentinel during
// ingestion and therefore count as unexpired here.
func GuaranteeLetter() Library {
	lib := shared()
	loanTemporal(lib)

	lib["inForce"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return row.OutstandingBalance > 0 && !row.ContractMaturityDate.Before(ctx.AsOf)
	})

	return lib
}

// Compensation builds the predicate library for the compensation-payout line.
func Compensation() Library {
	lib := shared()

	paid := func(row ledger.Row) bool { return row.PayoutAmount > 0 }

	lib["paidThisYear"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.Year.Contains(row.PayoutDate) && paid(row)
	})
	lib["paidThisMonth"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.Month.Contains(row.PayoutDate) && paid(row)
	})
	lib["paidPriorYear"] = rowTest(func(row ledger.Row, ctx *Context) bool {
		return ctx.PriorYear.Contains(row.PayoutDate) && paid(row)
	})
	lib["recovering"] = rowTest(func(row ledger.Row, _ *Context) bool {
		return row.OutstandingBalance > 0
	})

	return lib
}

// Field selectors shared by the library builders.
func enterpriseSize(row ledger.Row) string { return row.EnterpriseSize }
func ownership(row ledger.Row) string      { return row.Ownership }
func newOrRenewal(row ledger.Row) string   { return row.NewOrRenewal }
func riskTier(row ledger.Row) string       { return row.RiskTier }
func productClass(row ledger.Row) string   { return row.ProductClass }
func productSubclass(row ledger.Row) string {
	return row.ProductSubclass
}
func product(row ledger.Row) string        { return row.Product }
func maturityDate(row ledger.Row) time.Time {
	return row.MaturityDate
}
