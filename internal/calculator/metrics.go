package calculator

import "github.com/zxyuan/guarantee-stats/pkg/ledger"

// The metric lists below are the fixed indicator menus the regulatory report
// templates consume. Each line's table is already filtered to that line by
// the upstream classification mapping, so the names carry only the predicate
// segments that discriminate within the line. Order matters only for
// presentation; each entry is evaluated independently.

func traditionalMetrics() []string {
	names := []string{
		"currentYear_nominalLoan",
		"currentYear_medium_nominalLoan",
		"currentYear_smallMicro_nominalLoan",
		"currentYear_customers",
		"currentYear_smallMicro_customers",
		"currentYear_cases",
		"currentYear_smallMicro_cases",
		"sme_outstandingBalance",
		"medium_outstandingBalance",
		"currentYear_actualLoan",
		"new_currentYear_agriSupport_nominalLoan",
		"new_currentYear_agriSupport_fullLiability_nominalLoan",
		"new_currentYear_agriSupport_subsidized_nominalLoan",
		"new_currentYear_agriSupport_customers",
		"currentYear_agriSupport_nominalLoan",
		"currentYear_agriSupport_fullLiability_nominalLoan",
		"currentYear_agriSupport_subsidized_nominalLoan",
		"currentYear_agriSupport_customers",
		"new_currentYear_private_nominalLoan",
		"new_currentYear_private_actualLoan",
		"new_currentYear_private_customers",
		"currentYear_private_nominalLoan",
		"currentYear_private_actualLoan",
		"currentYear_private_customers",
		"outstandingBalance",
		"responsibilityBalance",
		"smallMicro_outstandingBalance",
		"inForce_customers",
		"smallMicro_inForce_customers",
		"microOwner_outstandingBalance",
		"microOwner_inForce_customers",
		"farmHousehold_outstandingBalance",
		"farmHousehold_inForce_customers",
		"agriSupport_outstandingBalance",
		"agriSupport_inForce_customers",
		"lowFeeRate_outstandingBalance",
		"releasedThisMonth_outstandingBalance",
		"releasedThisYear_outstandingBalance",
		"currentYear_stationExpress_nominalLoan",
		"currentMonth_nominalLoan",
		"priorYear_nominalLoan",
	}
	for _, tier := range riskTiers() {
		names = append(names, tier+"_outstandingBalance")
	}
	return names
}

func batchMetrics() []string {
	names := []string{
		"currentYear_nominalLoan",
		"currentYear_actualLoan",
		"currentYear_smallMicro_nominalLoan",
		"currentYear_customers",
		"currentYear_smallMicro_customers",
		"currentYear_cases",
		"currentMonth_nominalLoan",
		"priorYear_nominalLoan",
		"outstandingBalance",
		"responsibilityBalance",
		"smallMicro_outstandingBalance",
		"inForce_customers",
		"smallMicro_inForce_customers",
		"agriSupport_outstandingBalance",
		"agriSupport_inForce_customers",
		"releasedThisMonth_outstandingBalance",
		"releasedThisYear_outstandingBalance",
		"new_currentYear_private_nominalLoan",
		"currentYear_private_nominalLoan",
	}
	for _, tier := range riskTiers() {
		names = append(names, tier+"_outstandingBalance")
	}
	return names
}

func guaranteeLetterMetrics() []string {
	return []string{
		"currentYear_nominalLoan",
		"currentYear_cases",
		"currentYear_customers",
		"currentMonth_nominalLoan",
		"inForce_outstandingBalance",
		"inForce_cases",
		"inForce_customers",
		"smallMicro_inForce_outstandingBalance",
		"smallMicro_inForce_customers",
		"releasedThisYear_outstandingBalance",
		"releasedThisMonth_outstandingBalance",
	}
}

func compensationMetrics() []string {
	return []string{
		"paidThisYear_payout",
		"paidThisYear_cases",
		"paidThisYear_customers",
		"paidThisMonth_payout",
		"paidPriorYear_payout",
		"smallMicro_paidThisYear_payout",
		"recovered",
		"recovering_outstandingBalance",
		"recovering_customers",
	}
}

func riskTiers() []string {
	return []string{
		ledger.TierNormal,
		ledger.TierWatch,
		ledger.TierSubstandard,
		ledger.TierDoubtful,
		ledger.TierLoss,
	}
}
