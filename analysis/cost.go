package analysis

import "math"

// CostKind is the CMS beneficiary-cost cost_type code.
type CostKind int

const (
	Copay       CostKind = 0 // flat dollar amount
	Coinsurance CostKind = 1 // percentage of negotiated cost
	NoCharge    CostKind = 2
)

func (k CostKind) String() string {
	switch k {
	case Copay:
		return "copay"
	case Coinsurance:
		return "coinsurance"
	case NoCharge:
		return "no_charge"
	}
	return "unknown"
}

// CostShare is one beneficiary-cost row for a plan/tier at a coverage
// level, days supply, and pharmacy channel. Amount is nil when the
// source value was non-numeric; such rows are excluded from resolution
// rather than treated as errors.
type CostShare struct {
	PlanKey       string
	Tier          int
	CoverageLevel string
	DaysSupply    int
	Kind          CostKind
	Amount        *float64
}

// ResolvedCost is the human-meaningful reading of a CostShare, combined
// with the plan's negotiated unit cost when one is available.
type ResolvedCost struct {
	Kind CostKind `json:"kind"`

	// Display is the figure shown to a member: dollars for a copay,
	// whole percent for coinsurance, 0 for no-charge.
	Display   float64 `json:"display"`
	IsPercent bool    `json:"is_percent"`

	// UnitCost is the negotiated price used, 0 when unavailable.
	UnitCost    float64 `json:"unit_cost"`
	MemberPays  float64 `json:"member_pays"`
	PlanNetCost float64 `json:"plan_net_cost"`
}

// ResolveCost derives the member-facing cost figure from a coded
// cost-sharing row. Coinsurance amounts appear in the source data under
// two encodings: whole percent (25 = 25%) and fraction (0.25 = 25%);
// values >= 1 are read as whole percent. An amount of exactly 1.0 is
// therefore read as 1%, which is ambiguous against a true 100%
// coinsurance row — a known quirk of the source data, kept rather than
// guessed around.
//
// A missing negotiated price yields zero member-pays and plan-net-cost
// for coinsurance rows; that absence is observable in UnitCost. The
// plan net cost can go negative when the copay exceeds the negotiated
// price; it is surfaced as-is since it flags a data-quality problem.
//
// Returns false when the row's amount is malformed (nil) for a kind
// that needs one; callers drop such rows from aggregates.
func ResolveCost(share CostShare, unitCost *float64) (ResolvedCost, bool) {
	r := ResolvedCost{Kind: share.Kind}
	if unitCost != nil {
		r.UnitCost = *unitCost
	}

	switch share.Kind {
	case NoCharge:
		r.PlanNetCost = r.UnitCost
		return r, true

	case Copay:
		if share.Amount == nil {
			return ResolvedCost{}, false
		}
		r.Display = *share.Amount
		r.MemberPays = *share.Amount
		r.PlanNetCost = r.UnitCost - r.MemberPays
		return r, true

	case Coinsurance:
		if share.Amount == nil {
			return ResolvedCost{}, false
		}
		amt := *share.Amount
		r.IsPercent = true
		if amt >= 1 {
			r.Display = amt
			r.MemberPays = r.UnitCost * amt / 100
		} else {
			r.Display = amt * 100
			r.MemberPays = r.UnitCost * amt
		}
		r.PlanNetCost = r.UnitCost - r.MemberPays
		return r, true
	}

	return ResolvedCost{}, false
}

// MemberCostRow is one plan's cost share for a drug's tier, labeled
// with the plan's canonical company.
type MemberCostRow struct {
	Company string
	PlanKey string
	Kind    CostKind
	Amount  *float64
}

// MemberCostSummary is the per-company member cost-sharing table for
// one drug: how many plans use each cost structure and the average
// figure for each. Percentages are relative to the company's
// plans-with-drug denominator.
type MemberCostSummary struct {
	Company          string  `json:"company"`
	CopayPlans       int     `json:"copay_plans"`
	CopayPct         float64 `json:"copay_pct"`
	AvgCopay         float64 `json:"avg_copay"`
	CoinsurancePlans int     `json:"coinsurance_plans"`
	CoinsurancePct   float64 `json:"coinsurance_pct"`
	AvgCoinsurance   float64 `json:"avg_coinsurance"`
	NoChargePlans    int     `json:"no_charge_plans"`
	NoChargePct      float64 `json:"no_charge_pct"`
}

// SummarizeMemberCosts rolls cost-share rows up by company. totals maps
// company ID to its plans-with-drug denominator. Every configured
// company appears in the output in declaration order; malformed rows
// are skipped. Coinsurance amounts are normalized to display percent
// before averaging so the two source encodings do not skew the mean.
func SummarizeMemberCosts(companies CompanyList, rows []MemberCostRow, totals map[string]int) []MemberCostSummary {
	type acc struct {
		copay, coins, free int
		copaySum, coinsSum float64
	}
	accs := make(map[string]*acc, len(companies))
	for _, c := range companies {
		accs[c.ID] = &acc{}
	}

	for _, row := range rows {
		a, ok := accs[row.Company]
		if !ok {
			continue
		}
		r, ok := ResolveCost(CostShare{Kind: row.Kind, Amount: row.Amount}, nil)
		if !ok {
			continue
		}
		switch row.Kind {
		case Copay:
			a.copay++
			a.copaySum += r.Display
		case Coinsurance:
			a.coins++
			a.coinsSum += r.Display
		case NoCharge:
			a.free++
		}
	}

	out := make([]MemberCostSummary, 0, len(companies))
	for _, c := range companies {
		a := accs[c.ID]
		total := totals[c.ID]
		s := MemberCostSummary{
			Company:          c.ID,
			CopayPlans:       a.copay,
			CopayPct:         Percent(a.copay, total),
			CoinsurancePlans: a.coins,
			CoinsurancePct:   Percent(a.coins, total),
			NoChargePlans:    a.free,
			NoChargePct:      Percent(a.free, total),
		}
		if a.copay > 0 {
			s.AvgCopay = math.Round(a.copaySum/float64(a.copay)*100) / 100
		}
		if a.coins > 0 {
			s.AvgCoinsurance = math.Round(a.coinsSum/float64(a.coins)*10) / 10
		}
		out = append(out, s)
	}
	return out
}
