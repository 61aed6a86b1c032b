package analysis

import "math"

// Plan is the slice of plan_information this subsystem needs: identity,
// owning formulary, and the canonical company label assigned by
// CompanyList.Normalize. Company is empty for unmatched plans, which
// excludes them from every rollup.
type Plan struct {
	ContractID  string
	PlanID      string
	PlanKey     string
	FormularyID string
	Company     string
}

// FormularyEntry is one basic-formulary row for the target drug,
// already restricted to a single (rxcui, ndc) pair by the caller.
type FormularyEntry struct {
	FormularyID        string
	RXCUI              string
	NDC                string
	Tier               int
	PriorAuthorization bool
	StepTherapy        bool
	QuantityLimit      bool
}

// DrugCoverage is the per-company coverage rollup for one drug/NDC.
// Tier and restriction percentages are relative to PlansWithDrug, the
// formulary/plan percentages to the company denominators.
type DrugCoverage struct {
	Company             string  `json:"company"`
	TotalFormularies    int     `json:"total_formularies"`
	TotalPlans          int     `json:"total_plans"`
	FormulariesWithDrug int     `json:"formularies_with_drug"`
	PlansWithDrug       int     `json:"plans_with_drug"`
	FormularyPct        float64 `json:"formulary_pct"`
	PlanPct             float64 `json:"plan_pct"`

	Tier3Count int     `json:"tier3_count"`
	Tier4Count int     `json:"tier4_count"`
	Tier5Count int     `json:"tier5_count"`
	Tier6Count int     `json:"tier6_count"`
	Tier3Pct   float64 `json:"tier3_pct"`
	Tier4Pct   float64 `json:"tier4_pct"`
	Tier5Pct   float64 `json:"tier5_pct"`
	Tier6Pct   float64 `json:"tier6_pct"`

	PACount int     `json:"pa_count"`
	STCount int     `json:"st_count"`
	QLCount int     `json:"ql_count"`
	PAPct   float64 `json:"pa_pct"`
	STPct   float64 `json:"st_pct"`
	QLPct   float64 `json:"ql_pct"`
}

// AggregateCoverage computes the per-company coverage table for one
// target drug/NDC. Every configured company appears in the output in
// declaration order, zero-filled when nothing matched. The result is a
// pure function of its inputs: identical inputs yield identical output.
func AggregateCoverage(companies CompanyList, plans []Plan, entries []FormularyEntry) []DrugCoverage {
	// One entry per formulary at most: (formulary_id, rxcui, ndc) is the
	// formulary-entry key and entries are pre-filtered to one (rxcui, ndc).
	byFormulary := make(map[string]FormularyEntry, len(entries))
	for _, e := range entries {
		byFormulary[e.FormularyID] = e
	}

	type acc struct {
		formularies     map[string]bool
		plans           map[string]bool
		formulariesDrug map[string]bool
		plansDrug       map[string]bool
		tier            [7]int
		pa, st, ql      int
	}
	accs := make(map[string]*acc, len(companies))
	for _, c := range companies {
		accs[c.ID] = &acc{
			formularies:     make(map[string]bool),
			plans:           make(map[string]bool),
			formulariesDrug: make(map[string]bool),
			plansDrug:       make(map[string]bool),
		}
	}

	for _, p := range plans {
		a, ok := accs[p.Company]
		if !ok {
			continue // unmatched or unconfigured company
		}
		planKey := p.ContractID + "|" + p.PlanID
		if p.FormularyID != "" {
			a.formularies[p.FormularyID] = true
		}
		e, covered := byFormulary[p.FormularyID]
		if covered {
			a.formulariesDrug[p.FormularyID] = true
		}
		if a.plans[planKey] {
			continue // segments of the same plan count once
		}
		a.plans[planKey] = true
		if !covered {
			continue
		}
		a.plansDrug[planKey] = true
		if e.Tier >= 3 && e.Tier <= 6 {
			a.tier[e.Tier]++
		}
		if e.PriorAuthorization {
			a.pa++
		}
		if e.StepTherapy {
			a.st++
		}
		if e.QuantityLimit {
			a.ql++
		}
	}

	out := make([]DrugCoverage, 0, len(companies))
	for _, c := range companies {
		a := accs[c.ID]
		cov := DrugCoverage{
			Company:             c.ID,
			TotalFormularies:    len(a.formularies),
			TotalPlans:          len(a.plans),
			FormulariesWithDrug: len(a.formulariesDrug),
			PlansWithDrug:       len(a.plansDrug),
			Tier3Count:          a.tier[3],
			Tier4Count:          a.tier[4],
			Tier5Count:          a.tier[5],
			Tier6Count:          a.tier[6],
			PACount:             a.pa,
			STCount:             a.st,
			QLCount:             a.ql,
		}
		cov.FormularyPct = Percent(cov.FormulariesWithDrug, cov.TotalFormularies)
		cov.PlanPct = Percent(cov.PlansWithDrug, cov.TotalPlans)
		cov.Tier3Pct = Percent(cov.Tier3Count, cov.PlansWithDrug)
		cov.Tier4Pct = Percent(cov.Tier4Count, cov.PlansWithDrug)
		cov.Tier5Pct = Percent(cov.Tier5Count, cov.PlansWithDrug)
		cov.Tier6Pct = Percent(cov.Tier6Count, cov.PlansWithDrug)
		cov.PAPct = Percent(cov.PACount, cov.PlansWithDrug)
		cov.STPct = Percent(cov.STCount, cov.PlansWithDrug)
		cov.QLPct = Percent(cov.QLCount, cov.PlansWithDrug)
		out = append(out, cov)
	}
	return out
}

// Percent returns n/denom as a percentage rounded to one decimal.
// A zero denominator yields 0.0, never NaN or Inf.
func Percent(n, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(denom)) / 10
}

// LabelPlans applies the normalizer to each plan's organization name and
// returns only the plans that mapped to a configured company. rawOrg
// gives the display name to match for a given plan (parent organization
// when enrollment data knows it, contract name otherwise).
func LabelPlans(companies CompanyList, plans []Plan, rawOrg func(Plan) string) []Plan {
	labeled := make([]Plan, 0, len(plans))
	for _, p := range plans {
		id, ok := companies.Normalize(rawOrg(p))
		if !ok {
			continue
		}
		p.Company = id
		labeled = append(labeled, p)
	}
	return labeled
}
