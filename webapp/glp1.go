package main

import (
	"context"
	"fmt"
	"log"

	"partdtool/analysis"
	"partdtool/store"
)

// GLP1Drug is one tracked drug: display name and RxNorm concept code.
type GLP1Drug struct {
	Name  string `json:"name"`
	RXCUI string `json:"rxcui"`
}

// DefaultGLP1Drugs is the tracked GLP-1 set in display order.
var DefaultGLP1Drugs = []GLP1Drug{
	{Name: "Ozempic", RXCUI: "2398842"},
	{Name: "Wegovy", RXCUI: "2553603"},
	{Name: "Rybelsus", RXCUI: "2619154"},
	{Name: "Mounjaro", RXCUI: "2601776"},
	{Name: "Trulicity", RXCUI: "1551306"},
	{Name: "Victoza", RXCUI: "897126"},
}

// Comparison conventions: initial coverage phase at a preferred retail
// pharmacy, 30 days supply.
const (
	initialCoverage    = "1"
	standardDaysSupply = 30
)

// labeledPlans fetches the candidate plans whose organization name
// contains any company alias and labels each with its canonical
// company. Unmatched candidates are dropped.
func (s *server) labeledPlans(ctx context.Context) ([]analysis.Plan, error) {
	candidates, err := s.q.CandidatePlans(ctx, s.companies.Tokens())
	if err != nil {
		return nil, fmt.Errorf("candidate plans: %w", err)
	}

	plans := make([]analysis.Plan, len(candidates))
	names := make(map[string]string, len(candidates))
	for i, c := range candidates {
		plans[i] = analysis.Plan{
			ContractID:  c.ContractID,
			PlanID:      c.PlanID,
			PlanKey:     c.PlanKey,
			FormularyID: c.FormularyID,
		}
		names[c.PlanKey] = c.ContractName
	}
	return analysis.LabelPlans(s.companies, plans, func(p analysis.Plan) string {
		return names[p.PlanKey]
	}), nil
}

// drugNDCRow is the master-table block for one (drug, package) pair.
type drugNDCRow struct {
	Drug      string                  `json:"drug"`
	RXCUI     string                  `json:"rxcui"`
	NDC       string                  `json:"ndc"`
	Companies []analysis.DrugCoverage `json:"companies"`
}

// masterTable builds the per-NDC coverage comparison for every tracked
// drug. A failed lookup for one drug degrades to zero-filled rows for
// that drug rather than failing the whole response.
func (s *server) masterTable(ctx context.Context, plans []analysis.Plan) []drugNDCRow {
	var out []drugNDCRow
	for _, drug := range s.drugs {
		ndcs, err := s.q.DrugNDCs(ctx, drug.RXCUI)
		if err != nil {
			log.Printf("glp1 master-table: %s ndcs: %v", drug.Name, err)
			out = append(out, drugNDCRow{
				Drug:      drug.Name,
				RXCUI:     drug.RXCUI,
				Companies: analysis.AggregateCoverage(s.companies, plans, nil),
			})
			continue
		}
		for _, ndc := range ndcs {
			entries, err := s.drugEntries(ctx, drug.RXCUI, ndc)
			if err != nil {
				log.Printf("glp1 master-table: %s/%s entries: %v", drug.Name, ndc, err)
				entries = nil
			}
			out = append(out, drugNDCRow{
				Drug:      drug.Name,
				RXCUI:     drug.RXCUI,
				NDC:       ndc,
				Companies: analysis.AggregateCoverage(s.companies, plans, entries),
			})
		}
	}
	return out
}

func (s *server) drugEntries(ctx context.Context, rxcui, ndc string) ([]analysis.FormularyEntry, error) {
	rows, err := s.q.DrugEntries(ctx, rxcui, ndc)
	if err != nil {
		return nil, err
	}
	entries := make([]analysis.FormularyEntry, 0, len(rows))
	for _, r := range rows {
		e := analysis.FormularyEntry{
			FormularyID:        r.FormularyID,
			RXCUI:              rxcui,
			NDC:                ndc,
			PriorAuthorization: r.PriorAuthorization,
			StepTherapy:        r.StepTherapy,
			QuantityLimit:      r.QuantityLimit,
		}
		if r.Tier != nil {
			e.Tier = int(*r.Tier)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// pricingRow is one (drug, package, company) negotiated-price summary
// at the standard days supply.
type pricingRow struct {
	Drug    string `json:"drug"`
	RXCUI   string `json:"rxcui"`
	NDC     string `json:"ndc"`
	Company string `json:"company"`
	store.PricingStats
}

func (s *server) pricingTable(ctx context.Context, plans []analysis.Plan) []pricingRow {
	keysByCompany := make(map[string][]string)
	for _, p := range plans {
		keysByCompany[p.Company] = append(keysByCompany[p.Company], p.PlanKey)
	}

	var out []pricingRow
	for _, drug := range s.drugs {
		ndcs, err := s.q.DrugNDCs(ctx, drug.RXCUI)
		if err != nil {
			log.Printf("glp1 pricing: %s ndcs: %v", drug.Name, err)
			continue
		}
		for _, ndc := range ndcs {
			for _, c := range s.companies {
				row := pricingRow{Drug: drug.Name, RXCUI: drug.RXCUI, NDC: ndc, Company: c.ID}
				keys := keysByCompany[c.ID]
				if len(keys) > 0 {
					stats, err := s.q.NDCPricing(ctx, keys, ndc, standardDaysSupply)
					if err != nil {
						log.Printf("glp1 pricing: %s/%s %s: %v", drug.Name, ndc, c.ID, err)
					} else {
						row.PricingStats = stats
					}
				}
				out = append(out, row)
			}
		}
	}
	return out
}

// memberCostTable is the per-company cost-sharing comparison for one
// tracked drug.
type memberCostTable struct {
	Drug      string                       `json:"drug"`
	RXCUI     string                       `json:"rxcui"`
	Companies []analysis.MemberCostSummary `json:"companies"`
}

// memberCosts joins each company's plans to the drug's formulary
// entries at any package, then resolves the preferred-retail cost
// sharing for each plan at the drug's tier.
func (s *server) memberCosts(ctx context.Context, plans []analysis.Plan) []memberCostTable {
	companyByKey := make(map[string]string, len(plans))
	for _, p := range plans {
		companyByKey[p.PlanKey] = p.Company
	}

	out := make([]memberCostTable, 0, len(s.drugs))
	for _, drug := range s.drugs {
		table := memberCostTable{Drug: drug.Name, RXCUI: drug.RXCUI}

		entries, err := s.drugEntries(ctx, drug.RXCUI, "")
		if err != nil {
			log.Printf("glp1 member-costs: %s entries: %v", drug.Name, err)
			table.Companies = analysis.SummarizeMemberCosts(s.companies, nil, nil)
			out = append(out, table)
			continue
		}
		tierByFormulary := make(map[string]int, len(entries))
		for _, e := range entries {
			tierByFormulary[e.FormularyID] = e.Tier
		}

		// Group the covering plans by tier so one cost-share query serves
		// each group. Totals count distinct plans per company.
		keysByTier := make(map[int][]string)
		totals := make(map[string]int)
		counted := make(map[string]bool)
		for _, p := range plans {
			tier, covered := tierByFormulary[p.FormularyID]
			if !covered {
				continue
			}
			keysByTier[tier] = append(keysByTier[tier], p.PlanKey)
			planID := p.ContractID + "|" + p.PlanID
			if !counted[planID] {
				counted[planID] = true
				totals[p.Company]++
			}
		}

		var rows []analysis.MemberCostRow
		for tier, keys := range keysByTier {
			shares, err := s.q.CostShares(ctx, keys, int32(tier), initialCoverage, standardDaysSupply)
			if err != nil {
				log.Printf("glp1 member-costs: %s tier %d: %v", drug.Name, tier, err)
				continue
			}
			for _, sh := range shares {
				if sh.CostType == nil {
					continue
				}
				rows = append(rows, analysis.MemberCostRow{
					Company: companyByKey[sh.PlanKey],
					PlanKey: sh.PlanKey,
					Kind:    analysis.CostKind(*sh.CostType),
					Amount:  sh.CostAmt,
				})
			}
		}

		table.Companies = analysis.SummarizeMemberCosts(s.companies, rows, totals)
		out = append(out, table)
	}
	return out
}

// companyFootprint is one tracked company's overall market presence.
type companyFootprint struct {
	Company          string   `json:"company"`
	Organizations    []string `json:"organizations"`
	TotalFormularies int64    `json:"total_formularies"`
	TotalPlans       int64    `json:"total_plans"`
}

// companyFootprints lists the configured companies with the contracting
// organizations that matched each and their combined footprint. Every
// company appears, zero-filled when nothing matched.
func (s *server) companyFootprints(ctx context.Context) ([]companyFootprint, error) {
	out := make([]companyFootprint, 0, len(s.companies))
	for _, c := range s.companies {
		patterns := make([]string, len(c.Aliases))
		for i, a := range c.Aliases {
			patterns[i] = "%" + a + "%"
		}
		orgs, err := s.q.OrganizationTotals(ctx, patterns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.ID, err)
		}
		fp := companyFootprint{Company: c.ID, Organizations: []string{}}
		for _, o := range orgs {
			// The pattern match is coarser than the normalizer; keep only
			// organizations the normalizer assigns to this company.
			if id, ok := s.companies.Normalize(o.Organization); !ok || id != c.ID {
				continue
			}
			fp.Organizations = append(fp.Organizations, o.Organization)
			fp.TotalFormularies += o.FormularyCount
			fp.TotalPlans += o.PlanCount
		}
		out = append(out, fp)
	}
	return out, nil
}
