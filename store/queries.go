package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Stats are the global dataset counts.
type Stats struct {
	TotalFormularies   int64 `json:"total_formularies"`
	TotalPlans         int64 `json:"total_plans"`
	TotalDrugs         int64 `json:"total_drugs"`
	TotalOrganizations int64 `json:"total_organizations"`
}

const statsSQL = `
SELECT
    (SELECT COUNT(DISTINCT formulary_id) FROM plans WHERE formulary_id IS NOT NULL),
    (SELECT COUNT(DISTINCT contract_id || '-' || plan_id) FROM plans),
    (SELECT COUNT(DISTINCT rxcui) FROM formulary_drugs),
    (SELECT COUNT(DISTINCT contract_name) FROM plans WHERE contract_name IS NOT NULL)
`

func (q *Queries) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := q.db.QueryRow(ctx, statsSQL).Scan(
		&s.TotalFormularies, &s.TotalPlans, &s.TotalDrugs, &s.TotalOrganizations)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

// FormularySummaryRow is one formulary with its owning organization
// and footprint.
type FormularySummaryRow struct {
	FormularyID string `json:"formulary_id"`
	OrgCount    int64  `json:"org_count"`
	ParentOrg   string `json:"parent_org"`
	PlanCount   int64  `json:"plan_count"`
	StateCount  int64  `json:"state_count"`
}

const listFormulariesSQL = `
SELECT
    formulary_id,
    COUNT(DISTINCT contract_name) AS org_count,
    MAX(contract_name) AS parent_org,
    COUNT(*) AS plan_count,
    COUNT(DISTINCT state) AS state_count
FROM plans
WHERE formulary_id IS NOT NULL AND formulary_id <> ''
  AND ($1 = '' OR contract_name ILIKE '%' || $1 || '%')
GROUP BY formulary_id
ORDER BY plan_count DESC
`

// ListFormularies returns every formulary, optionally filtered to
// organizations whose name contains orgFilter (case-insensitive).
func (q *Queries) ListFormularies(ctx context.Context, orgFilter string) ([]FormularySummaryRow, error) {
	rows, err := q.db.Query(ctx, listFormulariesSQL, orgFilter)
	if err != nil {
		return nil, fmt.Errorf("list formularies: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (FormularySummaryRow, error) {
		var f FormularySummaryRow
		err := r.Scan(&f.FormularyID, &f.OrgCount, &f.ParentOrg, &f.PlanCount, &f.StateCount)
		return f, err
	})
}

// OrganizationRow is one contracting organization with its footprint.
type OrganizationRow struct {
	Organization   string `json:"organization"`
	FormularyCount int64  `json:"formulary_count"`
	PlanCount      int64  `json:"plan_count"`
}

const listOrganizationsSQL = `
SELECT
    contract_name AS organization,
    COUNT(DISTINCT formulary_id) AS formulary_count,
    COUNT(*) AS plan_count
FROM plans
WHERE contract_name IS NOT NULL AND contract_name <> ''
GROUP BY contract_name
ORDER BY plan_count DESC
`

func (q *Queries) ListOrganizations(ctx context.Context) ([]OrganizationRow, error) {
	rows, err := q.db.Query(ctx, listOrganizationsSQL)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (OrganizationRow, error) {
		var o OrganizationRow
		err := r.Scan(&o.Organization, &o.FormularyCount, &o.PlanCount)
		return o, err
	})
}

const organizationTotalsSQL = `
SELECT
    contract_name,
    COUNT(DISTINCT formulary_id) AS total_formularies,
    COUNT(DISTINCT contract_id || '-' || plan_id) AS total_plans
FROM plans
WHERE contract_name ILIKE ANY($1)
GROUP BY contract_name
ORDER BY contract_name
`

// OrganizationTotals returns footprints for organizations whose name
// matches any of the given patterns.
func (q *Queries) OrganizationTotals(ctx context.Context, patterns []string) ([]OrganizationRow, error) {
	rows, err := q.db.Query(ctx, organizationTotalsSQL, patterns)
	if err != nil {
		return nil, fmt.Errorf("organization totals: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (OrganizationRow, error) {
		var o OrganizationRow
		err := r.Scan(&o.Organization, &o.FormularyCount, &o.PlanCount)
		return o, err
	})
}

// CandidatePlan is one plan (plan_key granularity, county rows
// collapsed) whose organization name matched a normalizer token.
type CandidatePlan struct {
	ContractID   string
	PlanID       string
	PlanKey      string
	FormularyID  string
	ContractName string
}

const candidatePlansSQL = `
SELECT DISTINCT contract_id, plan_id, plan_key, formulary_id, contract_name
FROM plans
WHERE contract_name ILIKE ANY($1)
  AND formulary_id IS NOT NULL AND formulary_id <> ''
`

// CandidatePlans returns the plans whose organization name contains
// any of the given tokens; the normalizer assigns the final company.
func (q *Queries) CandidatePlans(ctx context.Context, tokens []string) ([]CandidatePlan, error) {
	patterns := make([]string, len(tokens))
	for i, t := range tokens {
		patterns[i] = "%" + t + "%"
	}
	rows, err := q.db.Query(ctx, candidatePlansSQL, patterns)
	if err != nil {
		return nil, fmt.Errorf("candidate plans: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (CandidatePlan, error) {
		var p CandidatePlan
		err := r.Scan(&p.ContractID, &p.PlanID, &p.PlanKey, &p.FormularyID, &p.ContractName)
		return p, err
	})
}

// TierCount is the drug count at one tier of a formulary.
type TierCount struct {
	Tier      *int32 `json:"tier"`
	DrugCount int64  `json:"drug_count"`
}

const formularyTierCountsSQL = `
SELECT tier, COUNT(DISTINCT rxcui) AS drug_count
FROM formulary_drugs
WHERE formulary_id = $1
GROUP BY tier
ORDER BY tier
`

func (q *Queries) FormularyTierCounts(ctx context.Context, formularyID string) ([]TierCount, error) {
	rows, err := q.db.Query(ctx, formularyTierCountsSQL, formularyID)
	if err != nil {
		return nil, fmt.Errorf("formulary tier counts: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (TierCount, error) {
		var t TierCount
		err := r.Scan(&t.Tier, &t.DrugCount)
		return t, err
	})
}

// Restrictions summarize utilization management across a formulary.
type Restrictions struct {
	PriorAuthCount     int64 `json:"prior_auth_count"`
	StepTherapyCount   int64 `json:"step_therapy_count"`
	QuantityLimitCount int64 `json:"quantity_limit_count"`
	TotalDrugs         int64 `json:"total_drugs"`
}

const formularyRestrictionsSQL = `
SELECT
    COUNT(*) FILTER (WHERE prior_authorization),
    COUNT(*) FILTER (WHERE step_therapy),
    COUNT(*) FILTER (WHERE quantity_limit),
    COUNT(DISTINCT rxcui)
FROM formulary_drugs
WHERE formulary_id = $1
`

func (q *Queries) FormularyRestrictions(ctx context.Context, formularyID string) (Restrictions, error) {
	var res Restrictions
	err := q.db.QueryRow(ctx, formularyRestrictionsSQL, formularyID).Scan(
		&res.PriorAuthCount, &res.StepTherapyCount, &res.QuantityLimitCount, &res.TotalDrugs)
	if err != nil {
		return Restrictions{}, fmt.Errorf("formulary restrictions: %w", err)
	}
	return res, nil
}

// Geography is a formulary's plan footprint.
type Geography struct {
	PlanCount   int64 `json:"plan_count"`
	StateCount  int64 `json:"state_count"`
	CountyCount int64 `json:"county_count"`
}

const formularyGeographySQL = `
SELECT
    COUNT(DISTINCT contract_id || '-' || plan_id),
    COUNT(DISTINCT state),
    COUNT(DISTINCT county_code)
FROM plans
WHERE formulary_id = $1
`

func (q *Queries) FormularyGeography(ctx context.Context, formularyID string) (Geography, error) {
	var g Geography
	err := q.db.QueryRow(ctx, formularyGeographySQL, formularyID).Scan(
		&g.PlanCount, &g.StateCount, &g.CountyCount)
	if err != nil {
		return Geography{}, fmt.Errorf("formulary geography: %w", err)
	}
	return g, nil
}

// FormularyParent is the organization behind a formulary.
type FormularyParent struct {
	ContractID  string `json:"contract_id"`
	ParentOrg   string `json:"parent_org"`
	EntityCount int64  `json:"entity_count"`
}

const formularyParentSQL = `
SELECT contract_id, MAX(contract_name), COUNT(DISTINCT contract_name)
FROM plans
WHERE formulary_id = $1
GROUP BY contract_id
ORDER BY COUNT(*) DESC
LIMIT 1
`

func (q *Queries) FormularyParent(ctx context.Context, formularyID string) (FormularyParent, error) {
	var p FormularyParent
	err := q.db.QueryRow(ctx, formularyParentSQL, formularyID).Scan(
		&p.ContractID, &p.ParentOrg, &p.EntityCount)
	if err == pgx.ErrNoRows {
		return FormularyParent{}, nil
	}
	if err != nil {
		return FormularyParent{}, fmt.Errorf("formulary parent: %w", err)
	}
	return p, nil
}

// SpecialtySummary covers tiers 5 and 6 of a formulary.
type SpecialtySummary struct {
	SpecialtyDrugCount int64 `json:"specialty_drug_count"`
	SpecialtyPACount   int64 `json:"specialty_pa_count"`
}

const formularySpecialtySQL = `
SELECT COUNT(DISTINCT rxcui), COUNT(*) FILTER (WHERE prior_authorization)
FROM formulary_drugs
WHERE formulary_id = $1 AND tier IN (5, 6)
`

func (q *Queries) FormularySpecialty(ctx context.Context, formularyID string) (SpecialtySummary, error) {
	var s SpecialtySummary
	err := q.db.QueryRow(ctx, formularySpecialtySQL, formularyID).Scan(
		&s.SpecialtyDrugCount, &s.SpecialtyPACount)
	if err != nil {
		return SpecialtySummary{}, fmt.Errorf("formulary specialty: %w", err)
	}
	return s, nil
}

// DrugRow is one formulary entry.
type DrugRow struct {
	RXCUI              string `json:"rxcui"`
	NDC                string `json:"ndc"`
	Tier               *int32 `json:"tier"`
	PriorAuthorization bool   `json:"prior_authorization"`
	StepTherapy        bool   `json:"step_therapy"`
	QuantityLimit      bool   `json:"quantity_limit"`
}

const formularyDrugsSQL = `
SELECT rxcui, ndc, tier, prior_authorization, step_therapy, quantity_limit
FROM formulary_drugs
WHERE formulary_id = $1
  AND ($2::int IS NULL OR tier = $2)
  AND (NOT $3 OR tier IN (5, 6))
ORDER BY tier, rxcui
LIMIT $4
`

// FormularyDrugs lists a formulary's entries, optionally restricted to
// one tier or to the specialty tiers.
func (q *Queries) FormularyDrugs(ctx context.Context, formularyID string, tier *int32, specialtyOnly bool, limit int32) ([]DrugRow, error) {
	rows, err := q.db.Query(ctx, formularyDrugsSQL, formularyID, tier, specialtyOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("formulary drugs: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (DrugRow, error) {
		var d DrugRow
		err := r.Scan(&d.RXCUI, &d.NDC, &d.Tier, &d.PriorAuthorization, &d.StepTherapy, &d.QuantityLimit)
		return d, err
	})
}

// StateRow is a formulary's footprint in one state.
type StateRow struct {
	State         string   `json:"state"`
	PlanCount     int64    `json:"plan_count"`
	AvgPremium    *float64 `json:"avg_premium"`
	AvgDeductible *float64 `json:"avg_deductible"`
}

const formularyStatesSQL = `
SELECT
    state,
    COUNT(DISTINCT contract_id || '-' || plan_id) AS plan_count,
    AVG(premium),
    AVG(deductible)
FROM plans
WHERE formulary_id = $1
GROUP BY state
ORDER BY plan_count DESC
`

func (q *Queries) FormularyStates(ctx context.Context, formularyID string) ([]StateRow, error) {
	rows, err := q.db.Query(ctx, formularyStatesSQL, formularyID)
	if err != nil {
		return nil, fmt.Errorf("formulary states: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (StateRow, error) {
		var s StateRow
		err := r.Scan(&s.State, &s.PlanCount, &s.AvgPremium, &s.AvgDeductible)
		return s, err
	})
}

const drugNDCsSQL = `
SELECT DISTINCT ndc
FROM formulary_drugs
WHERE rxcui = $1 AND ndc IS NOT NULL AND ndc <> ''
ORDER BY ndc
`

// DrugNDCs lists the package codes under one drug code; each NDC is a
// different dosage or strength.
func (q *Queries) DrugNDCs(ctx context.Context, rxcui string) ([]string, error) {
	rows, err := q.db.Query(ctx, drugNDCsSQL, rxcui)
	if err != nil {
		return nil, fmt.Errorf("drug ndcs: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (string, error) {
		var ndc string
		err := r.Scan(&ndc)
		return ndc, err
	})
}

// FormularyEntry is a formulary's entry for one (rxcui, ndc) pair.
type FormularyEntry struct {
	FormularyID        string
	Tier               *int32
	PriorAuthorization bool
	StepTherapy        bool
	QuantityLimit      bool
}

const drugEntriesSQL = `
SELECT DISTINCT formulary_id, tier, prior_authorization, step_therapy, quantity_limit
FROM formulary_drugs
WHERE rxcui = $1 AND ($2 = '' OR ndc = $2)
`

// DrugEntries returns the formularies carrying a drug. An empty ndc
// matches any package, which is how drug-level plan totals are built.
func (q *Queries) DrugEntries(ctx context.Context, rxcui, ndc string) ([]FormularyEntry, error) {
	rows, err := q.db.Query(ctx, drugEntriesSQL, rxcui, ndc)
	if err != nil {
		return nil, fmt.Errorf("drug entries: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (FormularyEntry, error) {
		var e FormularyEntry
		err := r.Scan(&e.FormularyID, &e.Tier, &e.PriorAuthorization, &e.StepTherapy, &e.QuantityLimit)
		return e, err
	})
}

// CostShareRow is one preferred-retail cost-sharing row.
type CostShareRow struct {
	PlanKey  string
	CostType *int32
	CostAmt  *float64
}

const costSharesSQL = `
SELECT plan_key, cost_type_pref, cost_amt_pref
FROM beneficiary_costs
WHERE plan_key = ANY($1)
  AND tier = $2
  AND coverage_level = $3
  AND days_supply = $4
`

// CostShares returns the preferred-retail cost sharing for the given
// plans at one tier. Callers pass coverage level "1" (initial
// coverage) and a 30 days supply for the standard comparison.
func (q *Queries) CostShares(ctx context.Context, planKeys []string, tier int32, coverageLevel string, daysSupply int32) ([]CostShareRow, error) {
	rows, err := q.db.Query(ctx, costSharesSQL, planKeys, tier, coverageLevel, daysSupply)
	if err != nil {
		return nil, fmt.Errorf("cost shares: %w", err)
	}
	return collect(rows, func(r pgx.Rows) (CostShareRow, error) {
		var c CostShareRow
		err := r.Scan(&c.PlanKey, &c.CostType, &c.CostAmt)
		return c, err
	})
}

// PricingStats summarize negotiated unit costs across plans.
type PricingStats struct {
	PlanCount   int64    `json:"plan_count"`
	AvgUnitCost *float64 `json:"avg_unit_cost"`
	MinUnitCost *float64 `json:"min_unit_cost"`
	MaxUnitCost *float64 `json:"max_unit_cost"`
}

const ndcPricingSQL = `
SELECT COUNT(*), AVG(unit_cost), MIN(unit_cost), MAX(unit_cost)
FROM drug_pricing
WHERE plan_key = ANY($1) AND ndc = $2 AND days_supply = $3
`

// NDCPricing summarizes the negotiated unit cost for one package
// across the given plans at a days supply.
func (q *Queries) NDCPricing(ctx context.Context, planKeys []string, ndc string, daysSupply int32) (PricingStats, error) {
	var p PricingStats
	err := q.db.QueryRow(ctx, ndcPricingSQL, planKeys, ndc, daysSupply).Scan(
		&p.PlanCount, &p.AvgUnitCost, &p.MinUnitCost, &p.MaxUnitCost)
	if err != nil {
		return PricingStats{}, fmt.Errorf("ndc pricing: %w", err)
	}
	return p, nil
}

// NDCAvgCost is the average negotiated unit cost of one package across
// a formulary's plans.
type NDCAvgCost struct {
	NDC     string
	AvgCost float64
}

const formularyNDCAvgCostsSQL = `
SELECT dp.ndc, AVG(dp.unit_cost)
FROM drug_pricing dp
JOIN (SELECT DISTINCT plan_key FROM plans WHERE formulary_id = $1) p
  ON dp.plan_key = p.plan_key
WHERE dp.unit_cost IS NOT NULL
GROUP BY dp.ndc
`

func (q *Queries) FormularyNDCAvgCosts(ctx context.Context, formularyID string) (map[string]float64, error) {
	rows, err := q.db.Query(ctx, formularyNDCAvgCostsSQL, formularyID)
	if err != nil {
		return nil, fmt.Errorf("formulary ndc costs: %w", err)
	}
	list, err := collect(rows, func(r pgx.Rows) (NDCAvgCost, error) {
		var c NDCAvgCost
		err := r.Scan(&c.NDC, &c.AvgCost)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, c := range list {
		out[c.NDC] = c.AvgCost
	}
	return out, nil
}

const lowestTierCostShareSQL = `
SELECT bc.plan_key, bc.cost_type_pref, bc.cost_amt_pref
FROM beneficiary_costs bc
JOIN (SELECT DISTINCT plan_key FROM plans WHERE formulary_id = $1) p
  ON bc.plan_key = p.plan_key
WHERE bc.coverage_level = '1'
  AND bc.tier = $2
  AND bc.days_supply = $3
  AND bc.cost_amt_pref IS NOT NULL
ORDER BY bc.cost_amt_pref ASC
LIMIT 1
`

// LowestTierCostShare returns the cheapest preferred-retail cost share
// among a formulary's plans for one tier, or false when no plan has
// cost data for that tier.
func (q *Queries) LowestTierCostShare(ctx context.Context, formularyID string, tier, daysSupply int32) (CostShareRow, bool, error) {
	var c CostShareRow
	err := q.db.QueryRow(ctx, lowestTierCostShareSQL, formularyID, tier, daysSupply).Scan(
		&c.PlanKey, &c.CostType, &c.CostAmt)
	if err == pgx.ErrNoRows {
		return CostShareRow{}, false, nil
	}
	if err != nil {
		return CostShareRow{}, false, fmt.Errorf("lowest tier cost share: %w", err)
	}
	return c, true, nil
}

// collect drains a pgx row set through a scan function.
func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
