package main

// Typed Parquet rows for the quarterly CMS Part D public-use datasets.
// One struct per output file, column names matching the lower_snake
// source headers so downstream SQL reads naturally.
//
// Layout notes:
//
//   - Join keys and identifiers first, amounts second, flags last.
//     Engines reading column chunks sequentially get better page-cache
//     locality on the common filter/join patterns.
//
//   - Identifier columns (contract_id, formulary_id, state) repeat
//     heavily and dictionary-encode to near-zero.
//
//   - Optional (*type) fields use the Parquet null bitmap; a malformed
//     numeric in the source arrives here as nil and lands as NULL.

// PlanRow is one plan_information row: a plan offered in one county.
// plan_key = contract_id|plan_id|segment_id is the canonical join key
// against beneficiary costs and pricing.
type PlanRow struct {
	ContractID   string `parquet:"contract_id"`
	PlanID       string `parquet:"plan_id"`
	SegmentID    string `parquet:"segment_id"`
	PlanKey      string `parquet:"plan_key"`
	ContractName string `parquet:"contract_name"`
	PlanName     string `parquet:"plan_name"`
	FormularyID  string `parquet:"formulary_id"`
	State        string `parquet:"state"`
	CountyCode   string `parquet:"county_code"`

	Premium    *float64 `parquet:"premium,optional"`
	Deductible *float64 `parquet:"deductible,optional"`

	SNP string `parquet:"snp"`
}

// FormularyDrugRow is one basic-formulary entry: a drug/package on a
// formulary at a tier, with utilization-management flags already
// decoded from their Y/N source columns.
type FormularyDrugRow struct {
	FormularyID string `parquet:"formulary_id"`
	RXCUI       string `parquet:"rxcui"`
	NDC         string `parquet:"ndc"`

	Tier *int32 `parquet:"tier_level_value,optional"`

	PriorAuthorization bool `parquet:"prior_authorization"`
	StepTherapy        bool `parquet:"step_therapy"`
	QuantityLimit      bool `parquet:"quantity_limit"`
}

// BeneficiaryCostRow is one cost-sharing row: what a member pays for a
// tier under a plan at a coverage level and days supply, at the
// preferred retail and preferred mail channels. cost_type codes:
// 0 copay, 1 coinsurance, 2 no charge.
type BeneficiaryCostRow struct {
	ContractID string `parquet:"contract_id"`
	PlanID     string `parquet:"plan_id"`
	SegmentID  string `parquet:"segment_id"`
	PlanKey    string `parquet:"plan_key"`

	CoverageLevel string `parquet:"coverage_level"`
	Tier          *int32 `parquet:"tier,optional"`
	DaysSupply    *int32 `parquet:"days_supply,optional"`

	CostTypePref   *int32   `parquet:"cost_type_pref,optional"`
	CostAmtPref    *float64 `parquet:"cost_amt_pref,optional"`
	CostMinAmtPref *float64 `parquet:"cost_min_amt_pref,optional"`
	CostMaxAmtPref *float64 `parquet:"cost_max_amt_pref,optional"`

	CostTypeMailPref *int32   `parquet:"cost_type_mail_pref,optional"`
	CostAmtMailPref  *float64 `parquet:"cost_amt_mail_pref,optional"`

	TierSpecialty bool `parquet:"tier_specialty"`
}

// PricingRow is one negotiated-price row from the quarterly pricing
// file (~55M rows): the plan's unit cost for an NDC at a days supply.
type PricingRow struct {
	PlanKey    string   `parquet:"plan_key"`
	NDC        string   `parquet:"ndc"`
	DaysSupply *int32   `parquet:"days_supply,optional"`
	UnitCost   *float64 `parquet:"unit_cost,optional"`
	ContractID string   `parquet:"contract_id"`
	PlanID     string   `parquet:"plan_id"`
}

// GeographicRow maps a county code to its state and county names.
type GeographicRow struct {
	CountyCode string `parquet:"county_code"`
	StateName  string `parquet:"statename"`
	County     string `parquet:"county"`
}

// ExcludedDrugRow is one supplemental-coverage entry: a Part D excluded
// drug a plan covers anyway, with its tier and quantity limit.
type ExcludedDrugRow struct {
	ContractID string `parquet:"contract_id"`
	PlanID     string `parquet:"plan_id"`
	SegmentID  string `parquet:"segment_id"`
	PlanKey    string `parquet:"plan_key"`

	RXCUI string `parquet:"rxcui"`
	Tier  *int32 `parquet:"tier,optional"`

	QuantityLimit bool `parquet:"quantity_limit"`
}
