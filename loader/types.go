package main

// Parquet row types for the converted datasets. These mirror the
// converter's output schema; column tags must stay in sync with the
// files it writes.

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

type FormularyDrugRow struct {
	FormularyID string `parquet:"formulary_id"`
	RXCUI       string `parquet:"rxcui"`
	NDC         string `parquet:"ndc"`

	Tier *int32 `parquet:"tier_level_value,optional"`

	PriorAuthorization bool `parquet:"prior_authorization"`
	StepTherapy        bool `parquet:"step_therapy"`
	QuantityLimit      bool `parquet:"quantity_limit"`
}

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

type PricingRow struct {
	PlanKey    string   `parquet:"plan_key"`
	NDC        string   `parquet:"ndc"`
	DaysSupply *int32   `parquet:"days_supply,optional"`
	UnitCost   *float64 `parquet:"unit_cost,optional"`
	ContractID string   `parquet:"contract_id"`
	PlanID     string   `parquet:"plan_id"`
}

type GeographicRow struct {
	CountyCode string `parquet:"county_code"`
	StateName  string `parquet:"statename"`
	County     string `parquet:"county"`
}

type ExcludedDrugRow struct {
	ContractID string `parquet:"contract_id"`
	PlanID     string `parquet:"plan_id"`
	SegmentID  string `parquet:"segment_id"`
	PlanKey    string `parquet:"plan_key"`

	RXCUI string `parquet:"rxcui"`
	Tier  *int32 `parquet:"tier,optional"`

	QuantityLimit bool `parquet:"quantity_limit"`
}
