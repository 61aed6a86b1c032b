package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parquet-go/parquet-go"
)

// table binds a Parquet dataset to its target PostgreSQL table.
// Optional datasets (quarterly pricing, supplemental coverage) are
// skipped with a log line when the file is absent; the core datasets
// are required.
type table struct {
	name     string
	file     string
	required bool
	load     func(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error)
}

var tables = []table{
	{"plans", "plan_information.parquet", true, loadPlans},
	{"formulary_drugs", "formulary_drugs.parquet", true, loadFormularyDrugs},
	{"beneficiary_costs", "beneficiary_costs.parquet", true, loadBeneficiaryCosts},
	{"geographic", "geographic_locator.parquet", true, loadGeographic},
	{"drug_pricing", "drug_pricing.parquet", false, loadPricing},
	{"excluded_drugs", "excluded_drugs.parquet", false, loadExcludedDrugs},
}

func loadAll(ctx context.Context, pool *pgxpool.Pool, dir, only string, batchSize int) error {
	matched := false
	for _, t := range tables {
		if only != "" && only != t.name {
			continue
		}
		matched = true

		path := filepath.Join(dir, t.file)
		if _, err := os.Stat(path); err != nil {
			if t.required || only == t.name {
				return fmt.Errorf("%s: %w", t.name, err)
			}
			log.Printf("%s: %s not found, skipping", t.name, t.file)
			continue
		}

		start := time.Now()
		n, err := t.load(ctx, pool, path, batchSize)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		log.Printf("%s: %d rows in %s", t.name, n, time.Since(start).Round(time.Millisecond))
	}
	if !matched {
		return fmt.Errorf("unknown dataset %q", only)
	}
	return nil
}

// copyTable streams a Parquet file into a table via COPY. The table is
// truncated first so a reload replaces the previous quarter.
func copyTable[T any](ctx context.Context, pool *pgxpool.Pool, path, tableName string, columns []string, values func(*T) []any, batchSize int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()
	totalRows := reader.NumRows()

	if _, err := pool.Exec(ctx, "TRUNCATE "+tableName); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", tableName, err)
	}

	const readBatch = 8192
	buf := make([]T, readBatch)
	pending := make([][]any, 0, batchSize)

	var loaded int64
	start := time.Now()
	lastLog := start

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := pool.CopyFrom(ctx, pgx.Identifier{tableName}, columns, pgx.CopyFromRows(pending))
		if err != nil {
			return fmt.Errorf("copy %s: %w", tableName, err)
		}
		loaded += n
		pending = pending[:0]
		return nil
	}

	for {
		n, readErr := reader.Read(buf)

		for i := 0; i < n; i++ {
			pending = append(pending, values(&buf[i]))
			if len(pending) >= batchSize {
				if err := flush(); err != nil {
					return loaded, err
				}
			}
			if time.Since(lastLog) >= 5*time.Second {
				elapsed := time.Since(start).Seconds()
				done := loaded + int64(len(pending))
				pct := float64(done) / float64(totalRows) * 100
				log.Printf("  %s: %d/%d rows (%.1f%%, %.0f rows/s)",
					tableName, done, totalRows, pct, float64(done)/elapsed)
				lastLog = time.Now()
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return loaded, fmt.Errorf("read parquet: %w", readErr)
		}
	}

	if err := flush(); err != nil {
		return loaded, err
	}
	return loaded, nil
}

func loadPlans(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{
		"contract_id", "plan_id", "segment_id", "plan_key",
		"contract_name", "plan_name", "formulary_id", "state", "county_code",
		"premium", "deductible", "snp",
	}
	return copyTable(ctx, pool, path, "plans", columns, func(r *PlanRow) []any {
		return []any{
			r.ContractID, r.PlanID, r.SegmentID, r.PlanKey,
			r.ContractName, r.PlanName, r.FormularyID, r.State, r.CountyCode,
			r.Premium, r.Deductible, r.SNP,
		}
	}, batchSize)
}

func loadFormularyDrugs(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{
		"formulary_id", "rxcui", "ndc", "tier",
		"prior_authorization", "step_therapy", "quantity_limit",
	}
	return copyTable(ctx, pool, path, "formulary_drugs", columns, func(r *FormularyDrugRow) []any {
		return []any{
			r.FormularyID, r.RXCUI, r.NDC, r.Tier,
			r.PriorAuthorization, r.StepTherapy, r.QuantityLimit,
		}
	}, batchSize)
}

func loadBeneficiaryCosts(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{
		"contract_id", "plan_id", "segment_id", "plan_key",
		"coverage_level", "tier", "days_supply",
		"cost_type_pref", "cost_amt_pref", "cost_min_amt_pref", "cost_max_amt_pref",
		"cost_type_mail_pref", "cost_amt_mail_pref", "tier_specialty",
	}
	return copyTable(ctx, pool, path, "beneficiary_costs", columns, func(r *BeneficiaryCostRow) []any {
		return []any{
			r.ContractID, r.PlanID, r.SegmentID, r.PlanKey,
			r.CoverageLevel, r.Tier, r.DaysSupply,
			r.CostTypePref, r.CostAmtPref, r.CostMinAmtPref, r.CostMaxAmtPref,
			r.CostTypeMailPref, r.CostAmtMailPref, r.TierSpecialty,
		}
	}, batchSize)
}

func loadPricing(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{"plan_key", "ndc", "days_supply", "unit_cost", "contract_id", "plan_id"}
	return copyTable(ctx, pool, path, "drug_pricing", columns, func(r *PricingRow) []any {
		return []any{r.PlanKey, r.NDC, r.DaysSupply, r.UnitCost, r.ContractID, r.PlanID}
	}, batchSize)
}

func loadGeographic(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{"county_code", "statename", "county"}
	return copyTable(ctx, pool, path, "geographic", columns, func(r *GeographicRow) []any {
		return []any{r.CountyCode, r.StateName, r.County}
	}, batchSize)
}

func loadExcludedDrugs(ctx context.Context, pool *pgxpool.Pool, path string, batchSize int) (int64, error) {
	columns := []string{"contract_id", "plan_id", "segment_id", "plan_key", "rxcui", "tier", "quantity_limit"}
	return copyTable(ctx, pool, path, "excluded_drugs", columns, func(r *ExcludedDrugRow) []any {
		return []any{r.ContractID, r.PlanID, r.SegmentID, r.PlanKey, r.RXCUI, r.Tier, r.QuantityLimit}
	}, batchSize)
}
