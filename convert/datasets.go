package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

const writeBatchSize = 10_000

// dataset describes one quarterly archive and how to convert it.
type dataset struct {
	prefix  string // normalized archive-name prefix
	output  string // output file base name
	convert func(pr *pipeReader, outPath string) (int, error)
}

var datasets = []dataset{
	{prefix: "geographic locator file", output: "geographic_locator", convert: convertGeographic},
	{prefix: "plan information", output: "plan_information", convert: convertPlans},
	{prefix: "beneficiary cost file", output: "beneficiary_costs", convert: convertBeneficiaryCosts},
	{prefix: "excluded drugs formulary file", output: "excluded_drugs", convert: convertExcludedDrugs},
	{prefix: "basic drugs formulary file", output: "formulary_drugs", convert: convertFormularyDrugs},
}

// run locates the dataset's archive, converts it, and logs the result.
func (ds dataset) run(dataDir, outDir string) (int, error) {
	zipPath, err := findArchive(dataDir, ds.prefix)
	if err != nil {
		return 0, err
	}

	pr, err := openArchiveTable(zipPath, false)
	if err != nil {
		return 0, err
	}
	defer pr.Close()

	outPath := filepath.Join(outDir, ds.output+".parquet")
	n, err := ds.convert(pr, outPath)
	if err != nil {
		os.Remove(outPath)
		return n, err
	}

	if fi, err := os.Stat(outPath); err == nil {
		log.Printf("%s: %d rows -> %.1f MB", ds.output, n, float64(fi.Size())/1024/1024)
	}
	return n, nil
}

// convertRows streams source records through build into a Parquet
// writer, batching writes and logging progress every 5 seconds.
func convertRows[T any](pr *pipeReader, outPath, name string, build func([]string) (T, bool)) (int, error) {
	w, err := newRowWriter[T](outPath)
	if err != nil {
		return 0, err
	}

	batch := make([]T, 0, writeBatchSize)
	total := 0
	start := time.Now()
	lastLog := start

	for {
		rec, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return total, fmt.Errorf("read %s row %d: %w", name, pr.rowNum, err)
		}

		row, ok := build(rec)
		if !ok {
			continue
		}
		batch = append(batch, row)
		total++

		if len(batch) >= writeBatchSize {
			if _, err := w.Write(batch); err != nil {
				w.Close()
				return total, fmt.Errorf("%s: %w", name, err)
			}
			batch = batch[:0]
		}

		if time.Since(lastLog) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			log.Printf("%s: %d rows (%.0f rows/sec)", name, total, float64(total)/elapsed)
			lastLog = time.Now()
		}
	}

	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			w.Close()
			return total, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return total, fmt.Errorf("%s: %w", name, err)
	}
	return total, nil
}

func convertPlans(pr *pipeReader, outPath string) (int, error) {
	return convertRows(pr, outPath, "plan_information", func(rec []string) (PlanRow, bool) {
		row := PlanRow{
			ContractID:   pr.Field(rec, "contract_id"),
			PlanID:       pr.Field(rec, "plan_id"),
			SegmentID:    pr.Field(rec, "segment_id"),
			ContractName: pr.Field(rec, "contract_name"),
			PlanName:     pr.Field(rec, "plan_name"),
			FormularyID:  pr.Field(rec, "formulary_id"),
			State:        pr.Field(rec, "state"),
			CountyCode:   pr.Field(rec, "county_code"),
			Premium:      parseFloat(pr.Field(rec, "premium")),
			Deductible:   parseFloat(pr.Field(rec, "deductible")),
			SNP:          pr.Field(rec, "snp"),
		}
		if row.ContractID == "" {
			return PlanRow{}, false
		}
		row.PlanKey = planKey(row.ContractID, row.PlanID, row.SegmentID)
		return row, true
	})
}

func convertFormularyDrugs(pr *pipeReader, outPath string) (int, error) {
	return convertRows(pr, outPath, "formulary_drugs", func(rec []string) (FormularyDrugRow, bool) {
		row := FormularyDrugRow{
			FormularyID:        pr.Field(rec, "formulary_id"),
			RXCUI:              pr.Field(rec, "rxcui"),
			NDC:                pr.Field(rec, "ndc"),
			Tier:               parseInt32(pr.Field(rec, "tier_level_value")),
			PriorAuthorization: yn(pr.Field(rec, "prior_authorization_yn")),
			StepTherapy:        yn(pr.Field(rec, "step_therapy_yn")),
			QuantityLimit:      yn(pr.Field(rec, "quantity_limit_yn")),
		}
		if row.FormularyID == "" {
			return FormularyDrugRow{}, false
		}
		return row, true
	})
}

func convertBeneficiaryCosts(pr *pipeReader, outPath string) (int, error) {
	return convertRows(pr, outPath, "beneficiary_costs", func(rec []string) (BeneficiaryCostRow, bool) {
		row := BeneficiaryCostRow{
			ContractID:       pr.Field(rec, "contract_id"),
			PlanID:           pr.Field(rec, "plan_id"),
			SegmentID:        pr.Field(rec, "segment_id"),
			CoverageLevel:    pr.Field(rec, "coverage_level"),
			Tier:             parseInt32(pr.Field(rec, "tier")),
			DaysSupply:       parseInt32(pr.Field(rec, "days_supply")),
			CostTypePref:     parseInt32(pr.Field(rec, "cost_type_pref")),
			CostAmtPref:      parseFloat(pr.Field(rec, "cost_amt_pref")),
			CostMinAmtPref:   parseFloat(pr.Field(rec, "cost_min_amt_pref")),
			CostMaxAmtPref:   parseFloat(pr.Field(rec, "cost_max_amt_pref")),
			CostTypeMailPref: parseInt32(pr.Field(rec, "cost_type_mail_pref")),
			CostAmtMailPref:  parseFloat(pr.Field(rec, "cost_amt_mail_pref")),
			TierSpecialty:    yn(pr.Field(rec, "tier_specialty_yn")),
		}
		if row.ContractID == "" {
			return BeneficiaryCostRow{}, false
		}
		row.PlanKey = planKey(row.ContractID, row.PlanID, row.SegmentID)
		return row, true
	})
}

func convertGeographic(pr *pipeReader, outPath string) (int, error) {
	return convertRows(pr, outPath, "geographic_locator", func(rec []string) (GeographicRow, bool) {
		row := GeographicRow{
			CountyCode: pr.Field(rec, "county_code"),
			StateName:  pr.Field(rec, "statename"),
			County:     pr.Field(rec, "county"),
		}
		if row.CountyCode == "" {
			return GeographicRow{}, false
		}
		return row, true
	})
}

func convertExcludedDrugs(pr *pipeReader, outPath string) (int, error) {
	return convertRows(pr, outPath, "excluded_drugs", func(rec []string) (ExcludedDrugRow, bool) {
		row := ExcludedDrugRow{
			ContractID:    pr.Field(rec, "contract_id"),
			PlanID:        pr.Field(rec, "plan_id"),
			SegmentID:     pr.Field(rec, "segment_id"),
			RXCUI:         pr.Field(rec, "rxcui"),
			Tier:          parseInt32(pr.Field(rec, "tier")),
			QuantityLimit: yn(pr.Field(rec, "quantity_limit_yn")),
		}
		if row.ContractID == "" {
			return ExcludedDrugRow{}, false
		}
		row.PlanKey = planKey(row.ContractID, row.PlanID, row.SegmentID)
		return row, true
	})
}
