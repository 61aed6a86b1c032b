package main

import (
	"path/filepath"
)

// convertPricing converts the quarterly negotiated-pricing archive.
// At ~55M rows it dwarfs the other datasets, so it runs as its own
// mode. The source file is Latin-1 encoded, unlike the rest.
func convertPricing(dataDir, outDir string) (int, error) {
	zipPath, err := findArchive(dataDir, "pricing file")
	if err != nil {
		return 0, err
	}

	pr, err := openArchiveTable(zipPath, true)
	if err != nil {
		return 0, err
	}
	defer pr.Close()

	outPath := filepath.Join(outDir, "drug_pricing.parquet")
	n, err := convertRows(pr, outPath, "drug_pricing", func(rec []string) (PricingRow, bool) {
		row := PricingRow{
			ContractID: pr.Field(rec, "contract_id"),
			PlanID:     pr.Field(rec, "plan_id"),
			NDC:        pr.Field(rec, "ndc"),
			DaysSupply: parseInt32(pr.Field(rec, "days_supply")),
			UnitCost:   parseFloat(pr.Field(rec, "unit_cost")),
		}
		if row.ContractID == "" || row.NDC == "" {
			return PricingRow{}, false
		}
		row.PlanKey = planKey(row.ContractID, row.PlanID, pr.Field(rec, "segment_id"))
		return row, true
	})
	if err != nil {
		return n, err
	}
	return n, nil
}
