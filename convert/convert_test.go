package main

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// writeZip builds a single-member ZIP fixture.
func writeZip(t *testing.T, dir, name, member string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(member)
	if err != nil {
		t.Fatalf("create zip member: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatalf("write zip member: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

func readParquet[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	var out []T
	buf := make([]T, 16)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read parquet: %v", err)
		}
	}
	return out
}

func TestConvertPlans(t *testing.T) {
	dir := t.TempDir()
	content := "\xEF\xBB\xBF" + // BOM, present in some quarters
		"CONTRACT_ID|PLAN_ID|SEGMENT_ID|CONTRACT_NAME|PLAN_NAME|FORMULARY_ID|PREMIUM|DEDUCTIBLE|STATE|COUNTY_CODE|SNP\n" +
		"H1036|001|0|Humana Insurance Company|Humana Gold Plus|00025178|32.50|0.00|FL|12086|0\n" +
		"H5521|002|0|Aetna Health Inc|Aetna Medicare|00025212|n/a|545.00|TX|48201|0\n" +
		"|missing|contract|row|is|skipped|1|2|XX|99999|0\n"
	zipPath := writeZip(t, dir, "plan information  PPUF_2025Q2.zip",
		"plan information  PPUF_2025Q2.txt", []byte(content))

	pr, err := openArchiveTable(zipPath, false)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer pr.Close()

	outPath := filepath.Join(dir, "plan_information.parquet")
	n, err := convertPlans(pr, outPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n != 2 {
		t.Fatalf("converted %d rows, want 2", n)
	}

	rows := readParquet[PlanRow](t, outPath)
	if len(rows) != 2 {
		t.Fatalf("read back %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.PlanKey != "H1036|001|0" {
		t.Errorf("plan_key = %q, want H1036|001|0", first.PlanKey)
	}
	if first.Premium == nil || *first.Premium != 32.50 {
		t.Errorf("premium = %v, want 32.50", first.Premium)
	}
	if first.FormularyID != "00025178" {
		t.Errorf("formulary_id = %q", first.FormularyID)
	}

	// Malformed premium lands as null, the row survives.
	second := rows[1]
	if second.Premium != nil {
		t.Errorf("malformed premium = %v, want nil", second.Premium)
	}
	if second.Deductible == nil || *second.Deductible != 545.00 {
		t.Errorf("deductible = %v, want 545.00", second.Deductible)
	}
}

func TestConvertFormularyDrugs(t *testing.T) {
	dir := t.TempDir()
	content := "FORMULARY_ID|FORMULARY_VERSION|CONTRACT_YEAR|RXCUI|NDC|TIER_LEVEL_VALUE|QUANTITY_LIMIT_YN|QUANTITY_LIMIT_AMOUNT|QUANTITY_LIMIT_DAYS|PRIOR_AUTHORIZATION_YN|STEP_THERAPY_YN\n" +
		"00025178|12|2025|2398842|00169413212|3|Y|4|28|Y|N\n" +
		"00025178|12|2025|897126|00169406013|not-a-tier|N|||N|N\n"
	zipPath := writeZip(t, dir, "basic drugs formulary file  PPUF_2025Q2.zip",
		"basic drugs formulary file  PPUF_2025Q2.txt", []byte(content))

	pr, err := openArchiveTable(zipPath, false)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer pr.Close()

	outPath := filepath.Join(dir, "formulary_drugs.parquet")
	if _, err := convertFormularyDrugs(pr, outPath); err != nil {
		t.Fatalf("convert: %v", err)
	}

	rows := readParquet[FormularyDrugRow](t, outPath)
	if len(rows) != 2 {
		t.Fatalf("read back %d rows, want 2", len(rows))
	}
	if rows[0].Tier == nil || *rows[0].Tier != 3 {
		t.Errorf("tier = %v, want 3", rows[0].Tier)
	}
	if !rows[0].PriorAuthorization || rows[0].StepTherapy || !rows[0].QuantityLimit {
		t.Errorf("flags = pa:%v st:%v ql:%v, want pa+ql only",
			rows[0].PriorAuthorization, rows[0].StepTherapy, rows[0].QuantityLimit)
	}
	if rows[1].Tier != nil {
		t.Errorf("malformed tier = %v, want nil", rows[1].Tier)
	}
}

func TestConvertBeneficiaryCosts(t *testing.T) {
	dir := t.TempDir()
	content := "CONTRACT_ID|PLAN_ID|SEGMENT_ID|COVERAGE_LEVEL|TIER|DAYS_SUPPLY|COST_TYPE_PREF|COST_AMT_PREF|COST_MIN_AMT_PREF|COST_MAX_AMT_PREF|COST_TYPE_MAIL_PREF|COST_AMT_MAIL_PREF|TIER_SPECIALTY_YN\n" +
		"H1036|001|0|1|3|30|0|47.00|||0|94.00|N\n" +
		"H1036|001|0|1|5|30|1|0.25|||1|0.25|Y\n"
	zipPath := writeZip(t, dir, "beneficiary cost file  PPUF_2025Q2.zip",
		"beneficiary cost file  PPUF_2025Q2.txt", []byte(content))

	pr, err := openArchiveTable(zipPath, false)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer pr.Close()

	outPath := filepath.Join(dir, "beneficiary_costs.parquet")
	if _, err := convertBeneficiaryCosts(pr, outPath); err != nil {
		t.Fatalf("convert: %v", err)
	}

	rows := readParquet[BeneficiaryCostRow](t, outPath)
	if len(rows) != 2 {
		t.Fatalf("read back %d rows, want 2", len(rows))
	}
	if rows[0].PlanKey != "H1036|001|0" {
		t.Errorf("plan_key = %q", rows[0].PlanKey)
	}
	if rows[0].CostTypePref == nil || *rows[0].CostTypePref != 0 {
		t.Errorf("cost_type_pref = %v, want 0", rows[0].CostTypePref)
	}
	if rows[1].CostAmtPref == nil || *rows[1].CostAmtPref != 0.25 {
		t.Errorf("cost_amt_pref = %v, want 0.25", rows[1].CostAmtPref)
	}
	if !rows[1].TierSpecialty {
		t.Error("tier_specialty not decoded")
	}
}

func TestConvertPricing(t *testing.T) {
	dir := t.TempDir()
	content := "CONTRACT_ID|PLAN_ID|SEGMENT_ID|NDC|DAYS_SUPPLY|UNIT_COST\n" +
		"H1036|001|0|00169413212|30|97.5083\n" +
		"H1036|001|0|00169413212|90|95.1200\n" +
		"H1036|001|0||30|1.00\n" // no NDC, skipped
	writeZip(t, dir, "pricing file PPUF_2025Q2.zip",
		"pricing file PPUF_2025Q2.txt", []byte(content))

	n, err := convertPricing(dir, dir)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n != 2 {
		t.Fatalf("converted %d rows, want 2", n)
	}

	rows := readParquet[PricingRow](t, filepath.Join(dir, "drug_pricing.parquet"))
	if rows[0].UnitCost == nil || *rows[0].UnitCost != 97.5083 {
		t.Errorf("unit_cost = %v, want 97.5083", rows[0].UnitCost)
	}
	if rows[0].DaysSupply == nil || *rows[0].DaysSupply != 30 {
		t.Errorf("days_supply = %v, want 30", rows[0].DaysSupply)
	}
	if rows[0].PlanKey != "H1036|001|0" {
		t.Errorf("plan_key = %q", rows[0].PlanKey)
	}
}

func TestPipeReaderLatin1(t *testing.T) {
	// The pricing file ships Latin-1 encoded; 0xE9 is é.
	raw := []byte("CONTRACT_ID|NOTE\nH1036|caf\xE9\n")
	pr, err := newPipeReader(bytes.NewReader(raw), true)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	rec, err := pr.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := pr.Field(rec, "note"); got != "café" {
		t.Errorf("decoded field = %q, want café", got)
	}
}

func TestFindArchive(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"beneficiary cost file  PPUF_2025Q2.zip",
		"insulin beneficiary cost file  PPUF_2025Q2.zip",
		"plan information  PPUF_2025Q2.zip",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := findArchive(dir, "beneficiary cost file")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if filepath.Base(got) != "beneficiary cost file  PPUF_2025Q2.zip" {
		t.Errorf("matched %q, must not match the insulin archive", got)
	}

	if _, err := findArchive(dir, "pricing file"); err == nil {
		t.Error("expected no-match error for absent dataset")
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CONTRACT_ID", "contract_id"},
		{" Tier Level Value ", "tier_level_value"},
		{"\ufeffCONTRACT_ID", "contract_id"},
	}
	for _, tt := range tests {
		if got := columnName(tt.in); got != tt.want {
			t.Errorf("columnName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if f := parseFloat("1,234.50"); f == nil || *f != 1234.50 {
		t.Errorf("parseFloat comma-strip = %v", f)
	}
	if f := parseFloat("n/a"); f != nil {
		t.Errorf("parseFloat malformed = %v, want nil", f)
	}
	if f := parseFloat(""); f != nil {
		t.Errorf("parseFloat empty = %v, want nil", f)
	}
	if n := parseInt32("30.0"); n == nil || *n != 30 {
		t.Errorf("parseInt32 float rendering = %v", n)
	}
	if n := parseInt32("30.5"); n != nil {
		t.Errorf("parseInt32 non-integer = %v, want nil", n)
	}
	if !yn("y") || yn("N") || yn("") {
		t.Error("yn flag decode wrong")
	}
}
