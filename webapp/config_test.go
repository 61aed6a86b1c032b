package main

import "testing"

func TestParseCompanies(t *testing.T) {
	list, err := parseCompanies("Humana=HUMANA; CVS=cvs,aetna")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d companies, want 2", len(list))
	}
	if list[0].ID != "Humana" || list[0].Aliases[0] != "HUMANA" {
		t.Errorf("first company = %+v", list[0])
	}
	// Aliases are uppercased so substring matching stays case-insensitive.
	if list[1].ID != "CVS" || len(list[1].Aliases) != 2 || list[1].Aliases[1] != "AETNA" {
		t.Errorf("second company = %+v", list[1])
	}

	if id, ok := list.Normalize("Aetna Health Inc"); !ok || id != "CVS" {
		t.Errorf("normalize = %q (%v)", id, ok)
	}
}

func TestParseCompaniesErrors(t *testing.T) {
	for _, bad := range []string{"", ";", "Humana", "Humana=", "=HUMANA"} {
		if _, err := parseCompanies(bad); err == nil {
			t.Errorf("parseCompanies(%q) should fail", bad)
		}
	}
}

func TestParseDrugs(t *testing.T) {
	drugs, err := parseDrugs("Ozempic=2398842;Wegovy=2553603")
	if err != nil {
		t.Fatal(err)
	}
	if len(drugs) != 2 {
		t.Fatalf("got %d drugs, want 2", len(drugs))
	}
	if drugs[0] != (GLP1Drug{Name: "Ozempic", RXCUI: "2398842"}) {
		t.Errorf("first drug = %+v", drugs[0])
	}
	if drugs[1].RXCUI != "2553603" {
		t.Errorf("second drug = %+v", drugs[1])
	}
}

func TestParseDrugsErrors(t *testing.T) {
	for _, bad := range []string{"", "Ozempic", "Ozempic=", "=2398842"} {
		if _, err := parseDrugs(bad); err == nil {
			t.Errorf("parseDrugs(%q) should fail", bad)
		}
	}
}
