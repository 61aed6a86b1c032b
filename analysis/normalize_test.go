package analysis

import "testing"

func TestNormalizeAliases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		matched bool
	}{
		{"exact", "Humana Insurance Company", "Humana", true},
		{"case insensitive", "HUMANA BENEFIT PLAN OF TEXAS", "Humana", true},
		{"lowercase input", "humana wisconsin health org", "Humana", true},
		{"surrounding text", "UnitedHealthcare of New England, Inc.", "UnitedHealth", true},
		{"spaced alias", "United Health Care Plans", "UnitedHealth", true},
		{"aetna maps to cvs", "Aetna Health Inc", "CVS", true},
		{"cvs direct", "CVS Health / SilverScript", "CVS", true},
		{"elevance", "Elevance Health, Inc.", "Elevance", true},
		{"molina", "MOLINA HEALTHCARE OF OHIO", "Molina", true},
		{"centene", "Centene Corporation", "Centene", true},
		{"alignment", "Alignment Health Plan", "Alignment", true},
		{"no match", "Blue Cross Blue Shield of Michigan", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		// "United" alone is not an alias; an ambiguous truncation must
		// not match.
		{"bare united", "United of Omaha", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultCompanies.Normalize(tt.input)
			if ok != tt.matched {
				t.Fatalf("Normalize(%q) matched=%v, want %v", tt.input, ok, tt.matched)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDeclarationOrderWins(t *testing.T) {
	list := CompanyList{
		{ID: "First", Aliases: []string{"ACME"}},
		{ID: "Second", Aliases: []string{"ACME HEALTH"}},
	}

	// Contains both tokens; the first declared company must win.
	got, ok := list.Normalize("Acme Health Partners")
	if !ok || got != "First" {
		t.Errorf("expected first declared company to win, got %q (matched=%v)", got, ok)
	}
}

func TestNormalizeMultipleAliasesSameCompany(t *testing.T) {
	// A name matching two aliases of the same company maps once, to
	// that company.
	got, ok := DefaultCompanies.Normalize("CVS Health (formerly Aetna)")
	if !ok || got != "CVS" {
		t.Errorf("expected CVS, got %q (matched=%v)", got, ok)
	}
}

func TestCompanyListTokens(t *testing.T) {
	list := CompanyList{
		{ID: "A", Aliases: []string{"A1", "A2"}},
		{ID: "B", Aliases: []string{"B1"}},
	}

	tokens := list.Tokens()
	want := []string{"A1", "A2", "B1"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}

	ids := list.IDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("unexpected IDs: %v", ids)
	}
}
