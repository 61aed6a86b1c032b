// Package analysis implements the organization-normalization and
// cost-attribution logic behind the GLP-1 and formulary-summary
// endpoints: mapping raw contract names to canonical parent companies,
// rolling drug coverage up by company/tier/restriction, and converting
// coded cost-sharing rows into member-pays / plan-net-cost figures.
//
// Everything in this package is pure and configuration-driven. The
// company list and drug tables are passed in by the caller; nothing
// reads the database or module-level state.
package analysis

import "strings"

// Company is one canonical parent organization. A raw contract or
// parent-organization name maps to the company when any alias token is
// a case-insensitive substring of the name. Aliases cover the corporate
// renames and subsidiaries seen in CMS data (e.g. Aetna plans belong to
// CVS Health).
type Company struct {
	ID      string
	Aliases []string
}

// CompanyList is an ordered set of canonical companies. Order matters:
// when a name contains tokens of more than one company, the first
// declared company wins.
type CompanyList []Company

// DefaultCompanies is the target set for the major-insurer comparisons.
var DefaultCompanies = CompanyList{
	{ID: "Elevance", Aliases: []string{"ELEVANCE"}},
	{ID: "UnitedHealth", Aliases: []string{"UNITEDHEALTH", "UNITED HEALTH"}},
	{ID: "Humana", Aliases: []string{"HUMANA"}},
	{ID: "CVS", Aliases: []string{"CVS", "AETNA"}},
	{ID: "Molina", Aliases: []string{"MOLINA"}},
	{ID: "Centene", Aliases: []string{"CENTENE"}},
	{ID: "Alignment", Aliases: []string{"ALIGNMENT"}},
}

// Normalize maps a raw organization name to a canonical company ID.
// Returns ("", false) for empty input or when no alias matches; that is
// a valid result meaning "excluded from per-company rollups", not an
// error.
func (l CompanyList) Normalize(name string) (string, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	for _, c := range l {
		for _, alias := range c.Aliases {
			if strings.Contains(name, alias) {
				return c.ID, true
			}
		}
	}
	return "", false
}

// IDs returns the company IDs in declaration order.
func (l CompanyList) IDs() []string {
	ids := make([]string, len(l))
	for i, c := range l {
		ids[i] = c.ID
	}
	return ids
}

// Tokens returns every alias token in declaration order. Callers use
// this to build the candidate-plan predicate for the query layer.
func (l CompanyList) Tokens() []string {
	var tokens []string
	for _, c := range l {
		tokens = append(tokens, c.Aliases...)
	}
	return tokens
}
