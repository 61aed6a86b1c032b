package main

import (
	"fmt"
	"strings"

	"partdtool/analysis"
)

// parseCompanies parses a company-list override of the form
// "ID=ALIAS,ALIAS;ID=ALIAS". Declaration order is kept, since the
// normalizer resolves ties by it.
func parseCompanies(s string) (analysis.CompanyList, error) {
	var list analysis.CompanyList
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, rest, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("company entry %q: want ID=ALIAS,ALIAS", entry)
		}
		var aliases []string
		for _, a := range strings.Split(rest, ",") {
			a = strings.ToUpper(strings.TrimSpace(a))
			if a != "" {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("company %q: no aliases", id)
		}
		list = append(list, analysis.Company{ID: id, Aliases: aliases})
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty company list")
	}
	return list, nil
}

// parseDrugs parses a drug-set override of the form
// "Name=RXCUI;Name=RXCUI", keeping display order.
func parseDrugs(s string) ([]GLP1Drug, error) {
	var drugs []GLP1Drug
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rxcui, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		rxcui = strings.TrimSpace(rxcui)
		if !ok || name == "" || rxcui == "" {
			return nil, fmt.Errorf("drug entry %q: want Name=RXCUI", entry)
		}
		drugs = append(drugs, GLP1Drug{Name: name, RXCUI: rxcui})
	}
	if len(drugs) == 0 {
		return nil, fmt.Errorf("empty drug list")
	}
	return drugs, nil
}
