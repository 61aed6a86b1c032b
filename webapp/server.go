package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"partdtool/analysis"
	"partdtool/store"
)

// querier is the slice of the query layer the handlers use. Tests
// substitute a stub.
type querier interface {
	Stats(ctx context.Context) (store.Stats, error)
	ListFormularies(ctx context.Context, orgFilter string) ([]store.FormularySummaryRow, error)
	ListOrganizations(ctx context.Context) ([]store.OrganizationRow, error)
	OrganizationTotals(ctx context.Context, patterns []string) ([]store.OrganizationRow, error)
	CandidatePlans(ctx context.Context, tokens []string) ([]store.CandidatePlan, error)
	FormularyTierCounts(ctx context.Context, formularyID string) ([]store.TierCount, error)
	FormularyRestrictions(ctx context.Context, formularyID string) (store.Restrictions, error)
	FormularyGeography(ctx context.Context, formularyID string) (store.Geography, error)
	FormularyParent(ctx context.Context, formularyID string) (store.FormularyParent, error)
	FormularySpecialty(ctx context.Context, formularyID string) (store.SpecialtySummary, error)
	FormularyDrugs(ctx context.Context, formularyID string, tier *int32, specialtyOnly bool, limit int32) ([]store.DrugRow, error)
	FormularyStates(ctx context.Context, formularyID string) ([]store.StateRow, error)
	DrugNDCs(ctx context.Context, rxcui string) ([]string, error)
	DrugEntries(ctx context.Context, rxcui, ndc string) ([]store.FormularyEntry, error)
	CostShares(ctx context.Context, planKeys []string, tier int32, coverageLevel string, daysSupply int32) ([]store.CostShareRow, error)
	NDCPricing(ctx context.Context, planKeys []string, ndc string, daysSupply int32) (store.PricingStats, error)
	FormularyNDCAvgCosts(ctx context.Context, formularyID string) (map[string]float64, error)
	LowestTierCostShare(ctx context.Context, formularyID string, tier, daysSupply int32) (store.CostShareRow, bool, error)
}

const defaultDrugLimit = 100

type server struct {
	q         querier
	companies analysis.CompanyList
	drugs     []GLP1Drug
}

func newServer(q querier, companies analysis.CompanyList, drugs []GLP1Drug) *server {
	return &server{q: q, companies: companies, drugs: drugs}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/formularies", s.handleFormularies)
	mux.HandleFunc("GET /api/organizations", s.handleOrganizations)
	mux.HandleFunc("GET /api/formulary/{id}/summary", s.handleFormularySummary)
	mux.HandleFunc("GET /api/formulary/{id}/drugs", s.handleFormularyDrugs)
	mux.HandleFunc("GET /api/formulary/{id}/states", s.handleFormularyStates)
	mux.HandleFunc("GET /api/formulary/{id}/tier/{tier}/drugs", s.handleTierDrugs)
	mux.HandleFunc("GET /api/glp1/companies", s.handleGLP1Companies)
	mux.HandleFunc("GET /api/glp1/master-table", s.handleGLP1MasterTable)
	mux.HandleFunc("GET /api/glp1/pricing", s.handleGLP1Pricing)
	mux.HandleFunc("GET /api/glp1/member-costs", s.handleGLP1MemberCosts)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func serverError(w http.ResponseWriter, err error) {
	log.Printf("request failed: %v", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.q.Stats(r.Context())
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleFormularies(w http.ResponseWriter, r *http.Request) {
	rows, err := s.q.ListFormularies(r.Context(), r.URL.Query().Get("org"))
	if err != nil {
		serverError(w, err)
		return
	}
	if rows == nil {
		rows = []store.FormularySummaryRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"formularies": rows, "count": len(rows)})
}

func (s *server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.q.ListOrganizations(r.Context())
	if err != nil {
		serverError(w, err)
		return
	}
	if rows == nil {
		rows = []store.OrganizationRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": rows, "count": len(rows)})
}

func (s *server) handleFormularySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	parent, err := s.q.FormularyParent(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	if parent.ContractID == "" {
		http.Error(w, "formulary not found", http.StatusNotFound)
		return
	}
	geo, err := s.q.FormularyGeography(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	tiers, err := s.q.FormularyTierCounts(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	restrictions, err := s.q.FormularyRestrictions(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	specialty, err := s.q.FormularySpecialty(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	if tiers == nil {
		tiers = []store.TierCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formulary_id": id,
		"parent":       parent,
		"geography":    geo,
		"tiers":        tiers,
		"restrictions": restrictions,
		"specialty":    specialty,
	})
}

func (s *server) handleFormularyDrugs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	query := r.URL.Query()

	var tier *int32
	if v := query.Get("tier"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			http.Error(w, "tier must be an integer", http.StatusBadRequest)
			return
		}
		t := int32(n)
		tier = &t
	}
	specialtyOnly := query.Get("specialty_only") == "true"

	limit := int32(defaultDrugLimit)
	if v := query.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = int32(n)
	}

	rows, err := s.q.FormularyDrugs(r.Context(), id, tier, specialtyOnly, limit)
	if err != nil {
		serverError(w, err)
		return
	}
	if rows == nil {
		rows = []store.DrugRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formulary_id": id,
		"drugs":        rows,
		"count":        len(rows),
	})
}

func (s *server) handleFormularyStates(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rows, err := s.q.FormularyStates(r.Context(), id)
	if err != nil {
		serverError(w, err)
		return
	}
	if rows == nil {
		rows = []store.StateRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formulary_id": id,
		"states":       rows,
		"count":        len(rows),
	})
}

// tierDrugRow is one formulary entry with the tier's resolved cost
// sharing applied to the package's average negotiated price.
type tierDrugRow struct {
	store.DrugRow
	UnitCost    *float64 `json:"unit_cost"`
	CostType    string   `json:"cost_type,omitempty"`
	CostAmt     float64  `json:"cost_amt"`
	IsPercent   bool     `json:"is_percent"`
	MemberPays  float64  `json:"member_pays"`
	PlanNetCost float64  `json:"plan_net_cost"`
}

func (s *server) handleTierDrugs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	tierN, err := strconv.ParseInt(r.PathValue("tier"), 10, 32)
	if err != nil {
		http.Error(w, "tier must be an integer", http.StatusBadRequest)
		return
	}
	tier := int32(tierN)

	drugs, err := s.q.FormularyDrugs(ctx, id, &tier, false, defaultDrugLimit)
	if err != nil {
		serverError(w, err)
		return
	}
	avgCosts, err := s.q.FormularyNDCAvgCosts(ctx, id)
	if err != nil {
		serverError(w, err)
		return
	}
	share, haveShare, err := s.q.LowestTierCostShare(ctx, id, tier, standardDaysSupply)
	if err != nil {
		serverError(w, err)
		return
	}

	rows := make([]tierDrugRow, 0, len(drugs))
	for _, d := range drugs {
		row := tierDrugRow{DrugRow: d}
		var unit *float64
		if avg, ok := avgCosts[d.NDC]; ok {
			unit = &avg
			row.UnitCost = &avg
		}
		if haveShare && share.CostType != nil {
			resolved, ok := analysis.ResolveCost(analysis.CostShare{
				Kind:   analysis.CostKind(*share.CostType),
				Amount: share.CostAmt,
			}, unit)
			if ok {
				row.CostType = resolved.Kind.String()
				row.CostAmt = resolved.Display
				row.IsPercent = resolved.IsPercent
				row.MemberPays = resolved.MemberPays
				row.PlanNetCost = resolved.PlanNetCost
			}
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formulary_id": id,
		"tier":         tier,
		"drugs":        rows,
		"count":        len(rows),
	})
}

func (s *server) handleGLP1Companies(w http.ResponseWriter, r *http.Request) {
	footprints, err := s.companyFootprints(r.Context())
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": footprints})
}

func (s *server) handleGLP1MasterTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := s.labeledPlans(ctx)
	if err != nil {
		serverError(w, err)
		return
	}
	rows := s.masterTable(ctx, plans)
	if rows == nil {
		rows = []drugNDCRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drugs": rows})
}

func (s *server) handleGLP1Pricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := s.labeledPlans(ctx)
	if err != nil {
		serverError(w, err)
		return
	}
	rows := s.pricingTable(ctx, plans)
	if rows == nil {
		rows = []pricingRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days_supply": standardDaysSupply,
		"pricing":     rows,
	})
}

func (s *server) handleGLP1MemberCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := s.labeledPlans(ctx)
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coverage_level": initialCoverage,
		"days_supply":    standardDaysSupply,
		"drugs":          s.memberCosts(ctx, plans),
	})
}

var _ querier = (*store.Queries)(nil)

func listenAndServe(addr string, s *server) error {
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, s.routes()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
