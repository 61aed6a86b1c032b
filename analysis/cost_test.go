package analysis

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestResolveCostFractionalCoinsurance(t *testing.T) {
	// 0.25 encodes 25%: display 25.0, member pays a quarter of the
	// negotiated price, plan keeps the rest.
	r, ok := ResolveCost(CostShare{Kind: Coinsurance, Amount: f(0.25)}, f(100.0))
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if !r.IsPercent || r.Display != 25.0 {
		t.Errorf("display = %v (percent=%v), want 25.0 percent", r.Display, r.IsPercent)
	}
	if r.MemberPays != 25.0 {
		t.Errorf("member_pays = %v, want 25.0", r.MemberPays)
	}
	if r.PlanNetCost != 75.0 {
		t.Errorf("plan_net_cost = %v, want 75.0", r.PlanNetCost)
	}
}

func TestResolveCostWholePercentCoinsurance(t *testing.T) {
	// 25 (>= 1) is already whole percent; both encodings must land on
	// the same member-pays figure.
	r, ok := ResolveCost(CostShare{Kind: Coinsurance, Amount: f(25)}, f(100.0))
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if r.Display != 25.0 || r.MemberPays != 25.0 || r.PlanNetCost != 75.0 {
		t.Errorf("got display=%v member=%v net=%v, want 25/25/75", r.Display, r.MemberPays, r.PlanNetCost)
	}
}

func TestResolveCostCopayIgnoresNegotiatedPrice(t *testing.T) {
	for _, unit := range []*float64{nil, f(0), f(42.5), f(10000)} {
		r, ok := ResolveCost(CostShare{Kind: Copay, Amount: f(10.0)}, unit)
		if !ok {
			t.Fatal("expected row to resolve")
		}
		if r.MemberPays != 10.0 {
			t.Errorf("member_pays = %v with unit=%v, want 10.0", r.MemberPays, unit)
		}
		if r.IsPercent {
			t.Error("copay must not display as percent")
		}
	}
}

func TestResolveCostNoCharge(t *testing.T) {
	r, ok := ResolveCost(CostShare{Kind: NoCharge, Amount: f(999)}, f(500.0))
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if r.MemberPays != 0 {
		t.Errorf("member_pays = %v, want 0", r.MemberPays)
	}
	if r.PlanNetCost != 500.0 {
		t.Errorf("plan_net_cost = %v, want 500.0", r.PlanNetCost)
	}
	if r.Display != 0 || r.IsPercent {
		t.Errorf("no-charge must have no display amount, got %v", r.Display)
	}
}

func TestResolveCostMissingNegotiatedPrice(t *testing.T) {
	// Missing price is not an error: coinsurance resolves to zero
	// dollars and the zero unit cost is observable.
	r, ok := ResolveCost(CostShare{Kind: Coinsurance, Amount: f(0.33)}, nil)
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if r.UnitCost != 0 || r.MemberPays != 0 || r.PlanNetCost != 0 {
		t.Errorf("got unit=%v member=%v net=%v, want zeros", r.UnitCost, r.MemberPays, r.PlanNetCost)
	}
	if r.Display != 33.0 {
		t.Errorf("display = %v, want 33.0", r.Display)
	}
}

func TestResolveCostMalformedAmountExcluded(t *testing.T) {
	for _, kind := range []CostKind{Copay, Coinsurance} {
		if _, ok := ResolveCost(CostShare{Kind: kind, Amount: nil}, f(100)); ok {
			t.Errorf("%s with nil amount must be excluded", kind)
		}
	}
	// No-charge needs no amount.
	if _, ok := ResolveCost(CostShare{Kind: NoCharge}, nil); !ok {
		t.Error("no-charge with nil amount must resolve")
	}
}

func TestResolveCostNegativeNetSurfaced(t *testing.T) {
	// Copay above the negotiated price: the negative net cost is a
	// data-quality signal and must not be clamped.
	r, ok := ResolveCost(CostShare{Kind: Copay, Amount: f(50)}, f(30))
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if r.PlanNetCost != -20.0 {
		t.Errorf("plan_net_cost = %v, want -20.0", r.PlanNetCost)
	}
}

func TestResolveCostBoundaryOne(t *testing.T) {
	// Exactly 1.0 falls on the whole-percent side of the threshold and
	// reads as 1%. Pinned so the ambiguity stays explicit.
	r, ok := ResolveCost(CostShare{Kind: Coinsurance, Amount: f(1.0)}, f(200))
	if !ok {
		t.Fatal("expected row to resolve")
	}
	if r.Display != 1.0 {
		t.Errorf("display = %v, want 1.0", r.Display)
	}
	if math.Abs(r.MemberPays-2.0) > 1e-9 {
		t.Errorf("member_pays = %v, want 2.0", r.MemberPays)
	}
}

func TestSummarizeMemberCosts(t *testing.T) {
	rows := []MemberCostRow{
		{Company: "Humana", PlanKey: "a", Kind: Copay, Amount: f(47)},
		{Company: "Humana", PlanKey: "b", Kind: Copay, Amount: f(50)},
		{Company: "Humana", PlanKey: "c", Kind: Coinsurance, Amount: f(0.25)},
		{Company: "Humana", PlanKey: "d", Kind: Coinsurance, Amount: f(33)},
		{Company: "Humana", PlanKey: "e", Kind: NoCharge},
		{Company: "Humana", PlanKey: "f", Kind: Copay, Amount: nil}, // malformed, dropped
		{Company: "CVS", PlanKey: "g", Kind: Coinsurance, Amount: f(0.30)},
	}
	totals := map[string]int{"Humana": 5, "CVS": 2}

	out := SummarizeMemberCosts(testCompanies, rows, totals)
	if len(out) != 2 {
		t.Fatalf("expected 2 company rows, got %d", len(out))
	}

	humana := out[0]
	if humana.CopayPlans != 2 || humana.CopayPct != 40.0 {
		t.Errorf("copay = %d (%v%%), want 2 (40%%)", humana.CopayPlans, humana.CopayPct)
	}
	if humana.AvgCopay != 48.5 {
		t.Errorf("avg_copay = %v, want 48.5", humana.AvgCopay)
	}
	// 0.25 normalizes to 25 before averaging with 33.
	if humana.CoinsurancePlans != 2 || humana.AvgCoinsurance != 29.0 {
		t.Errorf("coinsurance = %d avg %v, want 2 avg 29.0", humana.CoinsurancePlans, humana.AvgCoinsurance)
	}
	if humana.NoChargePlans != 1 || humana.NoChargePct != 20.0 {
		t.Errorf("no_charge = %d (%v%%), want 1 (20%%)", humana.NoChargePlans, humana.NoChargePct)
	}

	cvs := out[1]
	if cvs.CoinsurancePlans != 1 || cvs.CoinsurancePct != 50.0 || cvs.AvgCoinsurance != 30.0 {
		t.Errorf("cvs coinsurance = %d (%v%%) avg %v, want 1 (50%%) avg 30.0", cvs.CoinsurancePlans, cvs.CoinsurancePct, cvs.AvgCoinsurance)
	}
}

func TestSummarizeMemberCostsZeroTotals(t *testing.T) {
	// Company with no rows and no denominator must still appear with
	// all-zero fields.
	out := SummarizeMemberCosts(testCompanies, nil, map[string]int{})
	if len(out) != 2 {
		t.Fatalf("expected 2 company rows, got %d", len(out))
	}
	for _, s := range out {
		if s.CopayPct != 0 || s.CoinsurancePct != 0 || s.NoChargePct != 0 {
			t.Errorf("%s: percentages must be 0.0 with zero denominator", s.Company)
		}
		if s.AvgCopay != 0 || s.AvgCoinsurance != 0 {
			t.Errorf("%s: averages must be 0.0 with no rows", s.Company)
		}
	}
}
