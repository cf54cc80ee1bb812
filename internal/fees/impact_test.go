package fees

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
)

func TestComparisonQuantities(t *testing.T) {
	tests := []struct {
		price string
		want  []int64
	}{
		// 1000/50=20, 5000/50=100, 200, 500, 1000, 2000
		{"50", []int64{1, 20, 100, 200, 500, 1000, 2000}},
		// 1000/7.3=137 -> 140, 685 -> 690, 1370 -> 1400, 3425 -> 3450, 6850, 13699 -> 13700
		{"7.30", []int64{1, 140, 690, 1400, 3450, 6850, 13700}},
		// a price above every target collapses to one share
		{"200000", []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got := ComparisonQuantities(d(tt.price))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ComparisonQuantities(%s) = %v, want %v", tt.price, got, tt.want)
			}
		})
	}

	if got := ComparisonQuantities(decimal.Zero); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("ComparisonQuantities(0) = %v, want [1]", got)
	}
}

func TestNiceCeil(t *testing.T) {
	tests := []struct{ in, want int64 }{
		{7, 7},
		{12, 15},
		{95, 95},
		{101, 110},
		{999, 1000},
		{1001, 1050},
		{12345, 12400},
	}
	for _, tt := range tests {
		if got := niceCeil(tt.in); got != tt.want {
			t.Errorf("niceCeil(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFeeImpact(t *testing.T) {
	e := newTestEngine(t)

	rows := e.FeeImpact(d("50"), []int64{0, 10, 100, -4}, terms("0.015", "0"))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (non-positive quantities skipped)", len(rows))
	}
	assertDecimal(t, "rows[0].TradeValue", rows[0].TradeValue, "500")
	assertDecimal(t, "rows[0].FeePercentage", rows[0].FeePercentage, "2.47")
	assertDecimal(t, "rows[1].TradeValue", rows[1].TradeValue, "5000")
	if !rows[1].FeePercentage.LessThan(rows[0].FeePercentage) {
		t.Errorf("fee %% should fall with quantity: %s then %s", rows[0].FeePercentage, rows[1].FeePercentage)
	}
}

func TestSweetSpot(t *testing.T) {
	e := newTestEngine(t)

	// 1.74% proportional + 0.33% levies + 200/c from stamp duty
	// drops to 2.25% once c >= 1111.11, i.e. 23 shares at 50.
	s, err := e.SweetSpot(d("50"), terms("0.015", "0"), decimal.Zero)
	if err != nil {
		t.Fatalf("SweetSpot: %v", err)
	}
	if s.Quantity != 23 || !s.ThresholdMet {
		t.Errorf("SweetSpot = %+v, want 23 shares with threshold met", s)
	}
	assertDecimal(t, "ThresholdPct", s.ThresholdPct, "2.25")

	// A threshold met by a single share.
	s, _ = e.SweetSpot(d("50000"), terms("0.015", "0"), d("2.25"))
	if s.Quantity != 1 {
		t.Errorf("SweetSpot at high price = %d, want 1", s.Quantity)
	}
}

func TestSweetSpot_Unreachable(t *testing.T) {
	e := newTestEngine(t)

	// 2% brokerage levels off at 2.65%, above the threshold.
	s, err := e.SweetSpot(d("50"), terms("0.02", "0"), decimal.Zero)
	if err != nil {
		t.Fatalf("SweetSpot: %v", err)
	}
	if s.ThresholdMet {
		t.Errorf("threshold should be unmet: %+v", s)
	}
	if s.Quantity != e.Config().MaxSweetSpotQuantity {
		t.Errorf("Quantity = %d, want search bound %d", s.Quantity, e.Config().MaxSweetSpotQuantity)
	}
}

func TestSweetSpot_InvalidInput(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SweetSpot(decimal.Zero, terms("0.015", "0"), decimal.Zero); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("err = %v, want ErrInputValidation", err)
	}
}

func TestVerdict_ProposesSweetSpot(t *testing.T) {
	e := newTestEngine(t)
	tr := terms("0.015", "0")
	ctx := VerdictContext{PricePerShare: d("50"), Terms: tr}

	v := e.Verdict(10, d("2.47"), 23, ctx)
	if v.Tier != "good" || v.Emoji != "🟡" {
		t.Errorf("tier = %s %s, want good 🟡", v.Tier, v.Emoji)
	}
	if v.SharesToSweetSpot != 13 {
		t.Errorf("SharesToSweetSpot = %d, want 13", v.SharesToSweetSpot)
	}
	if v.ActionLabel != "Buy 23 shares (+13) to reach the sweet spot" {
		t.Errorf("ActionLabel = %q", v.ActionLabel)
	}
	if v.Intermediate == nil {
		t.Fatal("expected an intermediate step")
	}
	// 10 + ceil(13 * 0.5)
	if v.Intermediate.Quantity != 17 {
		t.Errorf("intermediate quantity = %d, want 17", v.Intermediate.Quantity)
	}
	want := e.feePctAt(d("50"), 17, tr)
	if !v.Intermediate.FeePercentage.Equal(want) {
		t.Errorf("intermediate fee = %s, want %s", v.Intermediate.FeePercentage, want)
	}
	if !v.Intermediate.FeePercentage.LessThan(d("2.47")) || !v.Intermediate.FeePercentage.GreaterThan(d("2.25")) {
		t.Errorf("intermediate fee %s should lie between the two quantities", v.Intermediate.FeePercentage)
	}
}

func TestVerdict_NoActions(t *testing.T) {
	e := newTestEngine(t)
	ctx := VerdictContext{PricePerShare: d("50"), Terms: terms("0.015", "0")}

	tests := []struct {
		name      string
		quantity  int64
		sweetSpot int64
	}{
		{"at sweet spot", 23, 23},
		{"above sweet spot", 500, 23},
		{"no sweet spot", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Verdict(tt.quantity, d("2.1"), tt.sweetSpot, ctx)
			if v.ActionLabel != "" || v.Intermediate != nil || v.SharesToSweetSpot != 0 {
				t.Errorf("expected no actions, got %+v", v)
			}
			if v.Tier != "excellent" {
				t.Errorf("tier = %s, want excellent", v.Tier)
			}
		})
	}
}

func TestVerdict_NoIntermediateOneShareAway(t *testing.T) {
	e := newTestEngine(t)
	v := e.Verdict(22, d("2.26"), 23, VerdictContext{PricePerShare: d("50"), Terms: terms("0.015", "0")})
	if v.ActionLabel == "" {
		t.Error("expected the sweet-spot action")
	}
	if v.Intermediate != nil {
		t.Errorf("step would land on the sweet spot itself, got %+v", v.Intermediate)
	}
}

func TestFeeStatus_Boundaries(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		pct  string
		want string
	}{
		{"0", "excellent"},
		{"2.25", "excellent"},
		{"2.2501", "good"},
		{"2.75", "good"},
		{"5", "caution"},
		{"5.01", "poor"},
		{"1200", "poor"},
	}
	for _, tt := range tests {
		if got := e.FeeStatus(d(tt.pct)).Tier; got != tt.want {
			t.Errorf("FeeStatus(%s) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
