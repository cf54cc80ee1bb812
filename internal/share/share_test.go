package share

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"nse-fees/internal/fees"
	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
)

func testCatalog(t *testing.T) *refdata.Catalog {
	t.Helper()
	c, err := refdata.NewCatalogFromDataset(&refdata.Dataset{
		Stocks: []models.Stock{
			{Ticker: "SCOM", Name: "Safaricom", Price: decimal.NewFromInt(50), PriceDate: "2026-10-09"},
		},
		Brokers: []models.Broker{
			{ID: "ziidi", Name: "Ziidi", BrokerageRate: decimal.RequireFromString("0.015")},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalogFromDataset: %v", err)
	}
	return c
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL("https://example.com/calc", Params{
		Ticker:    "scom",
		Quantity:  100,
		BrokerID:  "ziidi",
		Direction: models.DirectionSell,
	})
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	want := "https://example.com/calc?broker=ziidi&direction=sell&qty=100&ticker=SCOM"
	if got != want {
		t.Errorf("BuildURL = %q, want %q", got, want)
	}

	got, _ = BuildURL("https://example.com/calc", Params{})
	if got != "https://example.com/calc" {
		t.Errorf("empty params = %q", got)
	}
}

func TestParse(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name string
		raw  string
		want Params
	}{
		{
			name: "full link",
			raw:  "https://example.com/calc?ticker=scom&qty=100&broker=ZIIDI&direction=sell",
			want: Params{Ticker: "SCOM", Quantity: 100, BrokerID: "ziidi", Direction: models.DirectionSell},
		},
		{
			name: "bare query",
			raw:  "ticker=SCOM&qty=5",
			want: Params{Ticker: "SCOM", Quantity: 5},
		},
		{
			name: "unknown values dropped",
			raw:  "?ticker=NOPE&qty=2.5&broker=nobody&direction=hold",
			want: Params{},
		},
		{
			name: "negative quantity dropped",
			raw:  "?ticker=SCOM&qty=-4",
			want: Params{Ticker: "SCOM"},
		},
		{
			name: "empty",
			raw:  "",
			want: Params{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.raw, c); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	c := testCatalog(t)
	p := Params{Ticker: "SCOM", Quantity: 23, BrokerID: "ziidi", Direction: models.DirectionBuy}
	link, err := BuildURL("https://example.com/", p)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if got := Parse(link, c); got != p {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}

func TestSummaryText(t *testing.T) {
	e := fees.MustNewEngine(fees.DefaultConfig())
	terms := models.BrokerageTerms{Rate: decimal.RequireFromString("0.015")}
	price := decimal.NewFromInt(50)

	r, err := e.CalculateBuy(price, 10, terms)
	if err != nil {
		t.Fatalf("CalculateBuy: %v", err)
	}
	be, err := e.BreakEven(price, 10, terms)
	if err != nil {
		t.Fatalf("BreakEven: %v", err)
	}

	text := Summary{
		Stock:     models.Stock{Ticker: "SCOM", Name: "Safaricom", Price: price},
		Quantity:  10,
		Result:    r,
		BreakEven: be,
		Status:    e.FeeStatus(r.FeePercentage),
		Link:      "https://example.com/?ticker=SCOM",
	}.Text()

	for _, want := range []string{
		"Buy 10 SCOM - Safaricom @ KES 50.00",
		"You Pay: KES 512.35",
		"Fees: KES 12.35 (2.47%)",
		"Stamp duty: KES 2.00",
		"Break-even: KES 52.32 (+4.64%)",
		"https://example.com/?ticker=SCOM",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}
