package prices

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
	"nse-fees/pkg/utils"
)

const tickerBody = `{
  "message": [
    {"snapshot": [
      {"issuer": "SCOM", "price": 28.456},
      {"issuer": "EQTY", "price": 52.75},
      {"issuer": "KCB", "price": null},
      {"issuer": "", "price": 3}
    ]},
    {"updated_at": {"date": "9/10/2026", "time": "15:00", "market_status": "CLOSED"}}
  ]
}`

func testClient(url string) *Client {
	cfg := DefaultClientConfig()
	cfg.APIURL = url
	cfg.Retry = utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	return NewClient(cfg)
}

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Origin") != "https://www.nse.co.ke" {
			t.Errorf("Origin = %q", r.Header.Get("Origin"))
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body %s: %v", body, err)
		}
		if req["isinno"] != DefaultAccount || req["nopage"] != "true" {
			t.Errorf("request = %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, tickerBody)
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.PriceDate != "2026-10-09" {
		t.Errorf("PriceDate = %q, want 2026-10-09", snap.PriceDate)
	}
	if snap.Meta.MarketStatus != "CLOSED" {
		t.Errorf("MarketStatus = %q", snap.Meta.MarketStatus)
	}

	m := snap.PriceMap()
	if len(m) != 2 {
		t.Fatalf("PriceMap has %d entries, want 2", len(m))
	}
	if !m["SCOM"].Equal(decimal.RequireFromString("28.46")) {
		t.Errorf("SCOM = %s, want 28.46", m["SCOM"])
	}
}

func TestFetchSnapshot_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, tickerBody)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchSnapshot(context.Background()); err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchSnapshot_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchSnapshot(context.Background())
	if !apperrors.Is(err, apperrors.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchSnapshot_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message": []}`)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchSnapshot(context.Background()); !apperrors.Is(err, apperrors.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func testDataset() *refdata.Dataset {
	return &refdata.Dataset{
		Stocks: []models.Stock{
			{Ticker: "SCOM", Name: "Safaricom", Price: decimal.RequireFromString("28.00"), PriceDate: "2026-10-01"},
			{Ticker: "EQTY", Name: "Equity", Price: decimal.RequireFromString("52.75"), PriceDate: "2026-10-01"},
			{Ticker: "KQ", Name: "Kenya Airways", Price: decimal.RequireFromString("3.83"), PriceDate: "2024-06-14", IsSuspended: true},
		},
		LastUpdated: "2026-10-01",
		DataSource:  "seed",
	}
}

func testSnapshot() *Snapshot {
	p1 := decimal.RequireFromString("28.456")
	p2 := decimal.RequireFromString("52.75")
	return &Snapshot{
		Quotes:    []Quote{{Issuer: "SCOM", Price: &p1}, {Issuer: "EQTY", Price: &p2}},
		PriceDate: "2026-10-09",
	}
}

func TestApply(t *testing.T) {
	ds := testDataset()
	// Saturday 10 Oct 2026, 09:00 Nairobi
	now := time.Date(2026, 10, 10, 6, 0, 0, 0, time.UTC)

	out, report := Apply(ds, testSnapshot(), now, false)

	if report.Updated != 1 || report.Unchanged != 1 || report.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", report.Updated, report.Unchanged, report.Skipped)
	}
	if len(report.SkippedTickers) != 1 || report.SkippedTickers[0] != "KQ" {
		t.Errorf("SkippedTickers = %v", report.SkippedTickers)
	}
	if !report.Weekend {
		t.Error("Saturday should be flagged as a weekend")
	}

	if !out.Stocks[0].Price.Equal(decimal.RequireFromString("28.46")) || out.Stocks[0].PriceDate != "2026-10-09" {
		t.Errorf("SCOM not updated: %+v", out.Stocks[0])
	}
	if out.Stocks[2].PriceDate != "2024-06-14" {
		t.Errorf("skipped stock was touched: %+v", out.Stocks[2])
	}
	if out.LastUpdated != "2026-10-10" || out.DataSource != "NSE via deveintapps.com (fetched 2026-10-10)" {
		t.Errorf("metadata = %q / %q", out.LastUpdated, out.DataSource)
	}
	if !ds.Stocks[0].Price.Equal(decimal.RequireFromString("28.00")) {
		t.Error("input dataset was mutated")
	}
}

func TestApply_NonPositivePriceSkipped(t *testing.T) {
	zero := decimal.Zero
	neg := decimal.RequireFromString("-1")
	snap := testSnapshot()
	snap.Quotes = append(snap.Quotes, Quote{Issuer: "KQ", Price: &zero})

	out, report := Apply(testDataset(), snap, time.Now(), false)
	if report.Updated != 1 || report.Unchanged != 1 || report.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", report.Updated, report.Unchanged, report.Skipped)
	}
	if len(report.SkippedTickers) != 1 || report.SkippedTickers[0] != "KQ" {
		t.Errorf("SkippedTickers = %v", report.SkippedTickers)
	}
	if !out.Stocks[2].Price.Equal(decimal.RequireFromString("3.83")) || out.Stocks[2].PriceDate != "2024-06-14" {
		t.Errorf("zero quote overwrote KQ: %+v", out.Stocks[2])
	}

	snap.Quotes[0].Price = &neg
	_, report = Apply(testDataset(), snap, time.Now(), true)
	if report.Updated != 0 || report.Skipped != 2 {
		t.Errorf("negative quote: updated %d, skipped %d; want 0, 2", report.Updated, report.Skipped)
	}
}

func TestApply_DryRun(t *testing.T) {
	out, report := Apply(testDataset(), testSnapshot(), time.Now(), true)
	if !report.DryRun || report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
	if !out.Stocks[0].Price.Equal(decimal.RequireFromString("28.00")) || out.LastUpdated != "2026-10-01" {
		t.Error("dry run modified the dataset")
	}
}

type stubFetcher struct {
	snap *Snapshot
	err  error
}

func (f stubFetcher) FetchSnapshot(ctx context.Context) (*Snapshot, error) { return f.snap, f.err }

type recordingSink struct {
	saved []*refdata.Dataset
}

func (s *recordingSink) SaveStocks(ctx context.Context, ds *refdata.Dataset) error {
	s.saved = append(s.saved, ds)
	return nil
}

func TestRefresher(t *testing.T) {
	sink := &recordingSink{}
	r := NewRefresher(stubFetcher{snap: testSnapshot()}, zerolog.Nop(), sink)

	if _, _, err := r.Run(context.Background(), testDataset(), true); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(sink.saved) != 0 {
		t.Error("dry run wrote to a sink")
	}

	out, report, err := r.Run(context.Background(), testDataset(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.saved) != 1 || sink.saved[0] != out {
		t.Error("refreshed dataset not saved")
	}
	if report.Updated != 1 {
		t.Errorf("Updated = %d", report.Updated)
	}

	r = NewRefresher(stubFetcher{err: apperrors.ErrUpstream}, zerolog.Nop(), sink)
	if _, _, err := r.Run(context.Background(), testDataset(), false); !apperrors.Is(err, apperrors.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}
