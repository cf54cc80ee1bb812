package refdata

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

func loadEmbedded(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(context.Background(), EmbeddedSource{})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestEmbeddedDataset(t *testing.T) {
	c := loadEmbedded(t)
	ds := c.Dataset()

	if len(ds.Stocks) == 0 || len(ds.Brokers) == 0 {
		t.Fatalf("embedded dataset is empty: %d stocks, %d brokers", len(ds.Stocks), len(ds.Brokers))
	}
	if ds.DefaultBrokerID != DefaultBrokerID {
		t.Errorf("DefaultBrokerID = %q, want %q", ds.DefaultBrokerID, DefaultBrokerID)
	}
	if ds.LastUpdated == "" || ds.DataSource == "" {
		t.Error("dataset metadata missing")
	}

	hasCustom := false
	for _, b := range ds.Brokers {
		if b.IsCustom() {
			hasCustom = true
		}
	}
	if !hasCustom {
		t.Error("embedded brokers should include the custom sentinel")
	}
	for _, ticker := range ds.Popular {
		if _, err := c.GetStock(ticker); err != nil {
			t.Errorf("popular ticker %s not in dataset", ticker)
		}
	}
}

func TestCatalogLookups(t *testing.T) {
	c := loadEmbedded(t)

	s, err := c.GetStock("scom")
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if s.Ticker != "SCOM" || !s.Price.IsPositive() {
		t.Errorf("unexpected stock %+v", s)
	}

	kq, err := c.GetStock("KQ")
	if err != nil {
		t.Fatalf("GetStock(KQ): %v", err)
	}
	if !kq.IsSuspended {
		t.Error("KQ should be flagged suspended")
	}

	if _, err := c.GetStock("NOPE"); !apperrors.Is(err, apperrors.ErrStockNotFound) {
		t.Errorf("err = %v, want ErrStockNotFound", err)
	}
	if _, err := c.GetBroker("nope"); !apperrors.Is(err, apperrors.ErrBrokerNotFound) {
		t.Errorf("err = %v, want ErrBrokerNotFound", err)
	}

	b, err := c.DefaultBroker()
	if err != nil || b.ID != "ziidi" {
		t.Errorf("DefaultBroker = %+v, %v", b, err)
	}
}

func TestResolveTerms(t *testing.T) {
	c := loadEmbedded(t)

	terms, err := ResolveTerms(c, models.RegisteredBroker{ID: "ziidi"})
	if err != nil {
		t.Fatalf("ResolveTerms: %v", err)
	}
	if !terms.Rate.Equal(decimal.RequireFromString("0.015")) {
		t.Errorf("rate = %s, want 0.015", terms.Rate)
	}

	custom := models.CustomTerms{Rate: decimal.RequireFromString("0.02"), MinFee: decimal.NewFromInt(30)}
	terms, err = ResolveTerms(c, custom)
	if err != nil {
		t.Fatalf("ResolveTerms(custom): %v", err)
	}
	if !terms.Rate.Equal(custom.Rate) || !terms.MinFee.Equal(custom.MinFee) {
		t.Errorf("custom terms not carried through: %+v", terms)
	}

	tests := []struct {
		name string
		sel  models.BrokerTerms
		want error
	}{
		{"custom sentinel by id", models.RegisteredBroker{ID: "custom"}, apperrors.ErrInputValidation},
		{"unknown broker", models.RegisteredBroker{ID: "unknown"}, apperrors.ErrBrokerNotFound},
		{"negative custom rate", models.CustomTerms{Rate: decimal.NewFromInt(-1)}, apperrors.ErrInputValidation},
		{"nil selection", nil, apperrors.ErrInputValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResolveTerms(c, tt.sel); !apperrors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDirSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	ds, err := EmbeddedSource{}.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dir := NewDirSource(t.TempDir())
	if _, err := dir.Load(ctx); !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("empty dir: err = %v, want ErrDataNotFound", err)
	}

	ds.Stocks[0].Price = decimal.RequireFromString("123.45")
	if err := dir.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := dir.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Stocks) != len(ds.Stocks) || len(got.Brokers) != len(ds.Brokers) {
		t.Fatalf("round trip lost records")
	}
	if !got.Stocks[0].Price.Equal(ds.Stocks[0].Price) {
		t.Errorf("price = %s, want %s", got.Stocks[0].Price, ds.Stocks[0].Price)
	}
	if got.LastUpdated != ds.LastUpdated || got.DefaultBrokerID != ds.DefaultBrokerID {
		t.Errorf("metadata lost: %+v", got)
	}
}

func TestDatasetValidate(t *testing.T) {
	ds := &Dataset{
		Stocks: []models.Stock{
			{Ticker: "AAA", Price: decimal.NewFromInt(1)},
			{Ticker: "aaa", Price: decimal.NewFromInt(2)},
		},
	}
	if err := ds.Validate(); err == nil {
		t.Error("duplicate tickers should be rejected")
	}

	ds = &Dataset{Stocks: []models.Stock{{Ticker: "AAA", Price: decimal.Zero}}}
	if err := ds.Validate(); err == nil {
		t.Error("zero price should be rejected")
	}

	ds = &Dataset{Brokers: []models.Broker{{ID: "x", BrokerageRate: decimal.NewFromInt(-1)}}}
	if err := ds.Validate(); err == nil {
		t.Error("negative rate should be rejected")
	}
}

type countingSource struct {
	loads atomic.Int32
	ds    *Dataset
}

func (s *countingSource) Load(ctx context.Context) (*Dataset, error) {
	s.loads.Add(1)
	time.Sleep(20 * time.Millisecond)
	return s.ds.Clone(), nil
}

func TestCatalogReloadSingleFlight(t *testing.T) {
	base, err := EmbeddedSource{}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	src := &countingSource{ds: base}
	c, err := NewCatalog(context.Background(), src)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	src.loads.Store(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Reload(context.Background()); err != nil {
				t.Errorf("Reload: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := src.loads.Load(); n < 1 || n >= 8 {
		t.Errorf("loads = %d, want concurrent reloads to share a load", n)
	}
}
