package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"nse-fees/internal/logging"
	"nse-fees/internal/refdata"
	"nse-fees/pkg/utils"
)

// DataSourceLabel names the feed in dataset metadata.
const DataSourceLabel = "NSE via deveintapps.com"

// Change is one stock's price movement in a refresh.
type Change struct {
	Ticker    string          `json:"ticker"`
	OldPrice  decimal.Decimal `json:"oldPrice"`
	NewPrice  decimal.Decimal `json:"newPrice"`
	ChangePct decimal.Decimal `json:"changePct"`
	Changed   bool            `json:"changed"`
}

// Report summarises a refresh.
type Report struct {
	Today          string     `json:"today"`
	PriceDate      string     `json:"priceDate"`
	Weekend        bool       `json:"weekend"`
	Market         MarketMeta `json:"market"`
	SnapshotSize   int        `json:"snapshotSize"`
	Updated        int        `json:"updated"`
	Unchanged      int        `json:"unchanged"`
	Skipped        int        `json:"skipped"`
	Changes        []Change   `json:"changes"`
	SkippedTickers []string   `json:"skippedTickers,omitempty"`
	DryRun         bool       `json:"dryRun"`
}

// Apply merges snap into a copy of ds. Stocks missing from the snapshot, or
// quoted at a non-positive price, keep their old price and are counted as
// skipped. In a dry run the returned dataset is an unmodified copy.
func Apply(ds *refdata.Dataset, snap *Snapshot, now time.Time, dryRun bool) (*refdata.Dataset, *Report) {
	today := utils.TodayKE(now)
	priceDate := snap.PriceDate
	if priceDate == "" {
		priceDate = today
	}

	out := ds.Clone()
	report := &Report{
		Today:        today,
		PriceDate:    priceDate,
		Weekend:      utils.IsWeekendKE(now),
		Market:       snap.Meta,
		SnapshotSize: len(snap.Quotes),
		DryRun:       dryRun,
	}

	prices := snap.PriceMap()
	for i := range out.Stocks {
		st := &out.Stocks[i]
		newPrice, ok := prices[st.Ticker]
		if !ok || !newPrice.IsPositive() {
			report.Skipped++
			report.SkippedTickers = append(report.SkippedTickers, st.Ticker)
			continue
		}

		c := Change{
			Ticker:   st.Ticker,
			OldPrice: st.Price,
			NewPrice: newPrice,
			Changed:  !newPrice.Equal(st.Price),
		}
		if st.Price.IsPositive() {
			c.ChangePct = newPrice.Sub(st.Price).Div(st.Price).Mul(decimal.NewFromInt(100))
		}
		report.Changes = append(report.Changes, c)
		if c.Changed {
			report.Updated++
		} else {
			report.Unchanged++
		}

		if !dryRun {
			st.Price = newPrice
			st.PriceDate = priceDate
		}
	}

	if !dryRun {
		out.LastUpdated = today
		out.DataSource = fmt.Sprintf("%s (fetched %s)", DataSourceLabel, today)
	}
	return out, report
}

// Fetcher retrieves a snapshot.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// Sink persists refreshed stock data.
type Sink interface {
	SaveStocks(ctx context.Context, ds *refdata.Dataset) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ds *refdata.Dataset) error

// SaveStocks calls f.
func (f SinkFunc) SaveStocks(ctx context.Context, ds *refdata.Dataset) error {
	return f(ctx, ds)
}

// Refresher fetches a snapshot, applies it and writes the result to every sink.
type Refresher struct {
	fetcher Fetcher
	sinks   []Sink
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRefresher creates a Refresher.
func NewRefresher(fetcher Fetcher, logger zerolog.Logger, sinks ...Sink) *Refresher {
	return &Refresher{fetcher: fetcher, sinks: sinks, logger: logger, now: time.Now}
}

// Run refreshes ds. Sinks are skipped in a dry run.
func (r *Refresher) Run(ctx context.Context, ds *refdata.Dataset, dryRun bool) (*refdata.Dataset, *Report, error) {
	log := logging.WithOperation(r.logger, "refresh")

	start := time.Now()
	snap, err := r.fetcher.FetchSnapshot(ctx)
	logging.LogAPICall(log, "POST", "ticker", time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}

	out, report := Apply(ds, snap, r.now(), dryRun)
	if !dryRun {
		for _, s := range r.sinks {
			if err := s.SaveStocks(ctx, out); err != nil {
				return nil, report, fmt.Errorf("failed to save refreshed prices: %w", err)
			}
		}
	}

	logging.LogRefresh(log, report.PriceDate, report.Updated, report.Unchanged, report.Skipped, dryRun)
	return out, report, nil
}
