// Package refdata provides read access to the stock and broker reference dataset.
package refdata

import (
	"fmt"
	"strings"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

// DefaultBrokerID is the broker selected when none is configured.
const DefaultBrokerID = "ziidi"

// DefaultPopular lists the tickers shown first in stock pickers.
var DefaultPopular = []string{"SCOM", "EQTY", "KCB", "ABSA", "EABL", "COOP", "SCBK", "NCBA"}

// Dataset is a complete snapshot of reference data.
type Dataset struct {
	Stocks          []models.Stock
	Brokers         []models.Broker
	LastUpdated     string
	DataSource      string
	DefaultBrokerID string
	Popular         []string
}

// StockFile is the on-disk shape of stocks.json.
type StockFile struct {
	LastUpdated string         `json:"lastUpdated"`
	DataSource  string         `json:"dataSource"`
	Popular     []string       `json:"popular,omitempty"`
	Stocks      []models.Stock `json:"stocks"`
}

// BrokerFile is the on-disk shape of brokers.json.
type BrokerFile struct {
	DefaultBrokerID string          `json:"defaultBrokerId"`
	Brokers         []models.Broker `json:"brokers"`
}

// FromFiles assembles a Dataset from its two file halves.
func FromFiles(sf StockFile, bf BrokerFile) *Dataset {
	return &Dataset{
		Stocks:          sf.Stocks,
		Brokers:         bf.Brokers,
		LastUpdated:     sf.LastUpdated,
		DataSource:      sf.DataSource,
		DefaultBrokerID: bf.DefaultBrokerID,
		Popular:         sf.Popular,
	}
}

// Files splits a Dataset into its two file halves.
func (d *Dataset) Files() (StockFile, BrokerFile) {
	return StockFile{
			LastUpdated: d.LastUpdated,
			DataSource:  d.DataSource,
			Popular:     d.Popular,
			Stocks:      d.Stocks,
		}, BrokerFile{
			DefaultBrokerID: d.DefaultBrokerID,
			Brokers:         d.Brokers,
		}
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.Stocks = append([]models.Stock(nil), d.Stocks...)
	c.Brokers = append([]models.Broker(nil), d.Brokers...)
	c.Popular = append([]string(nil), d.Popular...)
	return &c
}

// Validate checks identifiers are unique and every record is usable.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Stocks))
	for _, s := range d.Stocks {
		key := strings.ToUpper(s.Ticker)
		if key == "" {
			return apperrors.NewDataError("stock", "", "empty ticker", apperrors.ErrInputValidation)
		}
		if seen[key] {
			return apperrors.NewDataError("stock", s.Ticker, "duplicate ticker", apperrors.ErrInputValidation)
		}
		seen[key] = true
		if !s.Price.IsPositive() {
			return apperrors.NewDataError("stock", s.Ticker, fmt.Sprintf("price %s must be positive", s.Price), apperrors.ErrInputValidation)
		}
	}

	seen = make(map[string]bool, len(d.Brokers))
	for _, b := range d.Brokers {
		if b.ID == "" {
			return apperrors.NewDataError("broker", "", "empty id", apperrors.ErrInputValidation)
		}
		if seen[b.ID] {
			return apperrors.NewDataError("broker", b.ID, "duplicate id", apperrors.ErrInputValidation)
		}
		seen[b.ID] = true
		if b.BrokerageRate.IsNegative() || b.MinFee.IsNegative() {
			return apperrors.NewDataError("broker", b.ID, "rate and minimum fee must not be negative", apperrors.ErrInputValidation)
		}
	}
	return nil
}

// IsPopular reports whether ticker is in the popular list.
func (d *Dataset) IsPopular(ticker string) bool {
	for _, p := range d.Popular {
		if strings.EqualFold(p, ticker) {
			return true
		}
	}
	return false
}
