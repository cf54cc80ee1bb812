package refdata

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

// Provider is read access to reference data.
type Provider interface {
	GetStock(ticker string) (models.Stock, error)
	GetBroker(id string) (models.Broker, error)
	AllStocks() []models.Stock
	AllBrokers() []models.Broker
}

// Catalog is an in-memory Provider over a Dataset loaded from a Source.
type Catalog struct {
	src   Source
	group singleflight.Group

	mu      sync.RWMutex
	ds      *Dataset
	stocks  map[string]int
	brokers map[string]int
}

var _ Provider = (*Catalog)(nil)

// NewCatalog loads src and returns a Catalog over it.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	c := &Catalog{src: src}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCatalogFromDataset wraps an already loaded Dataset. Reload is a no-op
// unless a source is attached.
func NewCatalogFromDataset(ds *Dataset) (*Catalog, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	c := &Catalog{}
	c.swap(ds)
	return c, nil
}

// Reload replaces the dataset with a fresh load from the source.
// Concurrent callers share one load.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.src == nil {
		return nil
	}
	_, err, _ := c.group.Do("reload", func() (interface{}, error) {
		ds, err := c.src.Load(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load reference data")
		}
		c.swap(ds)
		return nil, nil
	})
	return err
}

func (c *Catalog) swap(ds *Dataset) {
	stocks := make(map[string]int, len(ds.Stocks))
	for i, s := range ds.Stocks {
		stocks[strings.ToUpper(s.Ticker)] = i
	}
	brokers := make(map[string]int, len(ds.Brokers))
	for i, b := range ds.Brokers {
		brokers[strings.ToLower(b.ID)] = i
	}

	c.mu.Lock()
	c.ds, c.stocks, c.brokers = ds, stocks, brokers
	c.mu.Unlock()
}

// GetStock looks up a stock by ticker, case-insensitively.
func (c *Catalog) GetStock(ticker string) (models.Stock, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.stocks[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return models.Stock{}, apperrors.NewDataError("stock", ticker, "unknown ticker", apperrors.ErrStockNotFound)
	}
	return c.ds.Stocks[i], nil
}

// GetBroker looks up a broker by id.
func (c *Catalog) GetBroker(id string) (models.Broker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.brokers[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return models.Broker{}, apperrors.NewDataError("broker", id, "unknown broker", apperrors.ErrBrokerNotFound)
	}
	return c.ds.Brokers[i], nil
}

// AllStocks returns every stock in dataset order.
func (c *Catalog) AllStocks() []models.Stock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Stock(nil), c.ds.Stocks...)
}

// AllBrokers returns every broker in dataset order, the custom sentinel included.
func (c *Catalog) AllBrokers() []models.Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Broker(nil), c.ds.Brokers...)
}

// Dataset returns a copy of the current dataset.
func (c *Catalog) Dataset() *Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ds.Clone()
}

// DefaultBroker returns the dataset's default broker, falling back to the
// first registered one.
func (c *Catalog) DefaultBroker() (models.Broker, error) {
	c.mu.RLock()
	id := c.ds.DefaultBrokerID
	c.mu.RUnlock()
	if b, err := c.GetBroker(id); err == nil {
		return b, nil
	}
	for _, b := range c.AllBrokers() {
		if !b.IsCustom() {
			return b, nil
		}
	}
	return models.Broker{}, apperrors.NewDataError("broker", id, "no default broker", apperrors.ErrBrokerNotFound)
}

// ResolveTerms turns a broker selection into concrete brokerage terms.
// Selecting the custom sentinel by id is rejected; custom terms must be
// supplied as CustomTerms.
func ResolveTerms(p Provider, sel models.BrokerTerms) (models.BrokerageTerms, error) {
	switch t := sel.(type) {
	case models.CustomTerms:
		var errs apperrors.ValidationErrors
		if t.Rate.IsNegative() {
			errs = append(errs, apperrors.NewValidationError("brokerageRate", t.Rate.String(), "must not be negative"))
		}
		if t.MinFee.IsNegative() {
			errs = append(errs, apperrors.NewValidationError("minBrokerageFee", t.MinFee.String(), "must not be negative"))
		}
		if len(errs) > 0 {
			return models.BrokerageTerms{}, errs
		}
		return models.BrokerageTerms{Rate: t.Rate, MinFee: t.MinFee}, nil
	case models.RegisteredBroker:
		if strings.EqualFold(t.ID, models.CustomBrokerID) {
			return models.BrokerageTerms{}, apperrors.ValidationErrors{
				apperrors.NewValidationError("broker", t.ID, "custom terms need a rate and minimum fee"),
			}
		}
		b, err := p.GetBroker(t.ID)
		if err != nil {
			return models.BrokerageTerms{}, err
		}
		return b.Terms(), nil
	default:
		return models.BrokerageTerms{}, apperrors.Wrapf(apperrors.ErrInputValidation, "unsupported broker selection %T", sel)
	}
}
