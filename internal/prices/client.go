// Package prices refreshes stock prices from the NSE live ticker feed.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/pkg/utils"
)

// Defaults for the public ticker feed behind nse.co.ke.
const (
	DefaultAPIURL  = "https://deveintapps.com/nseticker/api/v1/ticker"
	DefaultAccount = "KE3000009674"
	DefaultHost    = "www.nse.co.ke"
	userAgent      = "Mozilla/5.0 (compatible; NSECalc/1.0)"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	APIURL  string
	Account string
	Timeout time.Duration
	Retry   utils.RetryConfig
}

// DefaultClientConfig returns the configuration for the public feed.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:  DefaultAPIURL,
		Account: DefaultAccount,
		Timeout: 30 * time.Second,
		Retry:   utils.DefaultRetryConfig(),
	}
}

// Client fetches price snapshots.
type Client struct {
	client *resty.Client
	cfg    ClientConfig
}

// NewClient creates a new ticker client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Account == "" {
		cfg.Account = DefaultAccount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeaders(map[string]string{
		"Accept":     "application/json",
		"Referer":    "https://" + DefaultHost + "/",
		"Origin":     "https://" + DefaultHost,
		"User-Agent": userAgent,
	})

	return &Client{client: client, cfg: cfg}
}

// Quote is one issuer's closing price.
type Quote struct {
	Issuer string           `json:"issuer"`
	Price  *decimal.Decimal `json:"price"`
}

// MarketMeta describes when the snapshot was taken.
type MarketMeta struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	MarketStatus string `json:"market_status"`
}

// Snapshot is a decoded ticker response.
type Snapshot struct {
	Quotes    []Quote
	Meta      MarketMeta
	PriceDate string
}

type tickerRequest struct {
	NoPage string `json:"nopage"`
	ISINNo string `json:"isinno"`
	Host   string `json:"host"`
}

// The feed returns a heterogeneous array: the first element carries the
// snapshot, the second the update time.
type tickerResponse struct {
	Message []json.RawMessage `json:"message"`
}

type snapshotPart struct {
	Snapshot []Quote `json:"snapshot"`
}

type metaPart struct {
	UpdatedAt MarketMeta `json:"updated_at"`
}

// FetchSnapshot retrieves the current ticker snapshot, retrying transient failures.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	return utils.RetryWithResult(ctx, c.cfg.Retry, func() (*Snapshot, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(tickerRequest{NoPage: "true", ISINNo: c.cfg.Account, Host: DefaultHost}).
			Post(c.cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch ticker: %v", apperrors.ErrUpstream, err)
		}

		if resp.StatusCode() != http.StatusOK {
			err := fmt.Errorf("%w: HTTP %d %s", apperrors.ErrUpstream, resp.StatusCode(), http.StatusText(resp.StatusCode()))
			if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
				return nil, utils.Permanent(err)
			}
			return nil, err
		}

		snap, err := decodeSnapshot(resp.Body())
		if err != nil {
			return nil, utils.Permanent(err)
		}
		return snap, nil
	})
}

func decodeSnapshot(body []byte) (*Snapshot, error) {
	var tr tickerResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ticker response: %v", apperrors.ErrUpstream, err)
	}
	if len(tr.Message) < 2 {
		return nil, fmt.Errorf("%w: ticker response has %d parts, want 2", apperrors.ErrUpstream, len(tr.Message))
	}

	var sp snapshotPart
	if err := json.Unmarshal(tr.Message[0], &sp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse snapshot: %v", apperrors.ErrUpstream, err)
	}
	var mp metaPart
	if err := json.Unmarshal(tr.Message[1], &mp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse update time: %v", apperrors.ErrUpstream, err)
	}

	snap := &Snapshot{Quotes: sp.Snapshot, Meta: mp.UpdatedAt}
	if mp.UpdatedAt.Date != "" {
		d, err := utils.ParseNSEDate(mp.UpdatedAt.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
		}
		snap.PriceDate = d
	}
	return snap, nil
}

// PriceMap returns each issuer's price rounded to cents. Quotes without an
// issuer or price are dropped.
func (s *Snapshot) PriceMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(s.Quotes))
	for _, q := range s.Quotes {
		if q.Issuer == "" || q.Price == nil {
			continue
		}
		m[q.Issuer] = q.Price.Round(2)
	}
	return m
}
