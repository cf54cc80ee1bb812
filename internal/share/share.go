// Package share builds and parses shareable calculation links.
package share

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"nse-fees/internal/fees"
	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
	"nse-fees/pkg/utils"
)

// Query parameter names.
const (
	ParamTicker    = "ticker"
	ParamQuantity  = "qty"
	ParamBroker    = "broker"
	ParamDirection = "direction"
)

// Params is the calculation state carried in a share link. Zero values are
// omitted when building and mean "not set" after parsing.
type Params struct {
	Ticker    string           `json:"ticker,omitempty"`
	Quantity  int64            `json:"qty,omitempty"`
	BrokerID  string           `json:"broker,omitempty"`
	Direction models.Direction `json:"direction,omitempty"`
}

// Encode returns the query string for p, without a leading '?'.
func (p Params) Encode() string {
	v := url.Values{}
	if p.Ticker != "" {
		v.Set(ParamTicker, strings.ToUpper(p.Ticker))
	}
	if p.Quantity > 0 {
		v.Set(ParamQuantity, strconv.FormatInt(p.Quantity, 10))
	}
	if p.BrokerID != "" {
		v.Set(ParamBroker, p.BrokerID)
	}
	if p.Direction != "" {
		v.Set(ParamDirection, string(p.Direction))
	}
	return v.Encode()
}

// BuildURL appends p to base. An empty parameter set returns base unchanged.
func BuildURL(base string, p Params) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	u.RawQuery = p.Encode()
	return u.String(), nil
}

// Parse reads a share link or bare query string. Values that do not resolve
// against the catalog (unknown ticker or broker, non-positive or
// non-integer quantity, unknown direction) are dropped rather than rejected.
func Parse(raw string, catalog refdata.Provider) Params {
	query := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return Params{}
	}

	var p Params
	if t := values.Get(ParamTicker); t != "" {
		if st, err := catalog.GetStock(t); err == nil {
			p.Ticker = st.Ticker
		}
	}
	if q, err := strconv.ParseInt(values.Get(ParamQuantity), 10, 64); err == nil && q > 0 {
		p.Quantity = q
	}
	if b := values.Get(ParamBroker); b != "" {
		if br, err := catalog.GetBroker(b); err == nil {
			p.BrokerID = br.ID
		}
	}
	if d, err := models.ParseDirection(values.Get(ParamDirection)); err == nil {
		p.Direction = d
	}
	return p
}

// Summary is the data rendered into a share message.
type Summary struct {
	Stock     models.Stock
	Quantity  int64
	Result    *fees.TradeResult
	BreakEven *fees.BreakEven
	Status    fees.FeeStatus
	Link      string
}

// Text renders s as a short plain-text message.
func (s Summary) Text() string {
	var b strings.Builder
	r := s.Result
	action := "Buy"
	if r.Direction == models.DirectionSell {
		action = "Sell"
	}

	fmt.Fprintf(&b, "%s %s %s @ %s\n", action, utils.FormatQuantity(s.Quantity), s.Stock.DisplayName(), utils.FormatKES(s.Stock.Price))
	fmt.Fprintf(&b, "%s: %s\n", r.AmountLabel, utils.FormatKES(r.TotalAmount))
	fmt.Fprintf(&b, "Fees: %s (%s) %s\n", utils.FormatKES(r.TotalFees), utils.FormatPercent(r.FeePercentage), s.Status.Emoji)
	if r.StampDuty.GreaterThan(decimal.Zero) {
		fmt.Fprintf(&b, "Stamp duty: %s\n", utils.FormatKES(r.StampDuty))
	}
	if s.BreakEven != nil {
		fmt.Fprintf(&b, "Break-even: %s (%s)\n", utils.FormatKES(s.BreakEven.BreakEvenPrice), utils.FormatChange(s.BreakEven.BreakEvenPct))
	}
	if s.Link != "" {
		b.WriteString(s.Link + "\n")
	}
	return b.String()
}
