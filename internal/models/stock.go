// Package models provides domain models for the fee calculator.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceDateLayout is the calendar-date layout used for price dates.
const PriceDateLayout = "2006-01-02"

// Direction represents the side of a trade.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection parses a direction, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b":
		return DirectionBuy, nil
	case "sell", "s":
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("invalid direction %q (must be 'buy' or 'sell')", s)
	}
}

// AmountLabel returns the headline label for the trade total.
func (d Direction) AmountLabel() string {
	if d == DirectionSell {
		return "You Receive"
	}
	return "You Pay"
}

// TotalLabel returns the breakdown footer label.
func (d Direction) TotalLabel() string {
	return "TOTAL " + strings.ToUpper(d.AmountLabel())
}

// Stock represents a listed security and its last traded price.
type Stock struct {
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	PriceDate   string          `json:"priceDate"`
	IsSuspended bool            `json:"isSuspended"`
}

// PriceTime parses the price date.
func (s Stock) PriceTime() (time.Time, error) {
	return time.Parse(PriceDateLayout, s.PriceDate)
}

// DaysOld returns the whole days elapsed between the price date and now.
// An unparseable price date reports -1.
func (s Stock) DaysOld(now time.Time) int {
	t, err := s.PriceTime()
	if err != nil {
		return -1
	}
	return int(now.Sub(t).Hours() / 24)
}

// IsStale reports whether the price is older than maxDays.
func (s Stock) IsStale(now time.Time, maxDays int) bool {
	return s.DaysOld(now) > maxDays
}

// DisplayName returns "TICKER - Name", marking suspended stocks.
func (s Stock) DisplayName() string {
	name := fmt.Sprintf("%s - %s", s.Ticker, s.Name)
	if s.IsSuspended {
		name += " (Suspended)"
	}
	return name
}
