// Package fees computes NSE trade fees and the analytics derived from them.
//
// Every function in this package is pure: results depend only on the
// arguments and the Engine's configuration, and an Engine is safe for
// concurrent use once built.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
)

// StampDutyRule is the buy-side stamp duty: max(Fixed + Rate*consideration, Minimum).
type StampDutyRule struct {
	Fixed   decimal.Decimal `json:"fixed"`
	Rate    decimal.Decimal `json:"rate"`
	Minimum decimal.Decimal `json:"minimum"`
}

// Amount returns the duty owed on a buy-side consideration.
func (r StampDutyRule) Amount(consideration decimal.Decimal) decimal.Decimal {
	return decimal.Max(r.Fixed.Add(consideration.Mul(r.Rate)), r.Minimum)
}

// Schedule holds the exchange-mandated fee rates.
type Schedule struct {
	VATRate     decimal.Decimal `json:"vatRate"`     // on brokerage
	NSELevyRate decimal.Decimal `json:"nseLevyRate"` // on consideration
	CMALevyRate decimal.Decimal `json:"cmaLevyRate"`
	CDSCFeeRate decimal.Decimal `json:"cdscFeeRate"`
	ICFLevyRate decimal.Decimal `json:"icfLevyRate"`
	StampDuty   StampDutyRule   `json:"stampDuty"`
}

// LevyRate is the combined rate of every levy charged on consideration.
func (s Schedule) LevyRate() decimal.Decimal {
	return s.NSELevyRate.Add(s.CMALevyRate).Add(s.CDSCFeeRate).Add(s.ICFLevyRate)
}

// DefaultSchedule returns the current NSE fee schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		VATRate:     decimal.RequireFromString("0.16"),
		NSELevyRate: decimal.RequireFromString("0.0012"),
		CMALevyRate: decimal.RequireFromString("0.0012"),
		CDSCFeeRate: decimal.RequireFromString("0.0008"),
		ICFLevyRate: decimal.RequireFromString("0.0001"),
		StampDuty: StampDutyRule{
			Fixed:   decimal.RequireFromString("2"),
			Rate:    decimal.Zero,
			Minimum: decimal.Zero,
		},
	}
}

// Tier is one row of the verdict table. A fee percentage belongs to the
// first tier whose MaxFeePct is >= it; the last tier catches the rest.
type Tier struct {
	Name      string          `json:"name"`
	MaxFeePct decimal.Decimal `json:"maxFeePct"`
	Emoji     string          `json:"emoji"`
	Class     string          `json:"class"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
}

// DefaultTiers returns the built-in verdict table, best tier first.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:      "excellent",
			MaxFeePct: decimal.RequireFromString("2.25"),
			Emoji:     "🟢",
			Class:     "excellent",
			Title:     "Fees are as low as they get",
			Message:   "You are paying close to the regulatory minimum. Buying more will barely move the fee percentage.",
		},
		{
			Name:      "good",
			MaxFeePct: decimal.RequireFromString("2.75"),
			Emoji:     "🟡",
			Class:     "good",
			Title:     "Reasonable fees",
			Message:   "Fixed charges still add a little on top. A slightly larger order would get you to the floor.",
		},
		{
			Name:      "caution",
			MaxFeePct: decimal.RequireFromString("5"),
			Emoji:     "🟠",
			Class:     "caution",
			Title:     "Fees are eating into this trade",
			Message:   "Fixed charges are a noticeable share of this order. Consider buying more shares in one go.",
		},
		{
			Name:      "poor",
			MaxFeePct: decimal.RequireFromString("100"),
			Emoji:     "🔴",
			Class:     "poor",
			Title:     "This trade is mostly fees",
			Message:   "Minimum charges dominate at this size. The stock must rise sharply before you see any profit.",
		},
	}
}

// Config is everything an Engine needs.
type Config struct {
	Schedule              Schedule
	Tiers                 []Tier
	SweetSpotThresholdPct decimal.Decimal
	MaxSweetSpotQuantity  int64
	IntermediateFraction  decimal.Decimal
	StampDutyAlertPct     decimal.Decimal
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Schedule:              DefaultSchedule(),
		Tiers:                 DefaultTiers(),
		SweetSpotThresholdPct: decimal.RequireFromString("2.25"),
		MaxSweetSpotQuantity:  1_000_000,
		IntermediateFraction:  decimal.RequireFromString("0.5"),
		StampDutyAlertPct:     decimal.RequireFromString("0.1"),
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	s := c.Schedule
	rates := map[string]decimal.Decimal{
		"vat_rate":             s.VATRate,
		"nse_levy_rate":        s.NSELevyRate,
		"cma_levy_rate":        s.CMALevyRate,
		"cdsc_fee_rate":        s.CDSCFeeRate,
		"icf_levy_rate":        s.ICFLevyRate,
		"stamp_duty.fixed":     s.StampDuty.Fixed,
		"stamp_duty.rate":      s.StampDuty.Rate,
		"stamp_duty.minimum":   s.StampDuty.Minimum,
		"stamp_duty_alert_pct": c.StampDutyAlertPct,
	}
	for name, v := range rates {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must be non-negative", apperrors.ErrConfigInvalid, name)
		}
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: at least one verdict tier is required", apperrors.ErrConfigInvalid)
	}
	for i := 1; i < len(c.Tiers)-1; i++ {
		if !c.Tiers[i].MaxFeePct.GreaterThan(c.Tiers[i-1].MaxFeePct) {
			return fmt.Errorf("%w: verdict tier %q must have a higher bound than %q",
				apperrors.ErrConfigInvalid, c.Tiers[i].Name, c.Tiers[i-1].Name)
		}
	}

	if !c.SweetSpotThresholdPct.IsPositive() {
		return fmt.Errorf("%w: sweet_spot_threshold_pct must be positive", apperrors.ErrConfigInvalid)
	}
	if c.MaxSweetSpotQuantity < 1 {
		return fmt.Errorf("%w: max_sweet_spot_quantity must be at least 1", apperrors.ErrConfigInvalid)
	}
	if !c.IntermediateFraction.IsPositive() || c.IntermediateFraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: intermediate_fraction must be between 0 and 1", apperrors.ErrConfigInvalid)
	}
	return nil
}
