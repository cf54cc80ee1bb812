package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

// comparisonTradeValues are the trade sizes (KES) the impact table spans.
var comparisonTradeValues = []int64{1_000, 5_000, 10_000, 25_000, 50_000, 100_000}

// ImpactRow is one point on the fee-percentage-vs-quantity curve.
type ImpactRow struct {
	Quantity      int64           `json:"quantity"`
	TradeValue    decimal.Decimal `json:"tradeValue"`
	TotalFees     decimal.Decimal `json:"totalFees"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
}

// SweetSpot is the outcome of the sweet-spot search.
type SweetSpot struct {
	Quantity      int64           `json:"quantity"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
	ThresholdPct  decimal.Decimal `json:"thresholdPct"`
	ThresholdMet  bool            `json:"thresholdMet"`
}

// ComparisonQuantities returns a strictly increasing set of quantities for
// price: a single share, then round quantities whose trade value crosses
// each of the comparison trade sizes.
func ComparisonQuantities(price decimal.Decimal) []int64 {
	quantities := []int64{1}
	if !price.IsPositive() {
		return quantities
	}
	for _, target := range comparisonTradeValues {
		q := niceCeil(decimal.NewFromInt(target).Div(price).Ceil().IntPart())
		if q > quantities[len(quantities)-1] {
			quantities = append(quantities, q)
		}
	}
	return quantities
}

// niceCeil rounds q up to a round number: units below 10, then fives,
// tens, fifties and hundreds as q grows.
func niceCeil(q int64) int64 {
	var step int64
	switch {
	case q < 10:
		return q
	case q < 100:
		step = 5
	case q < 1_000:
		step = 10
	case q < 10_000:
		step = 50
	default:
		step = 100
	}
	return (q + step - 1) / step * step
}

// FeeImpact runs a buy-side calculation for each quantity.
// Non-positive quantities are skipped.
func (e *Engine) FeeImpact(price decimal.Decimal, quantities []int64, terms models.BrokerageTerms) []ImpactRow {
	rows := make([]ImpactRow, 0, len(quantities))
	for _, q := range quantities {
		if q <= 0 {
			continue
		}
		r := e.compute(models.DirectionBuy, price, q, terms)
		rows = append(rows, ImpactRow{
			Quantity:      q,
			TradeValue:    r.Consideration,
			TotalFees:     r.TotalFees,
			FeePercentage: r.FeePercentage,
		})
	}
	return rows
}

// feePctAt is the buy-side fee percentage for quantity q.
func (e *Engine) feePctAt(price decimal.Decimal, q int64, terms models.BrokerageTerms) decimal.Decimal {
	return e.compute(models.DirectionBuy, price, q, terms).FeePercentage
}

// SweetSpot finds the smallest quantity whose buy-side fee percentage is at
// or below thresholdPct. Buy-side fee percentage never rises with quantity,
// so a binary search over [1, MaxSweetSpotQuantity] is exact. When even the
// bound misses the threshold, the bound is returned with ThresholdMet false.
// A zero thresholdPct uses the configured default.
func (e *Engine) SweetSpot(price decimal.Decimal, terms models.BrokerageTerms, thresholdPct decimal.Decimal) (SweetSpot, error) {
	if v := ValidateInputs(price, 1, terms.Rate); !v.Valid {
		return SweetSpot{}, v.Err()
	}
	if terms.MinFee.IsNegative() {
		return SweetSpot{}, apperrors.ValidationErrors{
			apperrors.NewValidationError("minBrokerageFee", terms.MinFee.String(), "must not be negative"),
		}
	}
	if thresholdPct.IsZero() {
		thresholdPct = e.cfg.SweetSpotThresholdPct
	}
	if thresholdPct.IsNegative() {
		return SweetSpot{}, fmt.Errorf("%w: threshold must be positive", apperrors.ErrInputValidation)
	}

	bound := e.cfg.MaxSweetSpotQuantity
	atBound := e.feePctAt(price, bound, terms)
	if atBound.GreaterThan(thresholdPct) {
		return SweetSpot{Quantity: bound, FeePercentage: atBound, ThresholdPct: thresholdPct}, nil
	}

	lo, hi := int64(1), bound
	for lo < hi {
		mid := lo + (hi-lo)/2
		if e.feePctAt(price, mid, terms).LessThanOrEqual(thresholdPct) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return SweetSpot{
		Quantity:      lo,
		FeePercentage: e.feePctAt(price, lo, terms),
		ThresholdPct:  thresholdPct,
		ThresholdMet:  true,
	}, nil
}
