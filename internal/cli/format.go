package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/internal/models"
	"nse-fees/pkg/utils"
)

// tierColor maps a verdict class to a terminal color.
func tierColor(class string) string {
	switch class {
	case "excellent":
		return ColorGreen
	case "good":
		return ColorCyan
	case "caution":
		return ColorYellow
	case "poor":
		return ColorRed
	default:
		return ColorReset
	}
}

// FeeCell formats a fee percentage with its status indicator, e.g. "🟡 2.47%".
func (o *Output) FeeCell(status fees.FeeStatus, pct decimal.Decimal) string {
	return status.Emoji + " " + o.ColoredString(tierColor(status.Class), utils.FormatPercent(pct))
}

// ParseQuantity parses a whole, positive share count. Fractional or
// non-numeric input is a validation error.
func ParseQuantity(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil || q <= 0 {
		return 0, apperrors.ValidationErrors{
			apperrors.NewValidationError("quantity", s, "must be a positive whole number"),
		}
	}
	return q, nil
}

// ParseAmount parses a non-negative decimal flag value such as a price.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.ValidationErrors{
			apperrors.NewValidationError(field, s, "must be a number"),
		}
	}
	if d.IsNegative() {
		return decimal.Zero, apperrors.ValidationErrors{
			apperrors.NewValidationError(field, s, "must not be negative"),
		}
	}
	return d, nil
}

// PercentToRate converts a percentage such as 1.5 into the rate 0.015.
func PercentToRate(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(decimal.NewFromInt(100))
}

// StalenessNote describes an old price, or returns "" for a fresh one.
func StalenessNote(s models.Stock, now time.Time, maxDays int) string {
	if !s.IsStale(now, maxDays) {
		return ""
	}
	note := fmt.Sprintf("⚠️  %s price is %d days old (%s)", s.Ticker, s.DaysOld(now), s.PriceDate)
	if s.IsSuspended {
		note += ", trading suspended"
	}
	return note
}

// breakdownRows returns the itemised lines of a fee breakdown.
func breakdownRows(r *fees.TradeResult) [][2]string {
	rows := [][2]string{
		{"Shares value", utils.FormatKES(r.Consideration)},
		{"Brokerage", utils.FormatKES(r.Brokerage)},
		{"VAT on brokerage", utils.FormatKES(r.VATOnBrokerage)},
		{"NSE levy", utils.FormatKES(r.NSELevy)},
		{"CMA levy", utils.FormatKES(r.CMALevy)},
		{"CDSC fee", utils.FormatKES(r.CDSCFee)},
		{"ICF levy", utils.FormatKES(r.ICFLevy)},
	}
	if r.Direction == models.DirectionBuy {
		rows = append(rows, [2]string{"Stamp duty", utils.FormatKES(r.StampDuty)})
	}
	rows = append(rows,
		[2]string{"Total fees", utils.FormatKES(r.TotalFees)},
		[2]string{r.Direction.TotalLabel(), utils.FormatKES(r.TotalAmount)},
	)
	return rows
}
