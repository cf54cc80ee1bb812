// Package utils provides shared utility functions.
package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatKES formats an amount as Kenyan shillings, e.g. "KES 1,234.50".
func FormatKES(amount decimal.Decimal) string {
	return "KES " + FormatAmount(amount)
}

// FormatAmount formats an amount with thousands separators and 2 decimal places.
func FormatAmount(amount decimal.Decimal) string {
	str := amount.Round(2).StringFixed(2)
	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")

	parts := strings.SplitN(str, ".", 2)
	result := formatThousands(parts[0]) + "." + parts[1]
	if negative && !amount.Round(2).IsZero() {
		result = "-" + result
	}
	return result
}

// formatThousands inserts a comma every three digits from the right.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with 2 decimal places, e.g. "2.47%".
func FormatPercent(value decimal.Decimal) string {
	return value.Round(2).StringFixed(2) + "%"
}

// FormatChange formats a signed percentage change, e.g. "+1.25%".
func FormatChange(value decimal.Decimal) string {
	sign := ""
	if value.Round(2).IsPositive() {
		sign = "+"
	}
	return sign + FormatPercent(value)
}

// FormatRate formats a fractional rate as a percentage, e.g. 0.015 -> "1.50%".
func FormatRate(rate decimal.Decimal) string {
	return FormatPercent(rate.Mul(hundred))
}

// FormatQuantity formats a quantity with commas.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + formatThousands(decimal.NewFromInt(-qty).String())
	}
	return formatThousands(decimal.NewFromInt(qty).String())
}

// FormatCompact formats an amount in compact form (K/M/B).
func FormatCompact(amount decimal.Decimal) string {
	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000_000)):
		return amount.Div(decimal.NewFromInt(1_000_000_000)).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return amount.Div(decimal.NewFromInt(1_000_000)).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return amount.Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	}
	return FormatAmount(amount)
}
