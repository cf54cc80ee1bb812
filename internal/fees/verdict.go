package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nse-fees/internal/models"
)

// FeeStatus is the indicator attached to a fee percentage.
type FeeStatus struct {
	Tier  string `json:"tier"`
	Emoji string `json:"emoji"`
	Class string `json:"class"`
}

// VerdictContext carries what the verdict needs to price alternative quantities.
type VerdictContext struct {
	PricePerShare decimal.Decimal
	Terms         models.BrokerageTerms
}

// IntermediateStep is a partial move towards the sweet spot.
type IntermediateStep struct {
	Quantity      int64           `json:"stepQty"`
	FeePercentage decimal.Decimal `json:"stepFee"`
}

// Verdict is fee guidance for the current quantity.
type Verdict struct {
	Tier              string            `json:"tier"`
	Emoji             string            `json:"emoji"`
	Class             string            `json:"class"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	FeePercentage     decimal.Decimal   `json:"feePercentage"`
	SweetSpot         int64             `json:"sweetSpot"`
	SharesToSweetSpot int64             `json:"sharesToSweetSpot"`
	ActionLabel       string            `json:"actionLabel,omitempty"`
	Intermediate      *IntermediateStep `json:"intermediate,omitempty"`
}

// tierFor returns the first tier whose bound covers feePct, else the last.
func (e *Engine) tierFor(feePct decimal.Decimal) Tier {
	for _, t := range e.cfg.Tiers[:len(e.cfg.Tiers)-1] {
		if feePct.LessThanOrEqual(t.MaxFeePct) {
			return t
		}
	}
	return e.cfg.Tiers[len(e.cfg.Tiers)-1]
}

// FeeStatus classifies a fee percentage.
func (e *Engine) FeeStatus(feePct decimal.Decimal) FeeStatus {
	t := e.tierFor(feePct)
	return FeeStatus{Tier: t.Name, Emoji: t.Emoji, Class: t.Class}
}

// Verdict classifies feePct and, when quantity is below sweetSpot, proposes
// jumping to the sweet spot and an intermediate step part of the way there.
// A sweetSpot of zero means none is available and no action is proposed.
func (e *Engine) Verdict(quantity int64, feePct decimal.Decimal, sweetSpot int64, ctx VerdictContext) Verdict {
	t := e.tierFor(feePct)
	v := Verdict{
		Tier:          t.Name,
		Emoji:         t.Emoji,
		Class:         t.Class,
		Title:         t.Title,
		Message:       t.Message,
		FeePercentage: feePct,
		SweetSpot:     sweetSpot,
	}
	if sweetSpot <= 0 || quantity >= sweetSpot {
		return v
	}

	gap := sweetSpot - quantity
	v.SharesToSweetSpot = gap
	v.ActionLabel = fmt.Sprintf("Buy %d shares (+%d) to reach the sweet spot", sweetSpot, gap)

	step := quantity + decimal.NewFromInt(gap).Mul(e.cfg.IntermediateFraction).Ceil().IntPart()
	if step > quantity && step < sweetSpot && ctx.PricePerShare.IsPositive() {
		v.Intermediate = &IntermediateStep{
			Quantity:      step,
			FeePercentage: e.feePctAt(ctx.PricePerShare, step, ctx.Terms),
		}
	}
	return v
}
