package fees

import (
	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

// Break-even solution methods.
const (
	MethodProportional = "closed_form_proportional"
	MethodMinimumFee   = "closed_form_minimum_fee"
	MethodNumerical    = "numerical"
)

const (
	breakEvenPricePlaces   = 4
	breakEvenSearchDoubles = 64
	breakEvenBisections    = 200
)

// BreakEven is the price a position must reach to recover its round-trip fees.
type BreakEven struct {
	BuyPrice       decimal.Decimal `json:"buyPrice"`
	Quantity       int64           `json:"quantity"`
	BuyTotal       decimal.Decimal `json:"buyTotal"`
	BreakEvenPrice decimal.Decimal `json:"breakEvenPrice"`
	BreakEvenPct   decimal.Decimal `json:"breakEvenPct"`
	SellProceeds   decimal.Decimal `json:"sellProceeds"`
	Method         string          `json:"method"`
}

// BreakEven solves for the sell price at which selling quantity shares
// returns at least what buying them cost, fees on both sides included.
//
// Sell proceeds are c - max(c*r, m)*(1+vat) - c*levies for consideration c,
// which is linear in c on either side of the minimum-fee kink. Each side is
// solved in closed form and accepted only if the solution lies on that side.
// Otherwise, or if rounding leaves the answer a fraction short, the price is
// found by bisection on the calculator itself.
func (e *Engine) BreakEven(price decimal.Decimal, quantity int64, terms models.BrokerageTerms) (*BreakEven, error) {
	buy, err := e.CalculateBuy(price, quantity, terms)
	if err != nil {
		return nil, err
	}
	target := buy.TotalAmount
	qty := decimal.NewFromInt(quantity)

	s := e.cfg.Schedule
	one := decimal.NewFromInt(1)
	vatFactor := one.Add(s.VATRate)
	levies := s.LevyRate()

	var (
		consideration decimal.Decimal
		method        string
	)

	// Brokerage above its floor: c*(1 - r*(1+vat) - levies) = target.
	if k := one.Sub(terms.Rate.Mul(vatFactor)).Sub(levies); k.IsPositive() {
		c := target.Div(k)
		if c.Mul(terms.Rate).GreaterThanOrEqual(terms.MinFee) {
			consideration, method = c, MethodProportional
		}
	}
	// Brokerage pinned at the floor: c*(1 - levies) - m*(1+vat) = target.
	if method == "" {
		if k := one.Sub(levies); k.IsPositive() {
			c := target.Add(terms.MinFee.Mul(vatFactor)).Div(k)
			if c.Mul(terms.Rate).LessThanOrEqual(terms.MinFee) {
				consideration, method = c, MethodMinimumFee
			}
		}
	}

	var bePrice decimal.Decimal
	if method != "" {
		bePrice = consideration.Div(qty).RoundCeil(breakEvenPricePlaces)
		if !e.sellCovers(bePrice, quantity, terms, target) {
			method = ""
		}
	}
	if method == "" {
		p, ok := e.searchBreakEven(price, quantity, terms, target)
		if !ok {
			return nil, apperrors.Wrapf(apperrors.ErrUnreachable,
				"break-even: sell proceeds never cover buy cost of %s", target.StringFixed(2))
		}
		bePrice, method = p, MethodNumerical
	}

	sell := e.compute(models.DirectionSell, bePrice, quantity, terms)
	return &BreakEven{
		BuyPrice:       price,
		Quantity:       quantity,
		BuyTotal:       target,
		BreakEvenPrice: bePrice,
		BreakEvenPct:   percentOf(bePrice.Sub(price), price),
		SellProceeds:   sell.TotalAmount,
		Method:         method,
	}, nil
}

func (e *Engine) sellCovers(price decimal.Decimal, quantity int64, terms models.BrokerageTerms, target decimal.Decimal) bool {
	return e.compute(models.DirectionSell, price, quantity, terms).TotalAmount.GreaterThanOrEqual(target)
}

// searchBreakEven brackets the break-even price by doubling from the buy
// price, then bisects down to the price grid. It gives up after a bounded
// number of steps.
func (e *Engine) searchBreakEven(price decimal.Decimal, quantity int64, terms models.BrokerageTerms, target decimal.Decimal) (decimal.Decimal, bool) {
	two := decimal.NewFromInt(2)
	lo, hi := price, price.Mul(two)
	found := false
	for i := 0; i < breakEvenSearchDoubles; i++ {
		if e.sellCovers(hi, quantity, terms, target) {
			found = true
			break
		}
		lo, hi = hi, hi.Mul(two)
	}
	if !found {
		return decimal.Zero, false
	}

	tick := decimal.New(1, -breakEvenPricePlaces)
	for i := 0; i < breakEvenBisections && hi.Sub(lo).GreaterThan(tick); i++ {
		mid := lo.Add(hi).Div(two).RoundCeil(breakEvenPricePlaces)
		if e.sellCovers(mid, quantity, terms, target) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi.RoundCeil(breakEvenPricePlaces), true
}
