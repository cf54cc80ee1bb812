package fees

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"nse-fees/internal/models"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return gopter.NewProperties(parameters)
}

func money(f float64) decimal.Decimal { return decimal.NewFromFloat(f).Round(2) }
func rate(f float64) decimal.Decimal  { return decimal.NewFromFloat(f).Round(4) }

// Total fees are the sum of the itemised components, and the total amount
// is consideration plus fees on a buy and minus fees on a sell.
func TestProperty_FeeBreakdownSums(t *testing.T) {
	e := newTestEngine(t)
	properties := newProperties()

	properties.Property("total fees equal the sum of components", prop.ForAll(
		func(p float64, qty int64, r float64, m float64, sell bool) bool {
			dir := models.DirectionBuy
			if sell {
				dir = models.DirectionSell
			}
			res, err := e.CalculateTrade(TradeInput{
				Direction:     dir,
				PricePerShare: money(p),
				Quantity:      qty,
				Terms:         models.BrokerageTerms{Rate: rate(r), MinFee: money(m)},
			})
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}

			sum := res.Brokerage.Add(res.VATOnBrokerage).Add(res.NSELevy).Add(res.CMALevy).
				Add(res.CDSCFee).Add(res.ICFLevy).Add(res.StampDuty)
			if !sum.Equal(res.TotalFees) {
				t.Logf("sum %s != total %s", sum, res.TotalFees)
				return false
			}

			if sell {
				if !res.StampDuty.IsZero() {
					t.Logf("sell carried stamp duty %s", res.StampDuty)
					return false
				}
				return res.TotalAmount.Equal(res.Consideration.Sub(res.TotalFees))
			}
			return res.TotalAmount.Equal(res.Consideration.Add(res.TotalFees))
		},
		gen.Float64Range(0.5, 2000),
		gen.Int64Range(1, 100_000),
		gen.Float64Range(0, 0.03),
		gen.Float64Range(0, 200),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Buying more shares never lowers total fees and never raises the fee percentage.
func TestProperty_FeePercentageMonotonic(t *testing.T) {
	e := newTestEngine(t)
	properties := newProperties()

	properties.Property("fee percentage is non-increasing in quantity", prop.ForAll(
		func(p float64, qty int64, extra int64, r float64, m float64) bool {
			tr := models.BrokerageTerms{Rate: rate(r), MinFee: money(m)}
			a := e.compute(models.DirectionBuy, money(p), qty, tr)
			b := e.compute(models.DirectionBuy, money(p), qty+extra, tr)

			if !b.Consideration.GreaterThan(a.Consideration) {
				t.Logf("consideration did not grow: %s -> %s", a.Consideration, b.Consideration)
				return false
			}
			if b.TotalFees.LessThan(a.TotalFees) {
				t.Logf("fees fell: %s -> %s", a.TotalFees, b.TotalFees)
				return false
			}
			if b.FeePercentage.GreaterThan(a.FeePercentage) {
				t.Logf("fee %% rose: %s -> %s (qty %d -> %d)", a.FeePercentage, b.FeePercentage, qty, qty+extra)
				return false
			}
			return true
		},
		gen.Float64Range(0.5, 2000),
		gen.Int64Range(1, 50_000),
		gen.Int64Range(1, 50_000),
		gen.Float64Range(0, 0.03),
		gen.Float64Range(0, 200),
	))

	properties.TestingRun(t)
}

// The sweet spot is the smallest quantity meeting the threshold.
func TestProperty_SweetSpotIsTight(t *testing.T) {
	e := newTestEngine(t)
	threshold := e.Config().SweetSpotThresholdPct
	properties := newProperties()

	properties.Property("sweet spot meets the threshold and one share fewer does not", prop.ForAll(
		func(p float64, r float64, m float64) bool {
			price := money(p)
			tr := models.BrokerageTerms{Rate: rate(r), MinFee: money(m)}
			s, err := e.SweetSpot(price, tr, decimal.Zero)
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			if !s.ThresholdMet {
				return true
			}
			if e.feePctAt(price, s.Quantity, tr).GreaterThan(threshold) {
				t.Logf("quantity %d misses the threshold", s.Quantity)
				return false
			}
			if s.Quantity > 1 && e.feePctAt(price, s.Quantity-1, tr).LessThanOrEqual(threshold) {
				t.Logf("quantity %d also meets the threshold", s.Quantity-1)
				return false
			}
			return true
		},
		gen.Float64Range(0.5, 2000),
		gen.Float64Range(0, 0.016),
		gen.Float64Range(0, 200),
	))

	properties.TestingRun(t)
}

// Comparison rows come back cheapest first whatever order the brokers were given in.
func TestProperty_CompareBrokersSorted(t *testing.T) {
	e := newTestEngine(t)
	brokers := []models.Broker{
		{ID: "a", Name: "A", BrokerageRate: d("0.021"), MinFee: d("100")},
		{ID: "b", Name: "B", BrokerageRate: d("0.012"), MinFee: d("0")},
		{ID: "c", Name: "C", BrokerageRate: d("0.015"), MinFee: d("25")},
		{ID: "d", Name: "D", BrokerageRate: d("0.018"), MinFee: d("0")},
		{ID: models.CustomBrokerID, Name: "Custom"},
	}
	reversed := make([]models.Broker, len(brokers))
	for i, b := range brokers {
		reversed[len(brokers)-1-i] = b
	}
	properties := newProperties()

	properties.Property("rows are sorted and independent of input order", prop.ForAll(
		func(p float64, qty int64) bool {
			rows := e.CompareBrokers(money(p), qty, brokers)
			other := e.CompareBrokers(money(p), qty, reversed)
			if len(rows) != len(brokers)-1 || len(other) != len(rows) {
				return false
			}
			for i := range rows {
				if i > 0 && rows[i].TotalFees.LessThan(rows[i-1].TotalFees) {
					t.Logf("row %d cheaper than row %d", i, i-1)
					return false
				}
				if !rows[i].TotalFees.Equal(other[i].TotalFees) {
					t.Logf("order-dependent fees at row %d", i)
					return false
				}
			}
			return true
		},
		gen.Float64Range(0.5, 2000),
		gen.Int64Range(1, 100_000),
	))

	properties.TestingRun(t)
}

// Selling at the break-even price recovers the full buy cost.
func TestProperty_BreakEvenRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	properties := newProperties()

	properties.Property("sell proceeds at break-even cover the buy total", prop.ForAll(
		func(p float64, qty int64, r float64, m float64) bool {
			price := money(p)
			tr := models.BrokerageTerms{Rate: rate(r), MinFee: money(m)}
			be, err := e.BreakEven(price, qty, tr)
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			sell := e.compute(models.DirectionSell, be.BreakEvenPrice, qty, tr)
			if sell.TotalAmount.LessThan(be.BuyTotal) {
				t.Logf("proceeds %s below buy total %s at %s", sell.TotalAmount, be.BuyTotal, be.BreakEvenPrice)
				return false
			}
			return be.BreakEvenPrice.GreaterThan(price)
		},
		gen.Float64Range(0.5, 2000),
		gen.Int64Range(1, 100_000),
		gen.Float64Range(0, 0.03),
		gen.Float64Range(0, 200),
	))

	properties.TestingRun(t)
}
