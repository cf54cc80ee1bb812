package fees

import (
	"github.com/shopspring/decimal"

	"nse-fees/internal/models"
)

// Proof contrasts a one-share buy with a buy at the sweet spot.
type Proof struct {
	Single              TradeResult     `json:"single"`
	SweetSpot           SweetSpot       `json:"sweetSpot"`
	AtSweetSpot         TradeResult     `json:"atSweetSpot"`
	FeeDifference       decimal.Decimal `json:"feeDifference"`
	PercentagePointsCut decimal.Decimal `json:"percentagePointsCut"`
}

// Proof prices one share and the sweet-spot quantity at the configured threshold.
func (e *Engine) Proof(price decimal.Decimal, terms models.BrokerageTerms) (*Proof, error) {
	single, err := e.CalculateBuy(price, 1, terms)
	if err != nil {
		return nil, err
	}
	spot, err := e.SweetSpot(price, terms, decimal.Zero)
	if err != nil {
		return nil, err
	}
	at := e.compute(models.DirectionBuy, price, spot.Quantity, terms)
	return &Proof{
		Single:              *single,
		SweetSpot:           spot,
		AtSweetSpot:         at,
		FeeDifference:       single.TotalFees.Sub(at.TotalFees).Abs(),
		PercentagePointsCut: single.FeePercentage.Sub(at.FeePercentage),
	}, nil
}
