package fees

import (
	"sort"

	"github.com/shopspring/decimal"

	"nse-fees/internal/models"
)

// ComparisonRow is one broker's cost for a fixed trade.
type ComparisonRow struct {
	BrokerID      string          `json:"brokerId"`
	BrokerName    string          `json:"brokerName"`
	BrokerageRate decimal.Decimal `json:"brokerageRate"`
	MinFee        decimal.Decimal `json:"minFee"`
	TotalFees     decimal.Decimal `json:"totalFees"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
}

// CompareBrokers prices a buy of quantity shares at price with every broker
// except the custom sentinel. Rows are sorted by total fees, cheapest first;
// ties keep the input order.
func (e *Engine) CompareBrokers(price decimal.Decimal, quantity int64, brokers []models.Broker) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(brokers))
	for _, b := range brokers {
		if b.IsCustom() {
			continue
		}
		r := e.compute(models.DirectionBuy, price, quantity, b.Terms())
		rows = append(rows, ComparisonRow{
			BrokerID:      b.ID,
			BrokerName:    b.Name,
			BrokerageRate: b.BrokerageRate,
			MinFee:        b.MinFee,
			TotalFees:     r.TotalFees,
			TotalAmount:   r.TotalAmount,
			FeePercentage: r.FeePercentage,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalFees.LessThan(rows[j].TotalFees)
	})
	return rows
}
