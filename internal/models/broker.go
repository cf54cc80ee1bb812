package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CustomBrokerID is the sentinel id for caller-supplied terms.
const CustomBrokerID = "custom"

// Broker represents a stockbroker's rate schedule.
type Broker struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	BrokerageRate decimal.Decimal `json:"brokerageRate"`
	MinFee        decimal.Decimal `json:"minFee"`
}

// IsCustom reports whether b is the custom sentinel entry.
func (b Broker) IsCustom() bool {
	return b.ID == CustomBrokerID
}

// Terms returns the broker's concrete brokerage terms.
func (b Broker) Terms() BrokerageTerms {
	return BrokerageTerms{Rate: b.BrokerageRate, MinFee: b.MinFee}
}

// Hint describes the rate schedule, e.g. "Rate: 1.50%, no minimum fee".
func (b Broker) Hint() string {
	rate := b.BrokerageRate.Mul(decimal.NewFromInt(100)).StringFixed(2)
	if b.MinFee.IsPositive() {
		return fmt.Sprintf("Rate: %s%%, min KES %s", rate, b.MinFee.String())
	}
	return fmt.Sprintf("Rate: %s%%, no minimum fee", rate)
}

// BrokerageTerms is a resolved (rate, minimum fee) pair.
type BrokerageTerms struct {
	Rate   decimal.Decimal `json:"rate"`
	MinFee decimal.Decimal `json:"minFee"`
}

// BrokerTerms selects brokerage terms: either a registered broker or custom values.
type BrokerTerms interface {
	brokerTerms()
}

// RegisteredBroker selects the terms of a broker in the reference dataset.
type RegisteredBroker struct {
	ID string
}

// CustomTerms carries caller-supplied terms.
type CustomTerms struct {
	Rate   decimal.Decimal
	MinFee decimal.Decimal
}

func (RegisteredBroker) brokerTerms() {}
func (CustomTerms) brokerTerms()      {}
