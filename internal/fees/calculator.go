package fees

import (
	"github.com/shopspring/decimal"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Engine computes fees against a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiers := make([]Tier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	cfg.Tiers = tiers
	return &Engine{cfg: cfg}, nil
}

// MustNewEngine is NewEngine that panics on an invalid configuration.
func MustNewEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Tiers = append([]Tier(nil), e.cfg.Tiers...)
	return cfg
}

// TradeInput is a single fee calculation request.
type TradeInput struct {
	Direction     models.Direction
	PricePerShare decimal.Decimal
	Quantity      int64
	Terms         models.BrokerageTerms
}

// TradeResult is the itemised fee breakdown of a trade.
type TradeResult struct {
	Direction      models.Direction `json:"direction"`
	Consideration  decimal.Decimal  `json:"consideration"`
	Brokerage      decimal.Decimal  `json:"brokerage"`
	VATOnBrokerage decimal.Decimal  `json:"vatOnBrokerage"`
	NSELevy        decimal.Decimal  `json:"nseLevy"`
	CMALevy        decimal.Decimal  `json:"cmaLevy"`
	CDSCFee        decimal.Decimal  `json:"cdscFee"`
	ICFLevy        decimal.Decimal  `json:"icfLevy"`
	StampDuty      decimal.Decimal  `json:"stampDuty"`
	TotalFees      decimal.Decimal  `json:"totalFees"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	FeePercentage  decimal.Decimal  `json:"feePercentage"`
	AmountLabel    string           `json:"amountLabel"`
}

// Validation is the structured outcome of input validation.
type Validation struct {
	Valid  bool                         `json:"valid"`
	Errors []*apperrors.ValidationError `json:"errors,omitempty"`
}

// Err returns nil for valid input, otherwise an error wrapping ErrInputValidation.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return apperrors.ValidationErrors(v.Errors)
}

// ValidateInputs checks the inputs a calculation needs.
func ValidateInputs(price decimal.Decimal, quantity int64, rate decimal.Decimal) Validation {
	var errs []*apperrors.ValidationError
	if !price.IsPositive() {
		errs = append(errs, apperrors.NewValidationError("pricePerShare", price.String(), "must be greater than zero"))
	}
	if quantity <= 0 {
		errs = append(errs, apperrors.NewValidationError("quantity", quantity, "must be a positive whole number"))
	}
	if rate.IsNegative() {
		errs = append(errs, apperrors.NewValidationError("brokerageRate", rate.String(), "must not be negative"))
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// Validate checks a full TradeInput, including direction and minimum fee.
func (in TradeInput) Validate() Validation {
	v := ValidateInputs(in.PricePerShare, in.Quantity, in.Terms.Rate)
	if in.Terms.MinFee.IsNegative() {
		v.Errors = append(v.Errors, apperrors.NewValidationError("minBrokerageFee", in.Terms.MinFee.String(), "must not be negative"))
	}
	if in.Direction != models.DirectionBuy && in.Direction != models.DirectionSell {
		v.Errors = append(v.Errors, apperrors.NewValidationError("direction", string(in.Direction), "must be buy or sell"))
	}
	v.Valid = len(v.Errors) == 0
	return v
}

// CalculateTrade validates the input and returns its fee breakdown.
// Invalid input yields a ValidationErrors error and no result.
func (e *Engine) CalculateTrade(in TradeInput) (*TradeResult, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	r := e.compute(in.Direction, in.PricePerShare, in.Quantity, in.Terms)
	return &r, nil
}

// CalculateBuy is CalculateTrade for the buy side.
func (e *Engine) CalculateBuy(price decimal.Decimal, quantity int64, terms models.BrokerageTerms) (*TradeResult, error) {
	return e.CalculateTrade(TradeInput{Direction: models.DirectionBuy, PricePerShare: price, Quantity: quantity, Terms: terms})
}

// CalculateSell is CalculateTrade for the sell side.
func (e *Engine) CalculateSell(price decimal.Decimal, quantity int64, terms models.BrokerageTerms) (*TradeResult, error) {
	return e.CalculateTrade(TradeInput{Direction: models.DirectionSell, PricePerShare: price, Quantity: quantity, Terms: terms})
}

// compute performs the calculation without validation. Amounts are kept at
// full precision; rounding is a presentation concern.
func (e *Engine) compute(dir models.Direction, price decimal.Decimal, quantity int64, terms models.BrokerageTerms) TradeResult {
	s := e.cfg.Schedule
	consideration := price.Mul(decimal.NewFromInt(quantity))

	brokerage := decimal.Max(consideration.Mul(terms.Rate), terms.MinFee)
	vat := brokerage.Mul(s.VATRate)
	nse := consideration.Mul(s.NSELevyRate)
	cma := consideration.Mul(s.CMALevyRate)
	cdsc := consideration.Mul(s.CDSCFeeRate)
	icf := consideration.Mul(s.ICFLevyRate)

	stamp := decimal.Zero
	if dir == models.DirectionBuy {
		stamp = s.StampDuty.Amount(consideration)
	}

	total := brokerage.Add(vat).Add(nse).Add(cma).Add(cdsc).Add(icf).Add(stamp)

	amount := consideration.Add(total)
	if dir == models.DirectionSell {
		amount = consideration.Sub(total)
	}

	return TradeResult{
		Direction:      dir,
		Consideration:  consideration,
		Brokerage:      brokerage,
		VATOnBrokerage: vat,
		NSELevy:        nse,
		CMALevy:        cma,
		CDSCFee:        cdsc,
		ICFLevy:        icf,
		StampDuty:      stamp,
		TotalFees:      total,
		TotalAmount:    amount,
		FeePercentage:  percentOf(total, consideration),
		AmountLabel:    dir.AmountLabel(),
	}
}

// percentOf returns part/whole*100, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// IsStampDutySignificant reports whether stamp duty is a noticeable share of consideration.
func (e *Engine) IsStampDutySignificant(stampDuty, consideration decimal.Decimal) bool {
	if !stampDuty.IsPositive() {
		return false
	}
	return percentOf(stampDuty, consideration).GreaterThanOrEqual(e.cfg.StampDutyAlertPct)
}
