package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/internal/models"
	"nse-fees/internal/refdata"
)

// trade is a resolved stock, price and broker for one command.
type trade struct {
	Stock    models.Stock          `json:"stock"`
	BrokerID string                `json:"broker"`
	Broker   string                `json:"brokerName"`
	Terms    models.BrokerageTerms `json:"terms"`
	Quantity int64                 `json:"quantity,omitempty"`

	engine  *fees.Engine
	catalog *refdata.Catalog
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("broker", "b", "", "broker id (see 'nsefees brokers')")
	cmd.Flags().String("rate", "", "custom brokerage rate in percent, e.g. 1.5")
	cmd.Flags().String("min-fee", "", "custom minimum brokerage fee in KES")
	cmd.Flags().StringP("price", "p", "", "price per share (overrides the stored price)")
}

func addQuantityFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("qty", "q", "", "number of shares")
}

// brokerSelection reads --broker, --rate and --min-fee. A custom rate or
// minimum fee takes precedence over a broker id.
func (a *App) brokerSelection(cmd *cobra.Command, cat *refdata.Catalog) (models.BrokerTerms, error) {
	rateStr, _ := cmd.Flags().GetString("rate")
	minStr, _ := cmd.Flags().GetString("min-fee")
	if rateStr != "" || minStr != "" {
		custom := models.CustomTerms{}
		if rateStr != "" {
			pct, err := ParseAmount("brokerageRate", strings.TrimSuffix(rateStr, "%"))
			if err != nil {
				return nil, err
			}
			custom.Rate = PercentToRate(pct)
		} else {
			def, err := cat.DefaultBroker()
			if err != nil {
				return nil, err
			}
			custom.Rate = def.BrokerageRate
		}
		if minStr != "" {
			m, err := ParseAmount("minBrokerageFee", minStr)
			if err != nil {
				return nil, err
			}
			custom.MinFee = m
		}
		return custom, nil
	}

	id, _ := cmd.Flags().GetString("broker")
	if id == "" {
		id = a.Config.Data.DefaultBroker
	}
	if id == "" {
		def, err := cat.DefaultBroker()
		if err != nil {
			return nil, err
		}
		id = def.ID
	}
	return models.RegisteredBroker{ID: id}, nil
}

// resolveTrade resolves the ticker argument, price override and broker
// flags. With no ticker, --price is required and a placeholder stock is used.
func (a *App) resolveTrade(ctx context.Context, cmd *cobra.Command, ticker string) (*trade, error) {
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	cat, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	t := &trade{engine: engine, catalog: cat}

	priceStr, _ := cmd.Flags().GetString("price")
	switch {
	case ticker != "":
		st, err := cat.GetStock(ticker)
		if err != nil {
			return nil, err
		}
		t.Stock = st
	case priceStr != "":
		t.Stock = models.Stock{Ticker: "CUSTOM", Name: "Custom price", PriceDate: a.now().Format(models.PriceDateLayout)}
	default:
		return nil, fmt.Errorf("%w: a ticker or --price is required", apperrors.ErrInputValidation)
	}
	if priceStr != "" {
		p, err := ParseAmount("pricePerShare", priceStr)
		if err != nil {
			return nil, err
		}
		t.Stock.Price = p
	}

	sel, err := a.brokerSelection(cmd, cat)
	if err != nil {
		return nil, err
	}
	terms, err := refdata.ResolveTerms(cat, sel)
	if err != nil {
		return nil, err
	}
	t.Terms = terms
	switch s := sel.(type) {
	case models.RegisteredBroker:
		b, _ := cat.GetBroker(s.ID)
		t.BrokerID, t.Broker = b.ID, b.Name
	default:
		t.BrokerID, t.Broker = models.CustomBrokerID, "Custom terms"
	}
	return t, nil
}

// tradeArgs splits positional arguments into a ticker and the rest. With
// --price set, a lone numeric argument is taken as the quantity.
func tradeArgs(cmd *cobra.Command, args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	if p, _ := cmd.Flags().GetString("price"); p != "" && len(args) == 1 {
		if _, err := ParseQuantity(args[0]); err == nil {
			return "", args
		}
	}
	return args[0], args[1:]
}

// quantityArg reads the share count from the first remaining argument or
// from --qty.
func quantityArg(cmd *cobra.Command, rest []string) (int64, error) {
	if len(rest) > 0 {
		return ParseQuantity(rest[0])
	}
	if s, _ := cmd.Flags().GetString("qty"); s != "" {
		return ParseQuantity(s)
	}
	return 0, apperrors.ValidationErrors{
		apperrors.NewValidationError("quantity", "", "is required"),
	}
}

func (t *trade) brokerHint() string {
	b := models.Broker{ID: t.BrokerID, Name: t.Broker, BrokerageRate: t.Terms.Rate, MinFee: t.Terms.MinFee}
	return fmt.Sprintf("%s (%s)", t.Broker, b.Hint())
}
