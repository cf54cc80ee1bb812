package cli

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/internal/logging"
	"nse-fees/internal/models"
	"nse-fees/pkg/utils"
)

func addCalcCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCalcCmd(app))
}

// calcReport is the full result of a calculation.
type calcReport struct {
	*trade
	Result         *fees.TradeResult `json:"result"`
	Status         fees.FeeStatus    `json:"feeStatus"`
	Verdict        fees.Verdict      `json:"verdict"`
	SweetSpot      fees.SweetSpot    `json:"sweetSpot"`
	BreakEven      *fees.BreakEven   `json:"breakEven,omitempty"`
	StampDutyAlert bool              `json:"stampDutyAlert"`
	Stale          bool              `json:"stale"`
	StaleNote      string            `json:"staleNote,omitempty"`
}

func newCalcCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc [ticker] [quantity]",
		Short: "Calculate the fees on a trade",
		Long: `Itemise every charge on a buy or sell order and judge the fee burden.

Brokerage is the larger of the broker's rate and its minimum fee, plus VAT.
Statutory levies apply to the trade value on both sides; stamp duty applies
to buys only. For buys the verdict proposes the smallest order that brings
fees down to the sweet spot, and the break-even sell price is shown.`,
		Example: `  nsefees calc SCOM 100
  nsefees calc EQTY 50 --sell --broker ncba
  nsefees calc KCB --qty 200 --rate 1.2 --min-fee 100
  nsefees calc --price 7.30 1000
  nsefees calc --interactive`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !app.Config.UI.ColorEnabled {
				output.DisableColor()
			}
			ctx := cmd.Context()

			direction := models.DirectionBuy
			if sell, _ := cmd.Flags().GetBool("sell"); sell {
				direction = models.DirectionSell
			}

			if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
				cat, err := app.Catalog(ctx)
				if err != nil {
					return err
				}
				ans, err := promptCalc(cat)
				if err != nil {
					return err
				}
				if err := cmd.Flags().Set("broker", ans.BrokerID); err != nil {
					return err
				}
				args = []string{ans.Ticker, strconv.FormatInt(ans.Quantity, 10)}
				direction = ans.Direction
			}

			ticker, rest := tradeArgs(cmd, args)
			t, err := app.resolveTrade(ctx, cmd, ticker)
			if err != nil {
				return err
			}
			qty, err := quantityArg(cmd, rest)
			if err != nil {
				return err
			}
			t.Quantity = qty

			report, err := app.calculate(t, direction)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			displayCalc(output, report)
			return nil
		},
	}

	addTradeFlags(cmd)
	addQuantityFlag(cmd)
	cmd.Flags().BoolP("sell", "s", false, "price a sell order instead of a buy")
	cmd.Flags().BoolP("interactive", "i", false, "choose stock, broker and quantity interactively")

	return cmd
}

func (a *App) calculate(t *trade, direction models.Direction) (*calcReport, error) {
	e := t.engine
	price := t.Stock.Price

	r, err := e.CalculateTrade(fees.TradeInput{
		Direction:     direction,
		PricePerShare: price,
		Quantity:      t.Quantity,
		Terms:         t.Terms,
	})
	if err != nil {
		return nil, err
	}

	spot, err := e.SweetSpot(price, t.Terms, decimal.Zero)
	if err != nil {
		return nil, err
	}
	// Only buys are steered towards a larger order.
	var target int64
	if direction == models.DirectionBuy && spot.ThresholdMet {
		target = spot.Quantity
	}

	report := &calcReport{
		trade:     t,
		Result:    r,
		Status:    e.FeeStatus(r.FeePercentage),
		Verdict:   e.Verdict(t.Quantity, r.FeePercentage, target, fees.VerdictContext{PricePerShare: price, Terms: t.Terms}),
		SweetSpot: spot,
	}

	if direction == models.DirectionBuy {
		report.StampDutyAlert = e.IsStampDutySignificant(r.StampDuty, r.Consideration)
		be, err := e.BreakEven(price, t.Quantity, t.Terms)
		switch {
		case err == nil:
			report.BreakEven = be
		case !apperrors.Is(err, apperrors.ErrUnreachable):
			return nil, err
		}
	}

	now := a.now()
	report.Stale = t.Stock.IsStale(now, a.Config.Analysis.StaleAfterDays)
	report.StaleNote = StalenessNote(t.Stock, now, a.Config.Analysis.StaleAfterDays)

	log := logging.WithBroker(logging.WithTicker(a.Logger, t.Stock.Ticker), t.BrokerID)
	logging.LogCalculation(log, string(direction), price, t.Quantity, r.TotalFees, r.FeePercentage)
	if report.Stale {
		log.Warn().Str("price_date", t.Stock.PriceDate).Msg("Calculating with a stale price")
	}
	return report, nil
}

func displayCalc(output *Output, rep *calcReport) {
	r := rep.Result
	action := "Buy"
	if r.Direction == models.DirectionSell {
		action = "Sell"
	}

	output.Bold("%s %s %s @ %s", action, utils.FormatQuantity(rep.Quantity), rep.Stock.DisplayName(), utils.FormatKES(rep.Stock.Price))
	output.Dim("Broker: %s", rep.brokerHint())
	if rep.StaleNote != "" {
		output.Warning("%s", rep.StaleNote)
	}
	output.Println()

	table := NewTable(output, "Item", "Amount").AlignRight(1)
	for _, row := range breakdownRows(r) {
		table.AddRow(row[0], row[1])
	}
	table.Render()
	output.Println()

	output.Printf("%s: %s   Fees: %s\n", r.AmountLabel, output.BoldText(utils.FormatKES(r.TotalAmount)), output.FeeCell(rep.Status, r.FeePercentage))
	output.Println()
	output.Println(renderVerdictCard(rep.Verdict))

	if rep.StampDutyAlert {
		output.Warning("⚠️  Stamp duty is %s of this trade. A larger order spreads it thinner.",
			utils.FormatPercent(r.StampDuty.Div(r.Consideration).Mul(decimal.NewFromInt(100))))
	}
	if r.Direction == models.DirectionBuy {
		if rep.BreakEven != nil {
			output.Info("Break-even: sell at %s (%s) to recover all fees",
				utils.FormatKES(rep.BreakEven.BreakEvenPrice), utils.FormatChange(rep.BreakEven.BreakEvenPct))
		} else {
			output.Warning("Break-even: fees at these terms can never be recovered by selling")
		}
	}
}
