package cli

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/pkg/utils"
)

// addAnalysisCommands adds the order-size and broker analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImpactCmd(app))
	rootCmd.AddCommand(newSweetSpotCmd(app))
	rootCmd.AddCommand(newBreakEvenCmd(app))
	rootCmd.AddCommand(newCompareCmd(app))
	rootCmd.AddCommand(newProofCmd(app))
}

func newImpactCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact [ticker]",
		Short: "Show how order size changes the fee percentage",
		Long: `Price buy orders of increasing size and show the fee percentage of each.

By default the sizes are one share plus round quantities worth about
KES 1,000, 5,000, 10,000, 25,000, 50,000 and 100,000.`,
		Example: `  nsefees impact SCOM
  nsefees impact KCB --broker faida
  nsefees impact --price 7.30 --quantities 100,500,1000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, _ := tradeArgs(cmd, args)
			t, err := app.resolveTrade(cmd.Context(), cmd, ticker)
			if err != nil {
				return err
			}

			quantities := fees.ComparisonQuantities(t.Stock.Price)
			if list, _ := cmd.Flags().GetString("quantities"); list != "" {
				quantities = nil
				for _, s := range strings.Split(list, ",") {
					q, err := ParseQuantity(s)
					if err != nil {
						return err
					}
					quantities = append(quantities, q)
				}
			}

			rows := t.engine.FeeImpact(t.Stock.Price, quantities, t.Terms)
			spot, err := t.engine.SweetSpot(t.Stock.Price, t.Terms, decimal.Zero)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock":     t.Stock,
					"broker":    t.BrokerID,
					"rows":      rows,
					"sweetSpot": spot,
				})
			}

			output.Bold("Fee impact: %s @ %s", t.Stock.DisplayName(), utils.FormatKES(t.Stock.Price))
			output.Dim("Broker: %s", t.brokerHint())
			output.Println()

			table := NewTable(output, "Shares", "Trade value", "Fees", "Fee %").AlignRight(0, 1, 2)
			for _, r := range rows {
				table.AddRow(
					utils.FormatQuantity(r.Quantity),
					utils.FormatKES(r.TradeValue),
					utils.FormatKES(r.TotalFees),
					output.FeeCell(t.engine.FeeStatus(r.FeePercentage), r.FeePercentage),
				)
			}
			table.Render()
			output.Println()
			displaySweetSpotLine(output, spot, t.Stock.Price)
			return nil
		},
	}

	addTradeFlags(cmd)
	cmd.Flags().String("quantities", "", "comma-separated share counts to price instead of the defaults")
	return cmd
}

func newSweetSpotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweetspot [ticker]",
		Short: "Find the smallest order that keeps fees low",
		Long: `Find the fewest shares whose buy-side fee percentage is at or below the
threshold (the configured sweet spot unless --threshold is given).`,
		Example: `  nsefees sweetspot SCOM
  nsefees sweetspot EABL --broker aib-axys --threshold 2.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, _ := tradeArgs(cmd, args)
			t, err := app.resolveTrade(cmd.Context(), cmd, ticker)
			if err != nil {
				return err
			}

			threshold := decimal.Zero
			if s, _ := cmd.Flags().GetString("threshold"); s != "" {
				threshold, err = ParseAmount("threshold", strings.TrimSuffix(s, "%"))
				if err != nil {
					return err
				}
				if threshold.IsZero() {
					return apperrors.ValidationErrors{apperrors.NewValidationError("threshold", s, "must be greater than zero")}
				}
			}

			spot, err := t.engine.SweetSpot(t.Stock.Price, t.Terms, threshold)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock":     t.Stock,
					"broker":    t.BrokerID,
					"sweetSpot": spot,
				})
			}
			output.Bold("%s @ %s", t.Stock.DisplayName(), utils.FormatKES(t.Stock.Price))
			output.Dim("Broker: %s", t.brokerHint())
			output.Println()
			displaySweetSpotLine(output, spot, t.Stock.Price)
			return nil
		},
	}

	addTradeFlags(cmd)
	cmd.Flags().String("threshold", "", "target fee percentage, e.g. 2.25")
	return cmd
}

func displaySweetSpotLine(output *Output, spot fees.SweetSpot, price decimal.Decimal) {
	if !spot.ThresholdMet {
		output.Warning("No order up to %s shares brings fees to %s (best %s).",
			utils.FormatQuantity(spot.Quantity), utils.FormatPercent(spot.ThresholdPct), utils.FormatPercent(spot.FeePercentage))
		return
	}
	value := price.Mul(decimal.NewFromInt(spot.Quantity))
	output.Success("🎯 Sweet spot: %s shares (%s) keeps fees at %s, within %s.",
		utils.FormatQuantity(spot.Quantity), utils.FormatKES(value),
		utils.FormatPercent(spot.FeePercentage), utils.FormatPercent(spot.ThresholdPct))
}

func newBreakEvenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakeven [ticker] [quantity]",
		Short: "Find the sell price that recovers all fees",
		Long: `Find the lowest sell price at which selling the position returns at least
what buying it cost, fees on both sides included.`,
		Example: `  nsefees breakeven SCOM 100
  nsefees breakeven --price 5 1 --min-fee 50`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, rest := tradeArgs(cmd, args)
			t, err := app.resolveTrade(cmd.Context(), cmd, ticker)
			if err != nil {
				return err
			}
			qty, err := quantityArg(cmd, rest)
			if err != nil {
				return err
			}

			be, err := t.engine.BreakEven(t.Stock.Price, qty, t.Terms)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock":     t.Stock,
					"broker":    t.BrokerID,
					"breakEven": be,
				})
			}

			output.Bold("Break-even: %s %s @ %s", utils.FormatQuantity(qty), t.Stock.DisplayName(), utils.FormatKES(t.Stock.Price))
			output.Dim("Broker: %s", t.brokerHint())
			output.Println()
			output.Printf("  Buy cost:        %s\n", utils.FormatKES(be.BuyTotal))
			output.Printf("  Break-even price: %s\n", output.BoldText(be.BreakEvenPrice.StringFixed(4)))
			output.Printf("  Required move:   %s\n", utils.FormatChange(be.BreakEvenPct))
			output.Printf("  Sell proceeds:   %s\n", utils.FormatKES(be.SellProceeds))
			return nil
		},
	}

	addTradeFlags(cmd)
	addQuantityFlag(cmd)
	return cmd
}

func newCompareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [ticker] [quantity]",
		Short: "Compare brokers for a buy order",
		Long:  `Price the same buy order with every registered broker, cheapest first.`,
		Example: `  nsefees compare SCOM 100
  nsefees compare --price 250 10`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, rest := tradeArgs(cmd, args)
			t, err := app.resolveTrade(cmd.Context(), cmd, ticker)
			if err != nil {
				return err
			}
			qty, err := quantityArg(cmd, rest)
			if err != nil {
				return err
			}
			if v := fees.ValidateInputs(t.Stock.Price, qty, decimal.Zero); !v.Valid {
				return v.Err()
			}

			rows := t.engine.CompareBrokers(t.Stock.Price, qty, t.catalog.AllBrokers())

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock":    t.Stock,
					"quantity": qty,
					"brokers":  rows,
				})
			}

			output.Bold("Broker comparison: buy %s %s @ %s", utils.FormatQuantity(qty), t.Stock.DisplayName(), utils.FormatKES(t.Stock.Price))
			output.Println()
			table := NewTable(output, "#", "Broker", "Rate", "Min fee", "Fees", "Fee %", "You Pay").AlignRight(0, 2, 3, 4, 6)
			for i, r := range rows {
				name := r.BrokerName
				if i == 0 {
					name = output.Green(name + " ✓")
				}
				table.AddRow(
					utils.FormatQuantity(int64(i+1)),
					name,
					utils.FormatRate(r.BrokerageRate),
					utils.FormatAmount(r.MinFee),
					utils.FormatKES(r.TotalFees),
					output.FeeCell(t.engine.FeeStatus(r.FeePercentage), r.FeePercentage),
					utils.FormatKES(r.TotalAmount),
				)
			}
			table.Render()

			if len(rows) > 1 {
				saving := rows[len(rows)-1].TotalFees.Sub(rows[0].TotalFees)
				output.Println()
				output.Info("Cheapest saves %s over the most expensive.", utils.FormatKES(saving))
			}
			return nil
		},
	}

	addTradeFlags(cmd)
	addQuantityFlag(cmd)
	return cmd
}

func newProofCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof [ticker]",
		Short: "Contrast buying one share with buying at the sweet spot",
		Example: `  nsefees proof SCOM
  nsefees proof EQTY --broker ncba`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, _ := tradeArgs(cmd, args)
			t, err := app.resolveTrade(cmd.Context(), cmd, ticker)
			if err != nil {
				return err
			}

			p, err := t.engine.Proof(t.Stock.Price, t.Terms)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock":  t.Stock,
					"broker": t.BrokerID,
					"proof":  p,
				})
			}

			output.Bold("Why order size matters: %s @ %s", t.Stock.DisplayName(), utils.FormatKES(t.Stock.Price))
			output.Dim("Broker: %s", t.brokerHint())
			output.Println()

			table := NewTable(output, "", "1 share", utils.FormatQuantity(p.SweetSpot.Quantity)+" shares").AlignRight(1, 2)
			table.AddRow("Trade value", utils.FormatKES(p.Single.Consideration), utils.FormatKES(p.AtSweetSpot.Consideration))
			table.AddRow("Total fees", utils.FormatKES(p.Single.TotalFees), utils.FormatKES(p.AtSweetSpot.TotalFees))
			table.AddRow("Fee %",
				output.FeeCell(t.engine.FeeStatus(p.Single.FeePercentage), p.Single.FeePercentage),
				output.FeeCell(t.engine.FeeStatus(p.AtSweetSpot.FeePercentage), p.AtSweetSpot.FeePercentage))
			table.Render()
			output.Println()

			if p.SweetSpot.Quantity > 1 {
				output.Success("Buying %s shares cuts the fee burden by %s percentage points.",
					utils.FormatQuantity(p.SweetSpot.Quantity), p.PercentagePointsCut.StringFixed(2))
			} else {
				output.Success("A single share is already at the sweet spot.")
			}
			if !p.SweetSpot.ThresholdMet {
				output.Warning("The sweet spot threshold (%s) is out of reach with this broker.", utils.FormatPercent(p.SweetSpot.ThresholdPct))
			}
			return nil
		},
	}

	addTradeFlags(cmd)
	return cmd
}
