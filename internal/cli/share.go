package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/models"
	"nse-fees/internal/share"
)

func addShareCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newShareCmd(app))
}

func newShareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share [ticker] [quantity]",
		Short: "Build a shareable link and summary for a calculation",
		Long: `Encode a calculation as a link and print a short summary to paste into
a chat. With --parse, an existing link is decoded and recalculated; unknown
values in the link are ignored.`,
		Example: `  nsefees share SCOM 100
  nsefees share EQTY 50 --sell --broker ncba
  nsefees share --parse "https://nsecalc.co.ke/?ticker=SCOM&qty=100"`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			direction := models.DirectionBuy
			if sell, _ := cmd.Flags().GetBool("sell"); sell {
				direction = models.DirectionSell
			}

			if raw, _ := cmd.Flags().GetString("parse"); raw != "" {
				cat, err := app.Catalog(ctx)
				if err != nil {
					return err
				}
				p := share.Parse(raw, cat)
				if p.Ticker == "" {
					return fmt.Errorf("%w: link has no known ticker", apperrors.ErrInputValidation)
				}
				args = []string{p.Ticker}
				if p.Quantity > 0 {
					args = append(args, strconv.FormatInt(p.Quantity, 10))
				}
				if p.BrokerID != "" {
					if err := cmd.Flags().Set("broker", p.BrokerID); err != nil {
						return err
					}
				}
				if p.Direction != "" {
					direction = p.Direction
				}
			}

			ticker, rest := tradeArgs(cmd, args)
			if ticker == "" {
				return fmt.Errorf("%w: a ticker is required to share", apperrors.ErrInputValidation)
			}
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

			params := share.Params{Ticker: t.Stock.Ticker, Quantity: qty, Direction: direction}
			if t.BrokerID != models.CustomBrokerID {
				params.BrokerID = t.BrokerID
			}
			base, _ := cmd.Flags().GetString("base-url")
			if base == "" {
				base = app.Config.UI.ShareBaseURL
			}
			link, err := share.BuildURL(base, params)
			if err != nil {
				return err
			}

			summary := share.Summary{
				Stock:     t.Stock,
				Quantity:  qty,
				Result:    report.Result,
				BreakEven: report.BreakEven,
				Status:    report.Status,
				Link:      link,
			}
			text := summary.Text()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"params": params,
					"link":   link,
					"text":   text,
				})
			}
			output.Printf("%s", text)
			if t.BrokerID == models.CustomBrokerID {
				output.Println()
				output.Dim("Custom brokerage terms are not carried in the link.")
			}
			return nil
		},
	}

	addTradeFlags(cmd)
	addQuantityFlag(cmd)
	cmd.Flags().BoolP("sell", "s", false, "share a sell order instead of a buy")
	cmd.Flags().String("base-url", "", "link base URL (default from ui.share_base_url)")
	cmd.Flags().String("parse", "", "decode a share link and recalculate it")
	return cmd
}
