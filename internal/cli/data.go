package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"nse-fees/internal/config"
	"nse-fees/internal/models"
	"nse-fees/internal/prices"
	"nse-fees/internal/refdata"
	"nse-fees/internal/store"
	"nse-fees/pkg/utils"
)

// addDataCommands adds reference data commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStocksCmd(app))
	rootCmd.AddCommand(newBrokersCmd(app))
	rootCmd.AddCommand(newRefreshCmd(app))
}

func newStocksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "List stocks and their last prices",
		Example: `  nsefees stocks
  nsefees stocks --popular
  nsefees stocks --search bank`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cat, err := app.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			ds := cat.Dataset()

			popularOnly, _ := cmd.Flags().GetBool("popular")
			search, _ := cmd.Flags().GetString("search")
			search = strings.ToLower(search)

			var stocks []models.Stock
			for _, s := range ds.Stocks {
				if popularOnly && !ds.IsPopular(s.Ticker) {
					continue
				}
				if search != "" && !strings.Contains(strings.ToLower(s.Ticker+" "+s.Name), search) {
					continue
				}
				stocks = append(stocks, s)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"lastUpdated": ds.LastUpdated,
					"dataSource":  ds.DataSource,
					"stocks":      stocks,
				})
			}

			now := app.now()
			maxDays := app.Config.Analysis.StaleAfterDays
			table := NewTable(output, "Ticker", "Name", "Price", "Date", "").AlignRight(2)
			for _, s := range stocks {
				var flags []string
				if ds.IsPopular(s.Ticker) {
					flags = append(flags, "⭐")
				}
				if s.IsSuspended {
					flags = append(flags, output.Red("suspended"))
				}
				if s.IsStale(now, maxDays) {
					flags = append(flags, output.Yellow("stale"))
				}
				table.AddRow(s.Ticker, s.Name, s.Price.StringFixed(2), s.PriceDate, strings.Join(flags, " "))
			}
			table.Render()
			output.Println()
			output.Dim("%d stocks. Prices as of %s from %s.", len(stocks), ds.LastUpdated, ds.DataSource)

			if app.Store != nil {
				tracker := store.NewSyncTracker(app.Store, app.Config.StaleAfter())
				output.Dim("%s", store.FormatFreshness(tracker.GetDataFreshness(store.SyncTypePrices)))
			}
			return nil
		},
	}

	cmd.Flags().Bool("popular", false, "only show popular stocks")
	cmd.Flags().String("search", "", "filter by ticker or name")
	return cmd
}

func newBrokersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "brokers",
		Short: "List brokers and their rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cat, err := app.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			def, _ := cat.DefaultBroker()
			brokers := cat.AllBrokers()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"defaultBrokerId": def.ID,
					"brokers":         brokers,
				})
			}

			table := NewTable(output, "ID", "Name", "Rate", "Min fee", "").AlignRight(2, 3)
			for _, b := range brokers {
				if b.IsCustom() {
					continue
				}
				mark := ""
				if b.ID == def.ID {
					mark = output.Green("default")
				}
				table.AddRow(b.ID, b.Name, utils.FormatRate(b.BrokerageRate), utils.FormatAmount(b.MinFee), mark)
			}
			table.Render()
			output.Println()
			output.Dim("Use --broker <id>, or --rate and --min-fee for other terms.")
			return nil
		},
	}
}

func newRefreshCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh stock prices from the NSE live ticker",
		Long: `Fetch the latest NSE ticker snapshot and update stored stock prices.

Prices are written to the configured data store: the JSON data directory,
or the SQLite database when data.source is "sqlite". Stocks missing from the
snapshot keep their previous price.`,
		Example: `  nsefees refresh
  nsefees refresh --dry-run --verbose
  nsefees refresh --db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			cat, err := app.Catalog(ctx)
			if err != nil {
				return err
			}
			sinks, err := app.refreshSinks(cmd)
			if err != nil {
				return err
			}

			rc := app.Config.Refresh
			retry := utils.DefaultRetryConfig()
			retry.MaxAttempts = rc.Retries
			client := prices.NewClient(prices.ClientConfig{
				APIURL:  rc.APIURL,
				Account: rc.Account,
				Timeout: rc.Timeout,
				Retry:   retry,
			})

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if !output.IsJSON() {
				output.Info("Fetching prices from %s...", rc.APIURL)
			}

			refresher := prices.NewRefresher(client, app.Logger, sinks...)
			_, report, err := refresher.Run(ctx, cat.Dataset(), dryRun)
			if err != nil {
				return err
			}

			if !dryRun && app.Store != nil {
				tracker := store.NewSyncTracker(app.Store, app.Config.StaleAfter())
				if err := tracker.MarkSynced(store.SyncTypePrices); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			displayRefresh(output, report, verbose)
			if !dryRun && app.Config.Data.Source == config.SourceEmbedded {
				output.Dim("Saved to %s. Set data.source = \"files\" to use these prices.", app.Config.Data.Dir)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "fetch and compare without writing anything")
	cmd.Flags().BoolP("verbose", "v", false, "list every price change")
	cmd.Flags().Bool("db", false, "also write prices to the SQLite database")
	return cmd
}

// refreshSinks picks where refreshed prices are written.
func (a *App) refreshSinks(cmd *cobra.Command) ([]prices.Sink, error) {
	var sinks []prices.Sink
	alsoDB, _ := cmd.Flags().GetBool("db")

	if a.Config.Data.Source != config.SourceSQLite {
		dir := refdata.NewDirSource(a.Config.Data.Dir)
		if _, err := os.Stat(filepath.Join(dir.Dir, refdata.BrokersFileName)); err == nil {
			sinks = append(sinks, dir)
		} else {
			// No dataset in the directory yet; write both files.
			sinks = append(sinks, prices.SinkFunc(dir.Save))
		}
	}
	if a.Config.Data.Source == config.SourceSQLite || alsoDB {
		st, err := a.openStore()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prices.SinkFunc(func(ctx context.Context, ds *refdata.Dataset) error {
			if _, err := st.Load(ctx); err != nil {
				return st.SaveDataset(ctx, ds)
			}
			return st.SaveStocks(ctx, ds)
		}))
	}
	return sinks, nil
}

func displayRefresh(output *Output, rep *prices.Report, verbose bool) {
	status := ""
	if rep.Market.MarketStatus != "" {
		status = " (market " + strings.ToLower(rep.Market.MarketStatus) + ")"
	}
	output.Bold("Prices as of %s%s", rep.PriceDate, status)
	if rep.Weekend {
		output.Dim("It is the weekend in Nairobi; these are the last trading day's closing prices.")
	}
	output.Println()

	if verbose {
		table := NewTable(output, "Ticker", "Old", "New", "Change").AlignRight(1, 2, 3)
		for _, c := range rep.Changes {
			if !c.Changed {
				continue
			}
			change := utils.FormatChange(c.ChangePct)
			switch {
			case c.ChangePct.IsPositive():
				change = output.Green(change)
			case c.ChangePct.IsNegative():
				change = output.Red(change)
			}
			table.AddRow(c.Ticker, c.OldPrice.StringFixed(2), c.NewPrice.StringFixed(2), change)
		}
		table.Render()
		output.Println()
		if len(rep.SkippedTickers) > 0 {
			output.Warning("Not in snapshot: %s", strings.Join(rep.SkippedTickers, ", "))
		}
	}

	output.Success("Updated %d, unchanged %d, skipped %d (snapshot of %d issuers).",
		rep.Updated, rep.Unchanged, rep.Skipped, rep.SnapshotSize)
	if rep.DryRun {
		output.Warning("Dry run: nothing was written.")
	}
}
