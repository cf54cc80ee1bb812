// Package cli provides the command-line interface for the fee calculator.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nse-fees/internal/config"
	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/internal/logging"
	"nse-fees/internal/refdata"
	"nse-fees/internal/store"
	"nse-fees/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-15"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DatasetStore

	engine  *fees.Engine
	catalog *refdata.Catalog
	now     func() time.Time
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config flag before any command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	rootCmd, _ := newRootCmd(cfg, logger)
	return rootCmd
}

func newRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, *App) {
	app := &App{
		Config: cfg,
		Logger: logger,
		now:    time.Now,
	}

	rootCmd := &cobra.Command{
		Use:   "nsefees",
		Short: "NSE Kenya trading fee calculator",
		Long: `nsefees prices every statutory and brokerage charge on a Nairobi
Securities Exchange trade and shows how order size changes the fee burden.

It finds the smallest order that keeps fees near the regulatory floor,
the price a position must reach to break even, and the cheapest broker.

Use 'nsefees <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if app.Config == nil {
				if err := config.LoadDotEnv(); err != nil {
					return err
				}
				path, _ := cmd.Flags().GetString("config")
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				app.Config = loaded
				app.Logger = logging.NewLoggerWithConfig(loaded.LogConfig(debug))
			} else if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/nse-fees/config.toml)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addCalcCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addShareCommands(rootCmd, app)

	return rootCmd, app
}

// Engine returns the fee engine, building it on first use.
func (a *App) Engine() (*fees.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	e, err := fees.NewEngine(a.Config.FeesConfig())
	if err != nil {
		return nil, err
	}
	a.engine = e
	return e, nil
}

// Catalog returns the reference data catalog, loading it on first use.
func (a *App) Catalog(ctx context.Context) (*refdata.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	log := logging.WithOperation(a.Logger, "load_data")

	var src refdata.Source
	switch a.Config.Data.Source {
	case config.SourceFiles:
		src = refdata.NewDirSource(a.Config.Data.Dir)
	case config.SourceSQLite:
		st, err := a.openStore()
		if err != nil {
			return nil, err
		}
		src = st
	default:
		src = refdata.EmbeddedSource{}
	}

	cat, err := refdata.NewCatalog(ctx, src)
	if apperrors.Is(err, apperrors.ErrDataNotFound) {
		log.Warn().Str("source", a.Config.Data.Source).Msg("No stored reference data, using built-in dataset")
		cat, err = a.seedCatalog(ctx)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("source", a.Config.Data.Source).
		Int("stocks", len(cat.AllStocks())).
		Int("brokers", len(cat.AllBrokers())).
		Msg("Reference data loaded")
	a.catalog = cat
	return cat, nil
}

// seedCatalog falls back to the embedded dataset and, for the SQLite
// source, stores it so later refreshes have brokers to keep.
func (a *App) seedCatalog(ctx context.Context) (*refdata.Catalog, error) {
	ds, err := refdata.EmbeddedSource{}.Load(ctx)
	if err != nil {
		return nil, err
	}
	if a.Store != nil {
		if err := a.Store.SaveDataset(ctx, ds); err != nil {
			return nil, err
		}
	}
	return refdata.NewCatalogFromDataset(ds)
}

func (a *App) openStore() (store.DatasetStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Data.DBPath)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Data.DBPath).Msg("SQLite store initialized")
	a.Store = st
	return st, nil
}

// Close releases the store, if one was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("nsefees v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := app.Config.Path
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	fc := cfg.FeesConfig()
	s := fc.Schedule

	output.Bold("Fee Schedule")
	output.Printf("  VAT on brokerage: %s\n", utils.FormatRate(s.VATRate))
	output.Printf("  NSE levy:         %s\n", utils.FormatRate(s.NSELevyRate))
	output.Printf("  CMA levy:         %s\n", utils.FormatRate(s.CMALevyRate))
	output.Printf("  CDSC fee:         %s\n", utils.FormatRate(s.CDSCFeeRate))
	output.Printf("  ICF levy:         %s\n", utils.FormatRate(s.ICFLevyRate))
	output.Printf("  Stamp duty (buy): max(KES %s + %s, KES %s)\n",
		s.StampDuty.Fixed.StringFixed(2), utils.FormatRate(s.StampDuty.Rate), s.StampDuty.Minimum.StringFixed(2))
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Sweet spot:       %s%% (search up to %d shares)\n", fc.SweetSpotThresholdPct, fc.MaxSweetSpotQuantity)
	output.Printf("  Step fraction:    %s\n", fc.IntermediateFraction)
	output.Printf("  Stamp duty alert: %s%%\n", fc.StampDutyAlertPct)
	output.Printf("  Stale after:      %d days\n", cfg.Analysis.StaleAfterDays)
	output.Println()

	output.Bold("Verdict Tiers")
	for _, t := range fc.Tiers {
		output.Printf("  %s %-10s ≤ %s%%\n", t.Emoji, t.Name, t.MaxFeePct)
	}
	output.Println()

	output.Bold("Data")
	output.Printf("  Source:           %s\n", cfg.Data.Source)
	output.Printf("  Directory:        %s\n", cfg.Data.Dir)
	output.Printf("  Database:         %s\n", cfg.Data.DBPath)
	if cfg.Data.DefaultBroker != "" {
		output.Printf("  Default broker:   %s\n", cfg.Data.DefaultBroker)
	}
	output.Printf("  Price feed:       %s\n", cfg.Refresh.APIURL)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	if cfg.Logging.File {
		output.Printf("  File:             %s\n", cfg.Logging.FilePath)
	}
}

// exitError reports err in red on the command's error stream.
func exitError(cmd *cobra.Command, err error) {
	o := &Output{writer: cmd.ErrOrStderr(), colorEnabled: isTerminal(cmd.ErrOrStderr())}
	o.Error("Error: %v", err)
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root, app := newRootCmd(nil, zerolog.Nop())
	root.SetArgs(args)
	if err := run(ctx, root, app); err != nil {
		exitError(root, err)
		return 1
	}
	return 0
}

// run executes root and releases the app's resources. Cobra skips the
// post-run hooks when a command fails, so the store is closed here too.
func run(ctx context.Context, root *cobra.Command, app *App) error {
	defer app.Close()
	return root.ExecuteContext(ctx)
}
