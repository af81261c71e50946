package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

// rootOptions carries global flags and the state built from them.
type rootOptions struct {
	configFile string
	debug      bool
	dataFile   string
	backend    string
	currency   string

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand returns the fintrack command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Track expenses, income and budgets",
		Long: `fintrack records expenses, income and per-category budgets in a local
data file and converts between currencies using live exchange rates.

Example:
  fintrack expense add --price 12.50 --purchased "Lunch" --category food
  fintrack report categories --currency eur
  fintrack serve`,
		SilenceUsage:      true,
		PersistentPreRunE: o.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "YAML config file (default "+config.DefaultFile+" when present)")
	flags.BoolVar(&o.debug, "debug", false, "enable debug logging")
	flags.StringVar(&o.dataFile, "data", "", "data file, overrides FINTRACK_DATA_FILE")
	flags.StringVar(&o.backend, "backend", "", "storage backend: json, sqlite or bolt")
	flags.StringVar(&o.currency, "default-currency", "", "currency for records entered without one")

	root.AddCommand(
		newExpenseCommand(o),
		newIncomeCommand(o),
		newBudgetCommand(o),
		newReportCommand(o),
		newConvertCommand(o),
		newRateCommand(o),
		newSymbolCommand(),
		newExportCommand(o),
		newImportCommand(o),
		newServeCommand(o),
		newEventsCommand(o),
	)
	return root
}

// Execute runs the command tree with process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) setup(cmd *cobra.Command, args []string) error {
	LoadEnvFile()

	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return err
	}
	if o.dataFile != "" {
		cfg.DataFile = o.dataFile
	}
	if o.backend != "" {
		cfg.StoreBackend = o.backend
	}
	if o.currency != "" {
		cfg.DefaultCurrency = o.currency
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := SetupLogger(cfg, o.debug, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	o.cfg, o.logger = cfg, logger
	return nil
}

// withApp opens the application for the duration of fn.
func (o *rootOptions) withApp(fn func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := OpenApp(ctx, o.cfg, o.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				o.logger.Warn("Cleanup failed", log.FieldError, err)
			}
		}()
		return fn(ctx, cmd, args, app)
	}
}
