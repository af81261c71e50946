package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/sheets/google"
)

func newExportCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a collection to CSV or Google Sheets",
	}
	cmd.AddCommand(newExportCSVCommand(o), newExportSheetsCommand(o))
	return cmd
}

func newExportCSVCommand(o *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "csv COLLECTION",
		Short:     "Write expenses, income or budgets as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{report.CollectionExpenses, report.CollectionIncome, report.CollectionBudgets},
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			a, err := app.Store.Load(ctx)
			if err != nil {
				return err
			}
			header, rows, err := report.Table(args[0], a)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return report.WriteCSV(cmd.OutOrStdout(), header, rows)
			}
			f, err := os.Create(output)
			if err != nil {
				return &core.StorageError{Op: "export", Path: output, Err: err}
			}
			if err := report.WriteCSV(f, header, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return &core.StorageError{Op: "export", Path: output, Err: err}
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return err
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportSheetsCommand(o *rootOptions) *cobra.Command {
	var (
		sheet      string
		yearPrefix bool
	)
	cmd := &cobra.Command{
		Use:   "sheets COLLECTION",
		Short: "Replace a Google Sheets tab with a collection",
		Long: `Replace the contents of a sheet in GOOGLE_SPREADSHEET_ID with the
collection. Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.`,
		Args: cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if !app.Config.SheetsEnabled() {
				return &core.ValidationError{Field: "google_spreadsheet_id", Err: fmt.Errorf("no spreadsheet configured")}
			}
			a, err := app.Store.Load(ctx)
			if err != nil {
				return err
			}
			header, rows, err := report.Table(args[0], a)
			if err != nil {
				return err
			}

			exporter, err := google.NewExporter(ctx, sheetsConfig(app, sheet, yearPrefix), app.Logger)
			if err != nil {
				return err
			}
			n, err := exporter.WriteTable(ctx, "", header, rows)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to sheet %q\n", n, exporter.SheetName())
			return err
		}),
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default GOOGLE_SHEET_NAME)")
	cmd.Flags().BoolVar(&yearPrefix, "year-prefix", false, "prefix the sheet name with the current year")
	return cmd
}

func sheetsConfig(app *App, sheet string, yearPrefix bool) google.Config {
	cfg := google.Config{
		SpreadsheetID:      app.Config.GoogleSpreadsheetID,
		SheetName:          app.Config.GoogleSheetName,
		ServiceAccountFile: app.Config.GoogleServiceAccountFile,
		ServiceAccountJSON: app.Config.GoogleServiceAccountJSON,
		YearPrefix:         yearPrefix,
		Year:               time.Now().Year(),
	}
	if sheet != "" {
		cfg.SheetName = sheet
	}
	return cfg
}

func newImportCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from CSV",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "csv COLLECTION FILE",
		Short: "Append expenses or income from a CSV file",
		Long: `Append every row of FILE to the collection. Expense files need "price"
and "purchased" columns, income files "amount" and "source". Rows get fresh
ids; one invalid row rejects the whole import. FILE may be "-" for stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			var r io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return &core.StorageError{Op: "import", Path: args[1], Err: err}
				}
				defer f.Close()
				r = f
			}

			var (
				n   int
				err error
			)
			switch args[0] {
			case report.CollectionExpenses:
				var rows []core.Expense
				if rows, err = report.ReadExpenseCSV(r); err == nil {
					n, err = app.Store.ImportExpenses(ctx, rows)
				}
			case report.CollectionIncome:
				var rows []core.Income
				if rows, err = report.ReadIncomeCSV(r); err == nil {
					n, err = app.Store.ImportIncome(ctx, rows)
				}
			default:
				err = &core.ValidationError{Field: "collection", Err: fmt.Errorf("cannot import %q", args[0])}
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s\n", n, args[0])
			return err
		}),
	})
	return cmd
}
