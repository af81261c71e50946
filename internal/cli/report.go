package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

func newReportCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Spending summaries",
	}
	cmd.AddCommand(newReportCategoriesCommand(o), newReportTaxCommand(o))
	return cmd
}

func newReportCategoriesCommand(o *rootOptions) *cobra.Command {
	var (
		currency string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Total spending per category in one currency",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			expenses, err := app.Store.ListExpenses(ctx)
			if err != nil {
				return err
			}
			target := currency
			if target == "" {
				target = app.Store.DefaultCurrency()
			}
			summary, err := app.Reports.TotalsByCategory(ctx, expenses, target)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			return printSummary(cmd, summary)
		}),
	}
	cmd.Flags().StringVar(&currency, "currency", "", "report currency (default: the default currency)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, s report.CategorySummary) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", c.Category, money(c.Amount, s.Currency), c.Percent.StringFixed(1))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\n", money(s.Total, s.Currency))
	return tw.Flush()
}

func newReportTaxCommand(o *rootOptions) *cobra.Command {
	var (
		rate     string
		currency string
	)
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Estimate tax paid on expenses",
		Long: `Estimate tax as the sum of price times rate. Amounts are summed as recorded
unless --currency is given, in which case each is converted first.`,
		Args: cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			r := app.Config.TaxRateDecimal()
			if strings.TrimSpace(rate) != "" {
				v, err := core.ParseNonNegativeAmount(rate)
				if err != nil {
					return &core.ValidationError{Field: "rate", Err: err}
				}
				r = v
			}
			expenses, err := app.Store.ListExpenses(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if currency == "" {
				_, err = fmt.Fprintf(out, "Estimated tax at %s: %s\n", r, core.FormatAmount(report.TaxEstimate(expenses, r)))
				return err
			}
			est, err := app.Reports.TaxEstimateIn(ctx, expenses, r, currency)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Estimated tax at %s: %s\n", r, money(est, currency))
			return err
		}),
	}
	cmd.Flags().StringVar(&rate, "rate", "", "tax rate, e.g. 0.07 (default TAX_RATE)")
	cmd.Flags().StringVar(&currency, "currency", "", "convert every expense to this currency first")
	return cmd
}
