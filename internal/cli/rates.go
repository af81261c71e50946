package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newConvertCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert AMOUNT FROM TO",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			amount, err := core.ParseNonNegativeAmount(args[0])
			if err != nil {
				return &core.ValidationError{Field: "amount", Err: err}
			}
			v, err := app.Rates.ConvertRounded(ctx, amount, args[1], args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", money(amount, args[1]), money(v, args[2]))
			return err
		}),
	}
}

func newRateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Show the exchange rate between two currencies",
		Args:  cobra.ExactArgs(2),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			rate, err := app.Rates.Rate(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n",
				strings.ToUpper(args[0]), rate, strings.ToUpper(args[1]))
			return err
		}),
	}
}

// newSymbolCommand needs no store and so skips opening the app.
func newSymbolCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "symbol [CODE]",
		Short: "Show the symbol for a currency code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list || len(args) == 0 {
				tw := newTable(out)
				for _, code := range core.KnownCurrencies() {
					fmt.Fprintf(tw, "%s\t%s\n", strings.ToUpper(code), core.SymbolFor(code))
				}
				return tw.Flush()
			}
			_, err := fmt.Fprintln(out, core.SymbolFor(args[0]))
			return err
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list every known symbol")
	return cmd
}
