package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func newIncomeCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Add, list, edit and delete income",
	}
	cmd.AddCommand(
		newIncomeAddCommand(o),
		newIncomeListCommand(o),
		newIncomeEditCommand(o),
		newIncomeDeleteCommand(o),
	)
	return cmd
}

func addIncomeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("amount", "", "amount received")
	f.String("source", "", "where it came from")
	f.String("date", "", "date as YYYY-MM-DD (default today)")
	f.String("currency", "", "three letter currency code")
	f.String("notes", "", "free text notes")
}

func newIncomeAddCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record income",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			amount, err := flagAmount(cmd, "amount")
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			in := services.IncomeInput{Amount: amount, Date: date}
			in.Source, _ = cmd.Flags().GetString("source")
			in.Currency, _ = cmd.Flags().GetString("currency")
			in.Notes, _ = cmd.Flags().GetString("notes")

			inc, err := app.Store.AddIncome(ctx, in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added income %d: %s %s\n", inc.ID, inc.Source, money(inc.Amount, inc.Currency))
			return err
		}),
	}
	addIncomeFlags(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newIncomeListCommand(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List income, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			var (
				f   core.IncomeFilter
				err error
			)
			if f.MinAmount, err = optionalAmount(cmd, "min"); err != nil {
				return err
			}
			if f.MaxAmount, err = optionalAmount(cmd, "max"); err != nil {
				return err
			}
			if f.From, err = flagDate(cmd, "from"); err != nil {
				return err
			}
			if f.To, err = flagDate(cmd, "to"); err != nil {
				return err
			}
			f.Source, _ = cmd.Flags().GetString("source")
			f.Currency, _ = cmd.Flags().GetString("currency")

			income, err := app.Store.FilterIncome(ctx, f)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), income)
			}
			return printIncome(cmd.OutOrStdout(), income)
		}),
	}
	f := cmd.Flags()
	f.String("min", "", "minimum amount")
	f.String("max", "", "maximum amount")
	f.String("source", "", "text contained in the source")
	f.String("currency", "", "currency code")
	f.String("from", "", "first date, YYYY-MM-DD")
	f.String("to", "", "last date, YYYY-MM-DD")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newIncomeEditCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an income entry",
		Args:  cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p := services.IncomePatch{
				Source:   changedString(cmd, "source"),
				Currency: changedString(cmd, "currency"),
				Notes:    changedString(cmd, "notes"),
			}
			if p.Amount, err = changedAmount(cmd, "amount"); err != nil {
				return err
			}
			if p.Date, err = changedDate(cmd, "date"); err != nil {
				return err
			}

			inc, err := app.Store.EditIncome(ctx, id, p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated income %d: %s %s\n", inc.ID, inc.Source, money(inc.Amount, inc.Currency))
			return err
		}),
	}
	addIncomeFlags(cmd)
	return cmd
}

func newIncomeDeleteCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an income entry",
		Args:    cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Store.DeleteIncome(ctx, id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted income %d\n", id)
			return err
		}),
	}
}
