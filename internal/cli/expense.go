package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func newExpenseCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Add, list, edit and delete expenses",
	}
	cmd.AddCommand(
		newExpenseAddCommand(o),
		newExpenseListCommand(o),
		newExpenseEditCommand(o),
		newExpenseDeleteCommand(o),
		newExpenseConvertCommand(o),
	)
	return cmd
}

func addExpenseFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("price", "", "amount spent")
	f.String("purchased", "", "what was bought")
	f.String("category", "", "category (default \"other\")")
	f.String("date", "", "date as YYYY-MM-DD (default today)")
	f.String("currency", "", "three letter currency code")
	f.String("notes", "", "free text notes")
}

func newExpenseAddCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			amount, err := flagAmount(cmd, "price")
			if err != nil {
				return err
			}
			date, err := flagDate(cmd, "date")
			if err != nil {
				return err
			}
			in := services.ExpenseInput{Amount: amount, Date: date}
			in.Description, _ = cmd.Flags().GetString("purchased")
			in.Category, _ = cmd.Flags().GetString("category")
			in.Currency, _ = cmd.Flags().GetString("currency")
			in.Notes, _ = cmd.Flags().GetString("notes")

			e, err := app.Store.AddExpense(ctx, in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added expense %d: %s %s\n", e.ID, e.Description, money(e.Amount, e.Currency))
			return err
		}),
	}
	addExpenseFlags(cmd)
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("purchased")
	return cmd
}

func newExpenseListCommand(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally filtered",
		Long: `List expenses. Every filter given must match.

Example:
  fintrack expense list --min 10 --max 50 --category food --from 2024-01-01`,
		Args: cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			var (
				f   core.ExpenseFilter
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
			f.Description, _ = cmd.Flags().GetString("search")
			f.Category, _ = cmd.Flags().GetString("category")
			f.Currency, _ = cmd.Flags().GetString("currency")

			expenses, err := app.Store.FilterExpenses(ctx, f)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), expenses)
			}
			return printExpenses(cmd.OutOrStdout(), expenses)
		}),
	}
	f := cmd.Flags()
	f.String("min", "", "minimum price")
	f.String("max", "", "maximum price")
	f.StringP("search", "q", "", "text contained in the description")
	f.String("category", "", "category")
	f.String("currency", "", "currency code")
	f.String("from", "", "first date, YYYY-MM-DD")
	f.String("to", "", "last date, YYYY-MM-DD")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExpenseEditCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an expense",
		Long: `Change the given fields of an expense. Changing --currency converts the
price at the current rate; with --price as well, the new price is taken in
the old currency and then converted.`,
		Args: cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p := services.ExpensePatch{
				Description: changedString(cmd, "purchased"),
				Category:    changedString(cmd, "category"),
				Currency:    changedString(cmd, "currency"),
				Notes:       changedString(cmd, "notes"),
			}
			if p.Amount, err = changedAmount(cmd, "price"); err != nil {
				return err
			}
			if p.Date, err = changedDate(cmd, "date"); err != nil {
				return err
			}

			e, err := app.Store.EditExpense(ctx, id, p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated expense %d: %s %s\n", e.ID, e.Description, money(e.Amount, e.Currency))
			return err
		}),
	}
	addExpenseFlags(cmd)
	return cmd
}

func newExpenseDeleteCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Store.DeleteExpense(ctx, id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted expense %d\n", id)
			return err
		}),
	}
}

func newExpenseConvertCommand(o *rootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every expense into one currency",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			n, err := app.Store.ConvertAllExpenses(ctx, to)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Converted %d expenses to %s\n", n, core.SymbolFor(to))
			return err
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "target currency code")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
