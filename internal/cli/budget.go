package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func newBudgetCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budget",
		Aliases: []string{"budgets"},
		Short:   "Manage per-category budgets",
	}
	cmd.AddCommand(
		newBudgetAddCommand(o),
		newBudgetSetCommand(o),
		newBudgetEditCommand(o),
		newBudgetDeleteCommand(o),
		newBudgetListCommand(o),
		newBudgetStatusCommand(o),
	)
	return cmd
}

func budgetAmount(raw string) (decimal.Decimal, error) {
	v, err := core.ParseNonNegativeAmount(raw)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "amount", Err: err}
	}
	return v, nil
}

func newBudgetAddCommand(o *rootOptions) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "add CATEGORY AMOUNT",
		Short: "Create a budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			amount, err := budgetAmount(args[1])
			if err != nil {
				return err
			}
			b, err := app.Store.AddBudget(ctx, services.BudgetInput{Category: args[0], Amount: amount, Currency: currency})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Budget %s: %s\n", b.Category, money(b.Amount, b.Currency))
			return err
		}),
	}
	cmd.Flags().StringVar(&currency, "currency", "", "budget currency (default: the default currency)")
	return cmd
}

func newBudgetSetCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set CATEGORY AMOUNT",
		Short: "Set a budget amount, creating the budget if needed",
		Args:  cobra.ExactArgs(2),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			amount, err := budgetAmount(args[1])
			if err != nil {
				return err
			}
			b, err := app.Store.SetBudgetAmount(ctx, args[0], amount)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Budget %s: %s\n", b.Category, money(b.Amount, b.Currency))
			return err
		}),
	}
}

func newBudgetEditCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit CATEGORY",
		Short: "Rename, resize or re-denominate a budget",
		Args:  cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			p := services.BudgetPatch{
				Category: changedString(cmd, "rename"),
				Currency: changedString(cmd, "currency"),
			}
			if raw := changedString(cmd, "amount"); raw != nil {
				amount, err := budgetAmount(*raw)
				if err != nil {
					return err
				}
				p.Amount = &amount
			}
			b, err := app.Store.EditBudget(ctx, args[0], p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Budget %s: %s\n", b.Category, money(b.Amount, b.Currency))
			return err
		}),
	}
	f := cmd.Flags()
	f.String("rename", "", "new category name")
	f.String("amount", "", "new amount")
	f.String("currency", "", "new currency; without --amount the amount is converted")
	return cmd
}

func newBudgetDeleteCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete CATEGORY",
		Aliases: []string{"rm"},
		Short:   "Delete a budget",
		Args:    cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if err := app.Store.DeleteBudget(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget %s\n", args[0])
			return err
		}),
	}
}

func newBudgetListCommand(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			budgets, err := app.Store.ListBudgets(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), budgets)
			}
			return printBudgets(cmd.OutOrStdout(), budgets)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newBudgetStatusCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status CATEGORY",
		Short: "Compare a budget with what was spent in its category",
		Args:  cobra.ExactArgs(1),
		RunE: o.withApp(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			budget, err := app.Store.GetBudget(ctx, args[0])
			if err != nil {
				return err
			}
			expenses, err := app.Store.ListExpenses(ctx)
			if err != nil {
				return err
			}
			status, err := app.Reports.BudgetStatus(ctx, budget, expenses)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cur := status.Budget.Currency
			tw := newTable(out)
			fmt.Fprintf(tw, "Budget\t%s\n", money(status.Budget.Amount, cur))
			fmt.Fprintf(tw, "Spent\t%s\n", money(status.Spent, cur))
			fmt.Fprintf(tw, "Remaining\t%s\n", money(status.Remaining, cur))
			if err := tw.Flush(); err != nil {
				return err
			}
			if status.Over {
				fmt.Fprintf(out, "Over budget for %s.\n", status.Budget.Category)
			}
			if len(status.Expenses) > 0 {
				fmt.Fprintln(out)
				return printExpenses(out, status.Expenses)
			}
			return nil
		}),
	}
}
