package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// money renders an amount with two places and the currency symbol.
func money(amount decimal.Decimal, currency string) string {
	return core.SymbolFor(currency) + " " + core.FormatAmount(amount)
}

func printExpenses(w io.Writer, expenses []core.Expense) error {
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(w, "No expenses.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tPURCHASED\tCATEGORY\tPRICE\tNOTES")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, e.Description, e.Category, money(e.Amount, e.Currency), e.Notes)
	}
	return tw.Flush()
}

func printIncome(w io.Writer, income []core.Income) error {
	if len(income) == 0 {
		_, err := fmt.Fprintln(w, "No income.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tSOURCE\tAMOUNT\tNOTES")
	for _, in := range income {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			in.ID, in.Date, in.Source, money(in.Amount, in.Currency), in.Notes)
	}
	return tw.Flush()
}

func printBudgets(w io.Writer, budgets []core.Budget) error {
	if len(budgets) == 0 {
		_, err := fmt.Fprintln(w, "No budgets.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT")
	for _, b := range budgets {
		fmt.Fprintf(tw, "%s\t%s\n", b.Category, money(b.Amount, b.Currency))
	}
	return tw.Flush()
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: fmt.Errorf("invalid id %q", arg)}
	}
	return id, nil
}

func flagAmount(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	v, err := core.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: name, Err: err}
	}
	return v, nil
}

func flagDate(cmd *cobra.Command, name string) (core.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: name, Err: err}
	}
	return d, nil
}

// changedString returns the flag value when the user set it.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedAmount(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := flagAmount(cmd, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedDate(cmd *cobra.Command, name string) (*core.Date, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	d, err := flagDate(cmd, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func optionalAmount(cmd *cobra.Command, name string) (decimal.NullDecimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := core.ParseNonNegativeAmount(raw)
	if err != nil {
		return decimal.NullDecimal{}, &core.ValidationError{Field: name, Err: err}
	}
	return decimal.NewNullDecimal(v), nil
}
