package report

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Row is one flat record in column order.
type Row []string

var (
	ExpenseHeader = []string{"id", "price", "purchased", "category", "date", "currency", "notes"}
	IncomeHeader  = []string{"id", "amount", "source", "date", "currency", "notes"}
	BudgetHeader  = []string{"category", "amount", "currency"}
)

// Collection names accepted by Table.
const (
	CollectionExpenses = "expenses"
	CollectionIncome   = "income"
	CollectionBudgets  = "budgets"
)

// ExpenseRows yields one row per expense. The sequence can be ranged over
// any number of times.
func ExpenseRows(expenses []core.Expense) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, e := range expenses {
			row := Row{
				strconv.FormatInt(e.ID, 10),
				formatCell(e.Amount),
				e.Description,
				e.Category,
				e.Date.String(),
				e.Currency,
				e.Notes,
			}
			if !yield(row) {
				return
			}
		}
	}
}

func IncomeRows(income []core.Income) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, in := range income {
			row := Row{
				strconv.FormatInt(in.ID, 10),
				formatCell(in.Amount),
				in.Source,
				in.Date.String(),
				in.Currency,
				in.Notes,
			}
			if !yield(row) {
				return
			}
		}
	}
}

func BudgetRows(budgets []core.Budget) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, b := range budgets {
			if !yield(Row{b.Category, formatCell(b.Amount), b.Currency}) {
				return
			}
		}
	}
}

// Table returns the header and rows for a named collection of a.
func Table(collection string, a core.Aggregate) ([]string, iter.Seq[Row], error) {
	switch strings.ToLower(strings.TrimSpace(collection)) {
	case CollectionExpenses:
		return ExpenseHeader, ExpenseRows(a.Expenses), nil
	case CollectionIncome:
		return IncomeHeader, IncomeRows(a.Income), nil
	case CollectionBudgets:
		return BudgetHeader, BudgetRows(a.Budgets), nil
	}
	return nil, nil, &core.ValidationError{
		Field: "collection",
		Err:   fmt.Errorf("unknown collection %q", collection),
	}
}

// formatCell keeps two places for ordinary amounts and full precision
// for anything finer.
func formatCell(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return core.FormatAmount(d)
}
