// Package report turns record collections into summaries, tax estimates,
// budget status and flat rows for tables, CSV and spreadsheets.
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

var hundred = decimal.NewFromInt(100)

// Converter expresses an amount in another currency without rounding.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// CategorySummary is expense spending per category in one currency,
// largest category first.
type CategorySummary struct {
	Currency   string          `json:"currency"`
	Categories []CategoryTotal `json:"categories"`
	Total      decimal.Decimal `json:"total"`
}

// Map returns category to amount.
func (s CategorySummary) Map() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(s.Categories))
	for _, c := range s.Categories {
		m[c.Category] = c.Amount
	}
	return m
}

type BudgetReport struct {
	Budget    core.Budget     `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Over      bool            `json:"over_budget"`
	Expenses  []core.Expense  `json:"expenses"`
}

type Builder struct {
	converter Converter
	logger    *log.Logger
}

func NewBuilder(converter Converter, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Nop()
	}
	return &Builder{converter: converter, logger: logger.WithComponent(log.ComponentReport)}
}

// TotalsByCategory converts every expense into currency and sums per
// category. It returns core.ErrNoData for an empty or zero-valued input and
// the first conversion error otherwise; no partial summary is produced.
func (b *Builder) TotalsByCategory(ctx context.Context, expenses []core.Expense, currency string) (CategorySummary, error) {
	if len(expenses) == 0 {
		return CategorySummary{}, core.ErrNoData
	}
	target, err := core.NormalizeCurrency(currency)
	if err != nil {
		return CategorySummary{}, &core.ValidationError{Field: "currency", Err: err}
	}

	sums := make(map[string]decimal.Decimal)
	var order []string
	total := decimal.Zero
	for _, e := range expenses {
		v, err := b.converter.Convert(ctx, e.Amount, e.Currency, target)
		if err != nil {
			return CategorySummary{}, err
		}
		if _, seen := sums[e.Category]; !seen {
			order = append(order, e.Category)
		}
		sums[e.Category] = sums[e.Category].Add(v)
		total = total.Add(v)
	}
	if total.IsZero() {
		return CategorySummary{}, core.ErrNoData
	}

	summary := CategorySummary{Currency: target, Total: total}
	for _, cat := range order {
		summary.Categories = append(summary.Categories, CategoryTotal{
			Category: cat,
			Amount:   sums[cat],
			Percent:  sums[cat].Div(total).Mul(hundred),
		})
	}
	slices.SortFunc(summary.Categories, func(x, y CategoryTotal) int {
		return cmp.Or(y.Amount.Cmp(x.Amount), cmp.Compare(x.Category, y.Category))
	})

	b.logger.DebugContext(ctx, "Category totals computed",
		log.FieldCurrency, target,
		log.FieldCount, len(summary.Categories))
	return summary, nil
}

// TaxEstimate returns sum(amount * rate) over expenses as recorded, without
// currency conversion.
func TaxEstimate(expenses []core.Expense, rate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount.Mul(rate))
	}
	return total
}

// TaxEstimateIn converts each expense into currency before applying rate.
func (b *Builder) TaxEstimateIn(ctx context.Context, expenses []core.Expense, rate decimal.Decimal, currency string) (decimal.Decimal, error) {
	target, err := core.NormalizeCurrency(currency)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "currency", Err: err}
	}
	total := decimal.Zero
	for _, e := range expenses {
		v, err := b.converter.Convert(ctx, e.Amount, e.Currency, target)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v.Mul(rate))
	}
	return total, nil
}

// BudgetStatus compares a budget's allocation with the expenses recorded
// under its category, converted into the budget's currency.
func (b *Builder) BudgetStatus(ctx context.Context, budget core.Budget, expenses []core.Expense) (BudgetReport, error) {
	currency := cmp.Or(budget.Currency, core.DefaultCurrency)
	budget.Currency = currency

	report := BudgetReport{Budget: budget, Spent: decimal.Zero, Expenses: []core.Expense{}}
	for _, e := range expenses {
		if !core.SameCategory(e.Category, budget.Category) {
			continue
		}
		v, err := b.converter.Convert(ctx, e.Amount, e.Currency, currency)
		if err != nil {
			return BudgetReport{}, fmt.Errorf("budget %q: %w", budget.Category, err)
		}
		report.Spent = report.Spent.Add(v)
		report.Expenses = append(report.Expenses, e)
	}
	report.Remaining = budget.Amount.Sub(report.Spent)
	report.Over = report.Remaining.IsNegative()
	return report, nil
}
