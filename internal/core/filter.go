package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExpenseFilter selects expenses. Zero-valued fields are ignored; every
// supplied criterion must hold for a record to match.
type ExpenseFilter struct {
	MinAmount   decimal.NullDecimal
	MaxAmount   decimal.NullDecimal
	Description string
	Category    string
	Currency    string
	From        Date
	To          Date
}

// IncomeFilter selects income entries with the same AND semantics.
type IncomeFilter struct {
	MinAmount decimal.NullDecimal
	MaxAmount decimal.NullDecimal
	Source    string
	Currency  string
	From      Date
	To        Date
}

func (f ExpenseFilter) Match(e Expense) bool {
	if !inRange(e.Amount, f.MinAmount, f.MaxAmount) {
		return false
	}
	if !containsFold(e.Description, f.Description) {
		return false
	}
	if f.Category != "" && !SameCategory(e.Category, f.Category) {
		return false
	}
	if f.Currency != "" && !strings.EqualFold(e.Currency, strings.TrimSpace(f.Currency)) {
		return false
	}
	return inDateRange(e.Date, f.From, f.To)
}

func (f IncomeFilter) Match(in Income) bool {
	if !inRange(in.Amount, f.MinAmount, f.MaxAmount) {
		return false
	}
	if !containsFold(in.Source, f.Source) {
		return false
	}
	if f.Currency != "" && !strings.EqualFold(in.Currency, strings.TrimSpace(f.Currency)) {
		return false
	}
	return inDateRange(in.Date, f.From, f.To)
}

// FilterExpenses returns the matching expenses in their original order.
func FilterExpenses(expenses []Expense, f ExpenseFilter) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// FilterIncome returns the matching income entries in their original order.
func FilterIncome(income []Income, f IncomeFilter) []Income {
	out := make([]Income, 0, len(income))
	for _, in := range income {
		if f.Match(in) {
			out = append(out, in)
		}
	}
	return out
}

func inRange(v decimal.Decimal, lo, hi decimal.NullDecimal) bool {
	if lo.Valid && v.LessThan(lo.Decimal) {
		return false
	}
	if hi.Valid && v.GreaterThan(hi.Decimal) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inDateRange(d, from, to Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
