package services

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// ExpenseInput describes a new expense. Blank currency, category and a zero
// date are filled with defaults.
type ExpenseInput struct {
	Amount      decimal.Decimal
	Description string
	Category    string
	Date        core.Date
	Currency    string
	Notes       string
}

// ExpensePatch lists the fields an edit replaces; nil fields are kept.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	Date        *core.Date
	Currency    *string
	Notes       *string
}

func (p ExpensePatch) Empty() bool {
	return p.Amount == nil && p.Description == nil && p.Category == nil &&
		p.Date == nil && p.Currency == nil && p.Notes == nil
}

type IncomeInput struct {
	Amount   decimal.Decimal
	Source   string
	Date     core.Date
	Currency string
	Notes    string
}

type IncomePatch struct {
	Amount   *decimal.Decimal
	Source   *string
	Date     *core.Date
	Currency *string
	Notes    *string
}

func (p IncomePatch) Empty() bool {
	return p.Amount == nil && p.Source == nil && p.Date == nil &&
		p.Currency == nil && p.Notes == nil
}

type BudgetInput struct {
	Category string
	Amount   decimal.Decimal
	Currency string
}

// BudgetPatch renames, resizes or re-denominates a budget.
type BudgetPatch struct {
	Category *string
	Amount   *decimal.Decimal
	Currency *string
}

func (p BudgetPatch) Empty() bool {
	return p.Category == nil && p.Amount == nil && p.Currency == nil
}
