package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func sampleExpenses() []Expense {
	return []Expense{
		{ID: 1, Amount: dec("5"), Description: "Coffee", Category: "food", Date: NewDate(2024, 1, 10), Currency: "usd"},
		{ID: 2, Amount: dec("25"), Description: "Groceries", Category: "food", Date: NewDate(2024, 1, 15), Currency: "usd"},
		{ID: 3, Amount: dec("40"), Description: "Electricity", Category: "bills", Date: NewDate(2024, 2, 1), Currency: "eur"},
		{ID: 4, Amount: dec("12"), Description: "Cinema", Category: "fun", Date: NewDate(2024, 2, 20), Currency: "usd"},
	}
}

func ids(es []Expense) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestExpenseFilterAndSemantics(t *testing.T) {
	minPrice := decimal.NewNullDecimal(dec("10"))
	cases := []struct {
		name string
		f    ExpenseFilter
		want []int64
	}{
		{"no criteria", ExpenseFilter{}, []int64{1, 2, 3, 4}},
		{"min price and category", ExpenseFilter{MinAmount: minPrice, Category: "food"}, []int64{2}},
		{"max price", ExpenseFilter{MaxAmount: decimal.NewNullDecimal(dec("12"))}, []int64{1, 4}},
		{"description substring ignores case", ExpenseFilter{Description: "cIn"}, []int64{4}},
		{"currency", ExpenseFilter{Currency: "EUR"}, []int64{3}},
		{"date range inclusive", ExpenseFilter{From: NewDate(2024, 1, 15), To: NewDate(2024, 2, 1)}, []int64{2, 3}},
		{"conflicting criteria", ExpenseFilter{Category: "bills", Currency: "usd"}, []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterExpenses(sampleExpenses(), tc.f))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestIncomeFilter(t *testing.T) {
	income := []Income{
		{ID: 1, Amount: dec("1000"), Source: "Salary", Date: NewDate(2024, 1, 1), Currency: "usd"},
		{ID: 2, Amount: dec("50"), Source: "Gift", Date: NewDate(2024, 1, 5), Currency: "usd"},
	}
	got := FilterIncome(income, IncomeFilter{Source: "sal", MinAmount: decimal.NewNullDecimal(dec("100"))})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected %+v", got)
	}
	if got := FilterIncome(income, IncomeFilter{Source: "gift", MinAmount: decimal.NewNullDecimal(dec("100"))}); len(got) != 0 {
		t.Fatalf("both criteria must hold, got %+v", got)
	}
}

func TestNextID(t *testing.T) {
	if id := NextID([]Expense{}); id != 1 {
		t.Fatalf("empty collection should yield 1, got %d", id)
	}
	es := sampleExpenses()
	es[1].ID = 17
	id := NextID(es)
	for _, e := range es {
		if id <= e.ID {
			t.Fatalf("NextID %d not greater than %d", id, e.ID)
		}
	}
	if id != 18 {
		t.Fatalf("expected 18, got %d", id)
	}
}

func TestIssueIDNeverReuses(t *testing.T) {
	es := sampleExpenses()[:2] // ids 1,2 after deleting 3 and 4
	if id := IssueID(es, 4); id != 5 {
		t.Fatalf("expected 5 after deletions, got %d", id)
	}
	if id := IssueID(es, 0); id != 3 {
		t.Fatalf("expected 3 with no history, got %d", id)
	}
	if id := IssueID([]Income{}, 0); id != 1 {
		t.Fatalf("expected 1 for empty income, got %d", id)
	}
}

func TestCurrency(t *testing.T) {
	cases := []struct {
		in, out string
		ok      bool
	}{
		{"USD", "usd", true},
		{" eur ", "eur", true},
		{"us", "", false},
		{"u$d", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrency(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q -> %q, %v", tc.in, got, err)
		}
	}
	if c, err := CurrencyOrDefault("", "gbp"); err != nil || c != "gbp" {
		t.Fatalf("CurrencyOrDefault = %q, %v", c, err)
	}
	if SymbolFor("EUR") != "€" || SymbolFor("xyz") != "XYZ" {
		t.Fatalf("SymbolFor mismatch")
	}
	if len(KnownCurrencies()) < 30 {
		t.Fatalf("expected at least 30 known symbols")
	}
}
