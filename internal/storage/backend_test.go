package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func sampleAggregate() core.Aggregate {
	a := core.NewAggregate()
	a.Expenses = []core.Expense{
		{ID: 1, Amount: decimal.RequireFromString("12.50"), Description: "Lunch, with team", Category: "food", Date: core.NewDate(2024, 3, 1), Currency: "usd"},
		{ID: 3, Amount: decimal.RequireFromString("80"), Description: "Power", Category: "bills", Date: core.NewDate(2024, 3, 2), Currency: "eur", Notes: "march"},
	}
	a.Income = []core.Income{
		{ID: 1, Amount: decimal.RequireFromString("2500"), Source: "Salary", Date: core.NewDate(2024, 3, 1), Currency: "usd"},
	}
	a.Budgets = []core.Budget{
		{Category: "food", Amount: decimal.RequireFromString("300"), Currency: "usd"},
		{Category: "bills", Amount: decimal.RequireFromString("150")},
	}
	a.Sequences = core.Sequences{Expenses: 3, Income: 1}
	return a
}

func assertAggregateEqual(t *testing.T, want, got core.Aggregate) {
	t.Helper()
	if len(want.Expenses) != len(got.Expenses) || len(want.Income) != len(got.Income) || len(want.Budgets) != len(got.Budgets) {
		t.Fatalf("collection sizes differ: want %+v got %+v", want, got)
	}
	for i, w := range want.Expenses {
		g := got.Expenses[i]
		if w.ID != g.ID || !w.Amount.Equal(g.Amount) || w.Description != g.Description || w.Category != g.Category ||
			!w.Date.Equal(g.Date.Time) || w.Currency != g.Currency || w.Notes != g.Notes {
			t.Fatalf("expense %d differs: want %+v got %+v", i, w, g)
		}
	}
	for i, w := range want.Income {
		g := got.Income[i]
		if w.ID != g.ID || !w.Amount.Equal(g.Amount) || w.Source != g.Source || !w.Date.Equal(g.Date.Time) || w.Currency != g.Currency {
			t.Fatalf("income %d differs: want %+v got %+v", i, w, g)
		}
	}
	for i, w := range want.Budgets {
		g := got.Budgets[i]
		if w.Category != g.Category || !w.Amount.Equal(g.Amount) || w.Currency != g.Currency {
			t.Fatalf("budget %d differs: want %+v got %+v", i, w, g)
		}
	}
	if want.Sequences != got.Sequences {
		t.Fatalf("sequences differ: want %+v got %+v", want.Sequences, got.Sequences)
	}
}

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	fb, err := NewFileBackend(filepath.Join(dir, "data.json"))
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	sb, err := NewSQLiteBackend(filepath.Join(dir, "data.db"), log.Nop())
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	bb, err := NewBoltBackend(filepath.Join(dir, "data.bolt"))
	if err != nil {
		t.Fatalf("bolt backend: %v", err)
	}
	t.Cleanup(func() {
		_ = sb.Close()
		_ = bb.Close()
	})
	return map[string]Backend{"json": fb, "sqlite": sb, "bolt": bb}
}

func TestBackendsMissingThenRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Load(ctx); !errors.Is(err, ErrMissing) {
				t.Fatalf("expected ErrMissing on fresh store, got %v", err)
			}

			want := sampleAggregate()
			if err := b.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			assertAggregateEqual(t, want, got)

			// saving what was loaded must not change anything
			if err := b.Save(ctx, got); err != nil {
				t.Fatalf("second save: %v", err)
			}
			again, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("second load: %v", err)
			}
			assertAggregateEqual(t, got, again)
		})
	}
}

func TestBackendsEmptyAggregate(t *testing.T) {
	ctx := context.Background()
	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(ctx, core.NewAggregate()); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("empty aggregate should load cleanly, got %v", err)
			}
			if got.Expenses == nil || got.Income == nil || got.Budgets == nil {
				t.Fatalf("collections must be non-nil: %+v", got)
			}
			if len(got.Expenses)+len(got.Income)+len(got.Budgets) != 0 {
				t.Fatalf("expected empty aggregate, got %+v", got)
			}
		})
	}
}

func TestFileBackendMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"not json":  "expenses: []",
		"array":     "[]",
		"truncated": `{"expenses": [`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			b, _ := NewFileBackend(path)
			if _, err := b.Load(context.Background()); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestFileBackendUnreadableRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := `{"expenses":[{"id":1,"price":"abc","purchased":"x"}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	b, _ := NewFileBackend(path)
	_, err := b.Load(context.Background())
	if !errors.Is(err, ErrUnreadable) || errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrUnreadable only, got %v", err)
	}
}

func TestBackendsKeepUnparsedDates(t *testing.T) {
	doc := `{"expenses":[` +
		`{"id":1,"price":5,"purchased":"Tea","tags":"food","date":"2024-01-05","currency":"usd"},` +
		`{"id":2,"price":7,"purchased":"Cake","tags":"food","date":"05/01/2024","currency":"usd"},` +
		`{"id":3,"price":9,"purchased":"Bus","tags":"transport","date":null,"currency":"usd"}],` +
		`"income":[{"id":1,"amount":100,"source":"Gift","date":"last week","currency":"usd"}],"budget":[]}`
	legacy, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(legacy.Expenses) != 3 || len(legacy.Income) != 1 {
		t.Fatalf("records lost: %+v", legacy)
	}

	ctx := context.Background()
	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(ctx, legacy); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			assertAggregateEqual(t, legacy, got)

			wantText := []string{"", "05/01/2024", ""}
			for i, e := range got.Expenses {
				if e.Date.Unparsed() != wantText[i] {
					t.Fatalf("expense %d unparsed date = %q, want %q", e.ID, e.Date.Unparsed(), wantText[i])
				}
			}
			if got.Expenses[0].Date.String() != "2024-01-05" || !got.Expenses[2].Date.IsZero() {
				t.Fatalf("parsed dates changed: %+v", got.Expenses)
			}
			if got.Income[0].Date.Unparsed() != "last week" {
				t.Fatalf("income unparsed date = %q", got.Income[0].Date.Unparsed())
			}
		})
	}
}

func TestFileBackendSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(filepath.Join(dir, "nested", "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := b.Save(context.Background(), sampleAggregate()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "data.json" {
		t.Fatalf("unexpected files after save: %v", entries)
	}
	data, _ := os.ReadFile(b.Location())
	for _, key := range []string{`"expenses"`, `"income"`, `"budgets"`, `"price"`, `"purchased"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("document missing key %s:\n%s", key, data)
		}
	}
}

func TestDecodeLegacyDocument(t *testing.T) {
	doc := `{"expenses":[{"id":2,"price":10,"purchased":"Tea","tags":"food","date":"2022-01-01","currency":"usd"}],"income":[],"budget":[]}`
	a, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.Expenses) != 1 || a.Expenses[0].Category != "food" || a.Budgets == nil {
		t.Fatalf("unexpected aggregate %+v", a)
	}
}

func TestFileBackendKeepsNonStringDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	doc := `{"expenses":[{"id":1,"price":5,"purchased":"Tea","category":"food","date":20240105,"currency":"usd"}],"income":[],"budgets":[]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	b, _ := NewFileBackend(path)
	ctx := context.Background()
	a, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := b.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"date": 20240105`) && !strings.Contains(string(raw), `"date":20240105`) {
		t.Fatalf("numeric date not written back as a number:\n%s", raw)
	}
}
