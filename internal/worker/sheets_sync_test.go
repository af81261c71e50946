package worker

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/report"
)

type fakeLoader struct {
	agg   core.Aggregate
	err   error
	loads int
}

func (f *fakeLoader) Load(ctx context.Context) (core.Aggregate, error) {
	f.loads++
	return f.agg, f.err
}

type fakeWriter struct {
	written map[string][]report.Row
	failOn  string
}

func (f *fakeWriter) WriteTable(ctx context.Context, sheet string, header []string, rows iter.Seq[report.Row]) (int, error) {
	if sheet == f.failOn {
		return 0, errors.New("quota exceeded")
	}
	if f.written == nil {
		f.written = make(map[string][]report.Row)
	}
	collected := slices.Collect(rows)
	f.written[sheet] = collected
	return len(collected), nil
}

func testAggregate() core.Aggregate {
	a := core.NewAggregate()
	a.Expenses = []core.Expense{{ID: 1, Amount: decimal.NewFromInt(5), Description: "Tea", Category: "food", Date: core.NewDate(2024, 1, 2), Currency: "usd"}}
	a.Budgets = []core.Budget{{Category: "food", Amount: decimal.NewFromInt(50), Currency: "usd"}}
	return a
}

func TestHandleEventMarksCollections(t *testing.T) {
	w := NewSheetsSync(&fakeLoader{}, &fakeWriter{}, SyncConfig{}, nil)

	for _, ev := range []amqp.RecordEvent{
		amqp.NewRecordEvent(amqp.KindExpense, amqp.OpCreated, "1"),
		amqp.NewRecordEvent(amqp.KindExpense, amqp.OpDeleted, "1"),
		amqp.NewRecordEvent(amqp.KindBudget, amqp.OpUpdated, "food"),
		amqp.NewRecordEvent("receipt", amqp.OpCreated, "x"),
	} {
		if err := w.HandleEvent(&ev); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}

	if got := w.Pending(); !slices.Equal(got, []string{"budgets", "expenses"}) {
		t.Fatalf("Pending = %v", got)
	}
}

func TestFlushExportsOnceFromSnapshot(t *testing.T) {
	loader := &fakeLoader{agg: testAggregate()}
	writer := &fakeWriter{}
	w := NewSheetsSync(loader, writer, SyncConfig{SheetPrefix: "2024 "}, nil)

	ev := amqp.NewRecordEvent(amqp.KindExpense, amqp.OpCreated, "1")
	_ = w.HandleEvent(&ev)
	_ = w.HandleEvent(&ev)

	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if loader.loads != 1 {
		t.Fatalf("loads = %d, want 1", loader.loads)
	}
	rows := writer.written["2024 expenses"]
	if len(rows) != 1 || rows[0][2] != "Tea" {
		t.Fatalf("written = %v", writer.written)
	}
	if len(w.Pending()) != 0 {
		t.Fatal("flushed collections should be clean")
	}

	if err := w.Flush(context.Background()); err != nil || loader.loads != 1 {
		t.Fatalf("empty flush should not load: err=%v loads=%d", err, loader.loads)
	}
}

func TestFlushFailureKeepsCollectionsDirty(t *testing.T) {
	loader := &fakeLoader{agg: testAggregate()}
	writer := &fakeWriter{failOn: "budgets"}
	w := NewSheetsSync(loader, writer, SyncConfig{}, nil)

	for _, kind := range []string{amqp.KindExpense, amqp.KindBudget} {
		ev := amqp.NewRecordEvent(kind, amqp.OpUpdated, "k")
		_ = w.HandleEvent(&ev)
	}

	if err := w.Flush(context.Background()); err == nil {
		t.Fatal("expected error from failing sheet")
	}
	if _, ok := writer.written["expenses"]; !ok {
		t.Fatal("healthy collection should still be written")
	}
	if got := w.Pending(); len(got) != 2 {
		t.Fatalf("Pending after failure = %v", got)
	}
}

func TestFlushLoadError(t *testing.T) {
	w := NewSheetsSync(&fakeLoader{err: errors.New("disk gone")}, &fakeWriter{}, SyncConfig{}, nil)
	ev := amqp.NewRecordEvent(amqp.KindIncome, amqp.OpCreated, "1")
	_ = w.HandleEvent(&ev)

	if err := w.Flush(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if got := w.Pending(); !slices.Equal(got, []string{"income"}) {
		t.Fatalf("Pending = %v", got)
	}
}

func TestSyncAll(t *testing.T) {
	writer := &fakeWriter{}
	w := NewSheetsSync(&fakeLoader{agg: testAggregate()}, writer, SyncConfig{}, nil)

	if err := w.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	for _, sheet := range []string{"expenses", "income", "budgets"} {
		if _, ok := writer.written[sheet]; !ok {
			t.Errorf("sheet %q not written", sheet)
		}
	}
	if len(writer.written["income"]) != 0 {
		t.Errorf("income rows = %v", writer.written["income"])
	}
}

func TestRunFlushesOnCancel(t *testing.T) {
	writer := &fakeWriter{}
	w := NewSheetsSync(&fakeLoader{agg: testAggregate()}, writer, SyncConfig{}, nil)
	ev := amqp.NewRecordEvent(amqp.KindBudget, amqp.OpCreated, "food")
	_ = w.HandleEvent(&ev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if _, ok := writer.written["budgets"]; !ok {
		t.Fatal("final flush should write pending collections")
	}
}
