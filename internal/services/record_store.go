// Package services holds the record store: validated, persisted mutations of
// expenses, income and budgets.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// ErrEmptyPatch is returned by edits that name no field to change.
var ErrEmptyPatch = errors.New("no fields to update")

// Converter resolves exchange rates for currency edits and bulk conversion.
type Converter interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	ConvertRounded(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// EventPublisher is told about every committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.RecordEvent) error
}

type Options struct {
	DefaultCurrency string
	// ResetOnCorrupt replaces undecodable stored data with an empty
	// aggregate instead of failing.
	ResetOnCorrupt bool
	Publisher      EventPublisher
	Logger         *log.Logger
	Now            func() time.Time
}

// RecordStore serializes load/mutate/save cycles against a backend. Every
// mutation either persists in full or leaves stored data untouched.
type RecordStore struct {
	mu              sync.Mutex
	backend         storage.Backend
	converter       Converter
	publisher       EventPublisher
	logger          *log.Logger
	defaultCurrency string
	resetOnCorrupt  bool
	now             func() time.Time

	// reported holds records whose unparsed date has been logged.
	reported map[string]struct{}
}

func NewRecordStore(backend storage.Backend, converter Converter, opts Options) *RecordStore {
	s := &RecordStore{
		backend:         backend,
		converter:       converter,
		publisher:       opts.Publisher,
		logger:          opts.Logger,
		defaultCurrency: opts.DefaultCurrency,
		resetOnCorrupt:  opts.ResetOnCorrupt,
		now:             opts.Now,
		reported:        make(map[string]struct{}),
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	s.logger = s.logger.WithComponent(log.ComponentStore)
	if s.defaultCurrency == "" {
		s.defaultCurrency = core.DefaultCurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// DefaultCurrency is the code applied to records created without one.
func (s *RecordStore) DefaultCurrency() string { return s.defaultCurrency }

// Load returns the stored aggregate. Missing data, and malformed data when
// ResetOnCorrupt is set, is replaced by an empty aggregate that is persisted.
func (s *RecordStore) Load(ctx context.Context) (core.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save replaces the stored aggregate wholesale.
func (s *RecordStore) Save(ctx context.Context, a core.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, a)
}

func (s *RecordStore) load(ctx context.Context) (core.Aggregate, error) {
	a, err := s.backend.Load(ctx)
	if err == nil {
		s.reportUnparsedDates(ctx, a)
		return a, nil
	}

	switch {
	case errors.Is(err, storage.ErrMissing):
		s.logger.InfoContext(ctx, "No stored data, starting empty",
			log.FieldLocation, s.backend.Location())
	case errors.Is(err, storage.ErrMalformed) && s.resetOnCorrupt:
		s.logger.WarnContext(ctx, "Stored data is malformed, resetting to empty",
			log.FieldOperation, log.OpReset,
			log.FieldLocation, s.backend.Location(),
			log.FieldError, err)
	default:
		return core.Aggregate{}, &core.StorageError{Op: "load", Path: s.backend.Location(), Err: err}
	}

	fresh := core.NewAggregate()
	if err := s.save(ctx, fresh); err != nil {
		return core.Aggregate{}, err
	}
	return fresh, nil
}

// reportUnparsedDates warns once per record about a stored date that is not
// YYYY-MM-DD. Such records load with a zero date and keep the text on save.
func (s *RecordStore) reportUnparsedDates(ctx context.Context, a core.Aggregate) {
	for _, e := range a.Expenses {
		s.reportUnparsedDate(ctx, "expense", e.ID, e.Date)
	}
	for _, in := range a.Income {
		s.reportUnparsedDate(ctx, "income", in.ID, in.Date)
	}
}

func (s *RecordStore) reportUnparsedDate(ctx context.Context, kind string, id int64, d core.Date) {
	text := d.Unparsed()
	if text == "" {
		return
	}
	key := kind + "/" + idKey(id) + "/" + text
	if _, seen := s.reported[key]; seen {
		return
	}
	s.reported[key] = struct{}{}
	s.logger.WarnContext(ctx, "Stored date is not YYYY-MM-DD, record kept without a date",
		log.FieldRecordKind, kind,
		log.FieldRecordID, id,
		"date", text)
}

func (s *RecordStore) save(ctx context.Context, a core.Aggregate) error {
	a.Normalize()
	if err := s.backend.Save(ctx, a); err != nil {
		return &core.StorageError{Op: "save", Path: s.backend.Location(), Err: err}
	}
	return nil
}

// update runs fn against a freshly loaded aggregate and saves the result.
// Nothing is written when fn fails.
func (s *RecordStore) update(ctx context.Context, op string, fn func(a *core.Aggregate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&a); err != nil {
		return err
	}
	if err := s.save(ctx, a); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist mutation",
			log.FieldOperation, op,
			log.FieldError, err)
		return err
	}
	return nil
}

func (s *RecordStore) read(ctx context.Context) (core.Aggregate, error) {
	return s.Load(ctx)
}

func (s *RecordStore) publish(ctx context.Context, ev amqp.RecordEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish record event",
			log.FieldRecordKind, ev.Kind,
			log.FieldRecordID, ev.Key,
			log.FieldOperation, ev.Op,
			log.FieldError, err)
	}
}

func (s *RecordStore) today() core.Date {
	return core.DateOf(s.now())
}

func (s *RecordStore) currency(code string) (string, error) {
	c, err := core.CurrencyOrDefault(code, s.defaultCurrency)
	if err != nil {
		return "", &core.ValidationError{Field: "currency", Err: err}
	}
	return c, nil
}

func idKey(id int64) string { return strconv.FormatInt(id, 10) }

func expenseEvent(op string, e core.Expense) amqp.RecordEvent {
	ev := amqp.NewRecordEvent(amqp.KindExpense, op, idKey(e.ID))
	ev.Category = e.Category
	ev.Amount = core.FormatAmount(e.Amount)
	ev.Currency = e.Currency
	return ev
}

func incomeEvent(op string, in core.Income) amqp.RecordEvent {
	ev := amqp.NewRecordEvent(amqp.KindIncome, op, idKey(in.ID))
	ev.Amount = core.FormatAmount(in.Amount)
	ev.Currency = in.Currency
	return ev
}

func budgetEvent(op string, b core.Budget) amqp.RecordEvent {
	ev := amqp.NewRecordEvent(amqp.KindBudget, op, b.Category)
	ev.Category = b.Category
	ev.Amount = core.FormatAmount(b.Amount)
	ev.Currency = b.Currency
	return ev
}

// Expenses

func (s *RecordStore) newExpense(in ExpenseInput) (core.Expense, error) {
	cur, err := s.currency(in.Currency)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
		Currency:    cur,
		Notes:       in.Notes,
	}
	if e.Category == "" {
		e.Category = core.DefaultCategory
	}
	if e.Date.IsZero() {
		e.Date = s.today()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *RecordStore) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := s.newExpense(in)
	if err != nil {
		return core.Expense{}, err
	}

	err = s.update(ctx, log.OpCreate, func(a *core.Aggregate) error {
		e.ID = core.IssueID(a.Expenses, a.Sequences.Expenses)
		a.Sequences.Expenses = e.ID
		a.Expenses = append(a.Expenses, e)
		return nil
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added",
		log.FieldRecordID, e.ID,
		log.FieldCategory, e.Category,
		log.FieldAmount, core.FormatAmount(e.Amount),
		log.FieldCurrency, e.Currency)
	s.publish(ctx, expenseEvent(amqp.OpCreated, e))
	return e, nil
}

// EditExpense applies every field set in p. A currency change rescales the
// amount, taken in the previous currency, at the current rate; a failed
// lookup rejects the whole edit.
func (s *RecordStore) EditExpense(ctx context.Context, id int64, p ExpensePatch) (core.Expense, error) {
	if p.Empty() {
		return core.Expense{}, &core.ValidationError{Field: "patch", Err: ErrEmptyPatch}
	}

	var edited core.Expense
	err := s.update(ctx, log.OpUpdate, func(a *core.Aggregate) error {
		i := a.IndexOfExpense(id)
		if i < 0 {
			return &core.NotFoundError{Kind: "expense", Key: idKey(id)}
		}
		e := a.Expenses[i]

		if p.Amount != nil {
			e.Amount = *p.Amount
		}
		if p.Description != nil {
			e.Description = strings.TrimSpace(*p.Description)
		}
		if p.Category != nil {
			e.Category = strings.TrimSpace(*p.Category)
			if e.Category == "" {
				e.Category = core.DefaultCategory
			}
		}
		if p.Date != nil {
			e.Date = *p.Date
		}
		if p.Notes != nil {
			e.Notes = *p.Notes
		}
		if p.Currency != nil {
			to, err := s.currency(*p.Currency)
			if err != nil {
				return err
			}
			if to != e.Currency {
				amount, err := s.converter.ConvertRounded(ctx, e.Amount, e.Currency, to)
				if err != nil {
					return err
				}
				e.Amount, e.Currency = amount, to
			}
		}
		check := e
		if p.Date == nil && check.Date.IsZero() {
			// Records stored without a readable date stay that way.
			check.Date = s.today()
		}
		if err := check.Validate(); err != nil {
			return err
		}

		a.Expenses[i] = e
		edited = e
		return nil
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("edit expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense edited", log.FieldRecordID, id)
	s.publish(ctx, expenseEvent(amqp.OpUpdated, edited))
	return edited, nil
}

func (s *RecordStore) DeleteExpense(ctx context.Context, id int64) error {
	var removed core.Expense
	err := s.update(ctx, log.OpDelete, func(a *core.Aggregate) error {
		i := a.IndexOfExpense(id)
		if i < 0 {
			return &core.NotFoundError{Kind: "expense", Key: idKey(id)}
		}
		removed = a.Expenses[i]
		a.Expenses = append(a.Expenses[:i:i], a.Expenses[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", log.FieldRecordID, id)
	s.publish(ctx, expenseEvent(amqp.OpDeleted, removed))
	return nil
}

func (s *RecordStore) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	a, err := s.read(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	i := a.IndexOfExpense(id)
	if i < 0 {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", Key: idKey(id)}
	}
	return a.Expenses[i], nil
}

func (s *RecordStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	a, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return a.Expenses, nil
}

// FilterExpenses returns the expenses matching every criterion set in f.
func (s *RecordStore) FilterExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	a, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterExpenses(a.Expenses, f), nil
}

// ConvertAllExpenses rewrites every expense not already in to, rounding to
// two places. Rates for all source currencies are resolved before any
// record changes; one failure aborts the whole conversion.
func (s *RecordStore) ConvertAllExpenses(ctx context.Context, to string) (int, error) {
	target, err := core.NormalizeCurrency(to)
	if err != nil {
		return 0, &core.ValidationError{Field: "currency", Err: err}
	}

	converted := 0
	err = s.update(ctx, log.OpConvert, func(a *core.Aggregate) error {
		rateFor := make(map[string]decimal.Decimal)
		for _, e := range a.Expenses {
			if e.Currency == target {
				continue
			}
			if _, ok := rateFor[e.Currency]; ok {
				continue
			}
			rate, err := s.converter.Rate(ctx, e.Currency, target)
			if err != nil {
				return err
			}
			rateFor[e.Currency] = rate
		}

		for i, e := range a.Expenses {
			rate, ok := rateFor[e.Currency]
			if !ok {
				continue
			}
			a.Expenses[i].Amount = core.Round2(e.Amount.Mul(rate))
			a.Expenses[i].Currency = target
			converted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("convert expenses to %s: %w", target, err)
	}

	s.logger.InfoContext(ctx, "Expenses converted",
		log.FieldCurrency, target,
		log.FieldCount, converted)
	if converted > 0 {
		ev := amqp.NewRecordEvent(amqp.KindExpense, amqp.OpConverted, "*")
		ev.Currency = target
		ev.Count = converted
		s.publish(ctx, ev)
	}
	return converted, nil
}

// ImportExpenses appends rows with fresh ids. Ids in the input are ignored.
// One invalid row rejects the whole import.
func (s *RecordStore) ImportExpenses(ctx context.Context, rows []core.Expense) (int, error) {
	prepared := make([]core.Expense, 0, len(rows))
	for i, r := range rows {
		e, err := s.newExpense(ExpenseInput{
			Amount:      r.Amount,
			Description: r.Description,
			Category:    r.Category,
			Date:        r.Date,
			Currency:    r.Currency,
			Notes:       r.Notes,
		})
		if err != nil {
			return 0, fmt.Errorf("import expenses: row %d: %w", i+1, err)
		}
		prepared = append(prepared, e)
	}
	if len(prepared) == 0 {
		return 0, nil
	}

	err := s.update(ctx, log.OpImport, func(a *core.Aggregate) error {
		for _, e := range prepared {
			e.ID = core.IssueID(a.Expenses, a.Sequences.Expenses)
			a.Sequences.Expenses = e.ID
			a.Expenses = append(a.Expenses, e)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Expenses imported", log.FieldCount, len(prepared))
	ev := amqp.NewRecordEvent(amqp.KindExpense, amqp.OpImported, "*")
	ev.Count = len(prepared)
	s.publish(ctx, ev)
	return len(prepared), nil
}

// Income

func (s *RecordStore) newIncome(in IncomeInput) (core.Income, error) {
	cur, err := s.currency(in.Currency)
	if err != nil {
		return core.Income{}, err
	}
	inc := core.Income{
		Amount:   in.Amount,
		Source:   strings.TrimSpace(in.Source),
		Date:     in.Date,
		Currency: cur,
		Notes:    in.Notes,
	}
	if inc.Date.IsZero() {
		inc.Date = s.today()
	}
	if err := inc.Validate(); err != nil {
		return core.Income{}, err
	}
	return inc, nil
}

func (s *RecordStore) AddIncome(ctx context.Context, in IncomeInput) (core.Income, error) {
	inc, err := s.newIncome(in)
	if err != nil {
		return core.Income{}, err
	}

	err = s.update(ctx, log.OpCreate, func(a *core.Aggregate) error {
		inc.ID = core.IssueID(a.Income, a.Sequences.Income)
		a.Sequences.Income = inc.ID
		a.Income = append(a.Income, inc)
		return nil
	})
	if err != nil {
		return core.Income{}, fmt.Errorf("add income: %w", err)
	}

	s.logger.InfoContext(ctx, "Income added",
		log.FieldRecordID, inc.ID,
		log.FieldAmount, core.FormatAmount(inc.Amount),
		log.FieldCurrency, inc.Currency)
	s.publish(ctx, incomeEvent(amqp.OpCreated, inc))
	return inc, nil
}

// EditIncome follows the same rules as EditExpense.
func (s *RecordStore) EditIncome(ctx context.Context, id int64, p IncomePatch) (core.Income, error) {
	if p.Empty() {
		return core.Income{}, &core.ValidationError{Field: "patch", Err: ErrEmptyPatch}
	}

	var edited core.Income
	err := s.update(ctx, log.OpUpdate, func(a *core.Aggregate) error {
		i := a.IndexOfIncome(id)
		if i < 0 {
			return &core.NotFoundError{Kind: "income", Key: idKey(id)}
		}
		inc := a.Income[i]

		if p.Amount != nil {
			inc.Amount = *p.Amount
		}
		if p.Source != nil {
			inc.Source = strings.TrimSpace(*p.Source)
		}
		if p.Date != nil {
			inc.Date = *p.Date
		}
		if p.Notes != nil {
			inc.Notes = *p.Notes
		}
		if p.Currency != nil {
			to, err := s.currency(*p.Currency)
			if err != nil {
				return err
			}
			if to != inc.Currency {
				amount, err := s.converter.ConvertRounded(ctx, inc.Amount, inc.Currency, to)
				if err != nil {
					return err
				}
				inc.Amount, inc.Currency = amount, to
			}
		}
		check := inc
		if p.Date == nil && check.Date.IsZero() {
			check.Date = s.today()
		}
		if err := check.Validate(); err != nil {
			return err
		}

		a.Income[i] = inc
		edited = inc
		return nil
	})
	if err != nil {
		return core.Income{}, fmt.Errorf("edit income %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Income edited", log.FieldRecordID, id)
	s.publish(ctx, incomeEvent(amqp.OpUpdated, edited))
	return edited, nil
}

func (s *RecordStore) DeleteIncome(ctx context.Context, id int64) error {
	var removed core.Income
	err := s.update(ctx, log.OpDelete, func(a *core.Aggregate) error {
		i := a.IndexOfIncome(id)
		if i < 0 {
			return &core.NotFoundError{Kind: "income", Key: idKey(id)}
		}
		removed = a.Income[i]
		a.Income = append(a.Income[:i:i], a.Income[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Income deleted", log.FieldRecordID, id)
	s.publish(ctx, incomeEvent(amqp.OpDeleted, removed))
	return nil
}

func (s *RecordStore) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	a, err := s.read(ctx)
	if err != nil {
		return core.Income{}, err
	}
	i := a.IndexOfIncome(id)
	if i < 0 {
		return core.Income{}, &core.NotFoundError{Kind: "income", Key: idKey(id)}
	}
	return a.Income[i], nil
}

func (s *RecordStore) ListIncome(ctx context.Context) ([]core.Income, error) {
	a, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return a.Income, nil
}

func (s *RecordStore) FilterIncome(ctx context.Context, f core.IncomeFilter) ([]core.Income, error) {
	a, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterIncome(a.Income, f), nil
}

func (s *RecordStore) ImportIncome(ctx context.Context, rows []core.Income) (int, error) {
	prepared := make([]core.Income, 0, len(rows))
	for i, r := range rows {
		inc, err := s.newIncome(IncomeInput{
			Amount:   r.Amount,
			Source:   r.Source,
			Date:     r.Date,
			Currency: r.Currency,
			Notes:    r.Notes,
		})
		if err != nil {
			return 0, fmt.Errorf("import income: row %d: %w", i+1, err)
		}
		prepared = append(prepared, inc)
	}
	if len(prepared) == 0 {
		return 0, nil
	}

	err := s.update(ctx, log.OpImport, func(a *core.Aggregate) error {
		for _, inc := range prepared {
			inc.ID = core.IssueID(a.Income, a.Sequences.Income)
			a.Sequences.Income = inc.ID
			a.Income = append(a.Income, inc)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import income: %w", err)
	}

	s.logger.InfoContext(ctx, "Income imported", log.FieldCount, len(prepared))
	ev := amqp.NewRecordEvent(amqp.KindIncome, amqp.OpImported, "*")
	ev.Count = len(prepared)
	s.publish(ctx, ev)
	return len(prepared), nil
}

// Budgets

func (s *RecordStore) AddBudget(ctx context.Context, in BudgetInput) (core.Budget, error) {
	cur, err := s.currency(in.Currency)
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{Category: strings.TrimSpace(in.Category), Amount: in.Amount, Currency: cur}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err = s.update(ctx, log.OpCreate, func(a *core.Aggregate) error {
		if a.FindBudget(b.Category) >= 0 {
			return &core.ValidationError{Field: "category", Err: core.ErrDuplicateBudget}
		}
		a.Budgets = append(a.Budgets, b)
		return nil
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("add budget %q: %w", b.Category, err)
	}

	s.logger.InfoContext(ctx, "Budget added",
		log.FieldCategory, b.Category,
		log.FieldAmount, core.FormatAmount(b.Amount))
	s.publish(ctx, budgetEvent(amqp.OpCreated, b))
	return b, nil
}

// SetBudgetAmount sets the allocation for category, creating the budget in
// the default currency when it does not exist.
func (s *RecordStore) SetBudgetAmount(ctx context.Context, category string, amount decimal.Decimal) (core.Budget, error) {
	b := core.Budget{Category: strings.TrimSpace(category), Amount: amount, Currency: s.defaultCurrency}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	op := amqp.OpCreated
	err := s.update(ctx, log.OpUpdate, func(a *core.Aggregate) error {
		if i := a.FindBudget(b.Category); i >= 0 {
			a.Budgets[i].Amount = amount
			b = a.Budgets[i]
			op = amqp.OpUpdated
			return nil
		}
		a.Budgets = append(a.Budgets, b)
		return nil
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget %q: %w", b.Category, err)
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldCategory, b.Category,
		log.FieldAmount, core.FormatAmount(b.Amount))
	s.publish(ctx, budgetEvent(op, b))
	return b, nil
}

// EditBudget renames, resizes or re-denominates the budget for category. A
// rename may not collide with another budget; a currency change without a
// new amount rescales the allocation.
func (s *RecordStore) EditBudget(ctx context.Context, category string, p BudgetPatch) (core.Budget, error) {
	if p.Empty() {
		return core.Budget{}, &core.ValidationError{Field: "patch", Err: ErrEmptyPatch}
	}

	var edited core.Budget
	err := s.update(ctx, log.OpUpdate, func(a *core.Aggregate) error {
		i := a.FindBudget(category)
		if i < 0 {
			return &core.NotFoundError{Kind: "budget", Key: category}
		}
		b := a.Budgets[i]
		if b.Currency == "" {
			b.Currency = s.defaultCurrency
		}

		if p.Category != nil {
			name := strings.TrimSpace(*p.Category)
			if j := a.FindBudget(name); j >= 0 && j != i {
				return &core.ValidationError{Field: "category", Err: core.ErrDuplicateBudget}
			}
			b.Category = name
		}
		if p.Amount != nil {
			b.Amount = *p.Amount
		}
		if p.Currency != nil {
			to, err := s.currency(*p.Currency)
			if err != nil {
				return err
			}
			if to != b.Currency && p.Amount == nil {
				amount, err := s.converter.ConvertRounded(ctx, b.Amount, b.Currency, to)
				if err != nil {
					return err
				}
				b.Amount = amount
			}
			b.Currency = to
		}
		if err := b.Validate(); err != nil {
			return err
		}

		a.Budgets[i] = b
		edited = b
		return nil
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("edit budget %q: %w", category, err)
	}

	s.logger.InfoContext(ctx, "Budget edited", log.FieldCategory, edited.Category)
	s.publish(ctx, budgetEvent(amqp.OpUpdated, edited))
	return edited, nil
}

func (s *RecordStore) DeleteBudget(ctx context.Context, category string) error {
	var removed core.Budget
	err := s.update(ctx, log.OpDelete, func(a *core.Aggregate) error {
		i := a.FindBudget(category)
		if i < 0 {
			return &core.NotFoundError{Kind: "budget", Key: category}
		}
		removed = a.Budgets[i]
		a.Budgets = append(a.Budgets[:i:i], a.Budgets[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete budget %q: %w", category, err)
	}

	s.logger.InfoContext(ctx, "Budget deleted", log.FieldCategory, removed.Category)
	s.publish(ctx, budgetEvent(amqp.OpDeleted, removed))
	return nil
}

// GetBudget looks a budget up by case-insensitive category. A stored budget
// without a currency is reported in the default currency.
func (s *RecordStore) GetBudget(ctx context.Context, category string) (core.Budget, error) {
	a, err := s.read(ctx)
	if err != nil {
		return core.Budget{}, err
	}
	i := a.FindBudget(category)
	if i < 0 {
		return core.Budget{}, &core.NotFoundError{Kind: "budget", Key: category}
	}
	b := a.Budgets[i]
	if b.Currency == "" {
		b.Currency = s.defaultCurrency
	}
	return b, nil
}

func (s *RecordStore) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	a, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	for i := range a.Budgets {
		if a.Budgets[i].Currency == "" {
			a.Budgets[i].Currency = s.defaultCurrency
		}
	}
	return a.Budgets, nil
}

// Close releases the backend.
func (s *RecordStore) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
