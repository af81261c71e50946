package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"

	_ "modernc.org/sqlite"
)

const (
	seqExpenses = "expenses"
	seqIncome   = "income"
	metaSaved   = "saved"
)

// SQLiteBackend stores each collection in its own table. Save rewrites
// every table inside one transaction.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

func NewSQLiteBackend(dbPath string, logger *log.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.WithComponent(log.ComponentBackend).Debug("SQLite schema ready",
		log.FieldLocation, dbPath,
		log.FieldVersion, version)

	return &SQLiteBackend{db: db, path: dbPath}, nil
}

func (s *SQLiteBackend) Location() string { return s.path }

func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteBackend) Load(ctx context.Context) (core.Aggregate, error) {
	var saved string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, metaSaved).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Aggregate{}, ErrMissing
	}
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("read store meta: %w", err)
	}

	a := core.NewAggregate()
	if a.Expenses, err = s.loadExpenses(ctx); err != nil {
		return core.Aggregate{}, err
	}
	if a.Income, err = s.loadIncome(ctx); err != nil {
		return core.Aggregate{}, err
	}
	if a.Budgets, err = s.loadBudgets(ctx); err != nil {
		return core.Aggregate{}, err
	}
	if a.Sequences, err = s.loadSequences(ctx); err != nil {
		return core.Aggregate{}, err
	}
	return a, nil
}

func (s *SQLiteBackend) loadExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, description, category, date, currency, notes FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e             core.Expense
			amount, dateS string
		)
		if err := rows.Scan(&e.ID, &amount, &e.Description, &e.Category, &dateS, &e.Currency, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: expense %d amount %q", ErrUnreadable, e.ID, amount)
		}
		e.Date = core.StoredDate(dateS)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) loadIncome(ctx context.Context) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, source, date, currency, notes FROM income ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query income: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		var (
			in            core.Income
			amount, dateS string
		)
		if err := rows.Scan(&in.ID, &amount, &in.Source, &dateS, &in.Currency, &in.Notes); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: income %d amount %q", ErrUnreadable, in.ID, amount)
		}
		in.Date = core.StoredDate(dateS)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) loadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, amount, currency FROM budgets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b      core.Budget
			amount string
		)
		if err := rows.Scan(&b.Category, &amount, &b.Currency); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: budget %q amount %q", ErrUnreadable, b.Category, amount)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) loadSequences(ctx context.Context) (core.Sequences, error) {
	var seq core.Sequences
	rows, err := s.db.QueryContext(ctx, `SELECT collection, last_id FROM sequences`)
	if err != nil {
		return seq, fmt.Errorf("query sequences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			last int64
		)
		if err := rows.Scan(&name, &last); err != nil {
			return seq, fmt.Errorf("scan sequence: %w", err)
		}
		switch name {
		case seqExpenses:
			seq.Expenses = last
		case seqIncome:
			seq.Income = last
		}
	}
	return seq, rows.Err()
}

// Save replaces all rows in a single transaction.
func (s *SQLiteBackend) Save(ctx context.Context, a core.Aggregate) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"expenses", "income", "budgets", "sequences"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, e := range a.Expenses {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO expenses (id, position, amount, description, category, date, currency, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, i, e.Amount.String(), e.Description, e.Category, dateText(e.Date), e.Currency, e.Notes); err != nil {
			return fmt.Errorf("insert expense %d: %w", e.ID, err)
		}
	}
	for i, in := range a.Income {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO income (id, position, amount, source, date, currency, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			in.ID, i, in.Amount.String(), in.Source, dateText(in.Date), in.Currency, in.Notes); err != nil {
			return fmt.Errorf("insert income %d: %w", in.ID, err)
		}
	}
	for i, b := range a.Budgets {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO budgets (category, position, amount, currency) VALUES (?, ?, ?, ?)`,
			b.Category, i, b.Amount.String(), b.Currency); err != nil {
			return fmt.Errorf("insert budget %q: %w", b.Category, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sequences (collection, last_id) VALUES (?, ?), (?, ?)`,
		seqExpenses, a.Sequences.Expenses, seqIncome, a.Sequences.Income); err != nil {
		return fmt.Errorf("insert sequences: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO store_meta (key, value) VALUES (?, '1') ON CONFLICT(key) DO NOTHING`, metaSaved); err != nil {
		return fmt.Errorf("mark store saved: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// dateText is the column value for d, keeping text that never parsed.
func dateText(d core.Date) string {
	if u := d.Unparsed(); u != "" {
		return u
	}
	return d.String()
}
