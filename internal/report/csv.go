package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// WriteCSV writes header followed by every row. Fields containing commas,
// quotes or newlines are quoted.
func WriteCSV(w io.Writer, header []string, rows iter.Seq[Row]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvTable indexes the columns of a CSV stream by lower-cased header name.
type csvTable struct {
	r    *csv.Reader
	cols map[string]int
	line int
}

func openCSV(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.ValidationError{Field: "csv", Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, &core.ValidationError{Field: "csv", Err: err}
	}

	t := &csvTable{r: cr, cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			return nil, &core.ValidationError{Field: "csv", Err: fmt.Errorf("missing column %q", name)}
		}
	}
	return t, nil
}

// next returns the following non-blank record, or io.EOF.
func (t *csvTable) next() ([]string, error) {
	for {
		rec, err := t.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &core.ValidationError{Field: "csv", Err: err}
		}
		t.line, _ = t.r.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		return rec, nil
	}
}

func (t *csvTable) get(rec []string, names ...string) string {
	for _, name := range names {
		if i, ok := t.cols[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
	}
	return ""
}

func (t *csvTable) rowError(field string, err error) error {
	return fmt.Errorf("line %d: %w", t.line, &core.ValidationError{Field: field, Err: err})
}

func (t *csvTable) amount(rec []string, names ...string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(t.get(rec, names...))
	if err != nil {
		return decimal.Zero, t.rowError(names[0], core.ErrInvalidAmount)
	}
	return v, nil
}

func (t *csvTable) date(rec []string) (core.Date, error) {
	d, err := core.ParseDate(t.get(rec, "date"))
	if err != nil {
		return core.Date{}, t.rowError("date", err)
	}
	return d, nil
}

// ReadExpenseCSV parses rows written by WriteCSV with ExpenseHeader. Column
// order is free; "tags" is accepted for "category". Ids are not read.
func ReadExpenseCSV(r io.Reader) ([]core.Expense, error) {
	t, err := openCSV(r, "price", "purchased")
	if err != nil {
		return nil, err
	}

	var out []core.Expense
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		amount, err := t.amount(rec, "price")
		if err != nil {
			return nil, err
		}
		date, err := t.date(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Expense{
			Amount:      amount,
			Description: t.get(rec, "purchased"),
			Category:    t.get(rec, "category", "tags"),
			Date:        date,
			Currency:    t.get(rec, "currency"),
			Notes:       t.get(rec, "notes"),
		})
	}
}

// ReadIncomeCSV parses rows written with IncomeHeader.
func ReadIncomeCSV(r io.Reader) ([]core.Income, error) {
	t, err := openCSV(r, "amount", "source")
	if err != nil {
		return nil, err
	}

	var out []core.Income
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		amount, err := t.amount(rec, "amount")
		if err != nil {
			return nil, err
		}
		date, err := t.date(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Income{
			Amount:   amount,
			Source:   t.get(rec, "source"),
			Date:     date,
			Currency: t.get(rec, "currency"),
			Notes:    t.get(rec, "notes"),
		})
	}
}
