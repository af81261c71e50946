package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that never reached domain validation.
var errBadRequest = errors.New("bad request")

type expenseBody struct {
	Price     *decimal.Decimal `json:"price"`
	Purchased *string          `json:"purchased"`
	Category  *string          `json:"category"`
	Tags      *string          `json:"tags"`
	Date      *core.Date       `json:"date"`
	Currency  *string          `json:"currency"`
	Notes     *string          `json:"notes"`
}

func (b expenseBody) category() *string {
	if b.Category != nil {
		return b.Category
	}
	return b.Tags
}

func (b expenseBody) input() services.ExpenseInput {
	return services.ExpenseInput{
		Amount:      deref(b.Price),
		Description: deref(b.Purchased),
		Category:    deref(b.category()),
		Date:        deref(b.Date),
		Currency:    deref(b.Currency),
		Notes:       deref(b.Notes),
	}
}

func (b expenseBody) patch() services.ExpensePatch {
	return services.ExpensePatch{
		Amount:      b.Price,
		Description: b.Purchased,
		Category:    b.category(),
		Date:        b.Date,
		Currency:    b.Currency,
		Notes:       b.Notes,
	}
}

type incomeBody struct {
	Amount   *decimal.Decimal `json:"amount"`
	Source   *string          `json:"source"`
	Date     *core.Date       `json:"date"`
	Currency *string          `json:"currency"`
	Notes    *string          `json:"notes"`
}

func (b incomeBody) input() services.IncomeInput {
	return services.IncomeInput{
		Amount:   deref(b.Amount),
		Source:   deref(b.Source),
		Date:     deref(b.Date),
		Currency: deref(b.Currency),
		Notes:    deref(b.Notes),
	}
}

func (b incomeBody) patch() services.IncomePatch {
	return services.IncomePatch{
		Amount:   b.Amount,
		Source:   b.Source,
		Date:     b.Date,
		Currency: b.Currency,
		Notes:    b.Notes,
	}
}

type budgetBody struct {
	Category *string          `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Currency *string          `json:"currency"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: fmt.Errorf("invalid id %q", raw)}
	}
	return id, nil
}

// pathCategory returns the unescaped {category} segment.
func pathCategory(r *http.Request) string {
	raw := chi.URLParam(r, "category")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func queryAmount(q url.Values, key string) (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := core.ParseNonNegativeAmount(raw)
	if err != nil {
		return decimal.NullDecimal{}, &core.ValidationError{Field: key, Err: err}
	}
	return decimal.NewNullDecimal(v), nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	d, err := core.ParseDate(q.Get(key))
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: key, Err: err}
	}
	return d, nil
}

// queryCurrency normalizes an optional currency parameter, falling back to def.
func queryCurrency(q url.Values, key, def string) (string, error) {
	cur, err := core.CurrencyOrDefault(q.Get(key), def)
	if err != nil {
		return "", &core.ValidationError{Field: key, Err: err}
	}
	return cur, nil
}

// parseExpenseFilter reads min, max, q, category, currency, from and to.
func parseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	var (
		f   core.ExpenseFilter
		err error
	)
	if f.MinAmount, err = queryAmount(q, "min"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = queryAmount(q, "max"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "to"); err != nil {
		return f, err
	}
	f.Description = strings.TrimSpace(q.Get("q"))
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Currency = strings.TrimSpace(q.Get("currency"))
	return f, nil
}

func parseIncomeFilter(q url.Values) (core.IncomeFilter, error) {
	var (
		f   core.IncomeFilter
		err error
	)
	if f.MinAmount, err = queryAmount(q, "min"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = queryAmount(q, "max"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "to"); err != nil {
		return f, err
	}
	f.Source = strings.TrimSpace(q.Get("source"))
	f.Currency = strings.TrimSpace(q.Get("currency"))
	return f, nil
}
