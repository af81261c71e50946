package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory is assigned to expenses recorded without a category.
	DefaultCategory = "other"
	// DefaultCurrency is used when neither the caller nor configuration supplies one.
	DefaultCurrency = "usd"

	dateLayout        = "2006-01-02"
	maxDescriptionLen = 200
)

type (
	// Date is a calendar day. A date read from storage that is not
	// YYYY-MM-DD is zero but keeps its text so it is saved back unchanged.
	Date struct {
		time.Time
		unparsed string
		// raw marks unparsed as a JSON value other than a string.
		raw bool
	}

	Expense struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"price"`
		Description string          `json:"purchased"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Currency    string          `json:"currency"`
		Notes       string          `json:"notes,omitempty"`
	}

	Income struct {
		ID       int64           `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Source   string          `json:"source"`
		Date     Date            `json:"date"`
		Currency string          `json:"currency"`
		Notes    string          `json:"notes,omitempty"`
	}

	Budget struct {
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency,omitempty"`
	}

	// Sequences records the highest id ever issued per collection so that
	// deleted ids are not handed out again.
	Sequences struct {
		Expenses int64 `json:"expenses,omitempty"`
		Income   int64 `json:"income,omitempty"`
	}

	// Aggregate is the whole persisted document.
	Aggregate struct {
		Expenses  []Expense `json:"expenses"`
		Income    []Income  `json:"income"`
		Budgets   []Budget  `json:"budgets"`
		Sequences Sequences `json:"sequences"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptySource        = errors.New("empty source")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrDuplicateBudget    = errors.New("budget already exists for category")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// StoredDate reads persisted date text. Unlike ParseDate it never fails.
func StoredDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		return Date{unparsed: s}
	}
	return d
}

// Unparsed returns the persisted text of a date that could not be read,
// or "".
func (d Date) Unparsed() string {
	return d.unparsed
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		if d.raw {
			return []byte(d.unparsed), nil
		}
		if d.unparsed != "" {
			return json.Marshal(d.unparsed)
		}
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" and null; the latter two yield the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// storedDateJSON decodes a persisted date value. Strings that are not
// YYYY-MM-DD are kept as unparsed text; non-string values are kept as raw
// JSON and written back with their original type.
func storedDateJSON(raw json.RawMessage) Date {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return Date{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Date{unparsed: string(raw), raw: true}
	}
	return StoredDate(s)
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// UnmarshalJSON reads a stored expense. It accepts the legacy "tags" key in
// place of "category", and keeps a date it cannot parse as unparsed text.
func (e *Expense) UnmarshalJSON(data []byte) error {
	type plain Expense
	var aux struct {
		plain
		Date json.RawMessage `json:"date"`
		Tags *string         `json:"tags"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Expense(aux.plain)
	e.Date = storedDateJSON(aux.Date)
	if e.Category == "" && aux.Tags != nil {
		e.Category = *aux.Tags
	}
	return nil
}

// UnmarshalJSON reads a stored income entry, keeping a date it cannot parse
// as unparsed text.
func (in *Income) UnmarshalJSON(data []byte) error {
	type plain Income
	var aux struct {
		plain
		Date json.RawMessage `json:"date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = Income(aux.plain)
	in.Date = storedDateJSON(aux.Date)
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.Sign() <= 0 {
		return &ValidationError{Field: "price", Err: ErrInvalidAmount}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "purchased", Err: ErrEmptyDescription}
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLen {
		return &ValidationError{Field: "purchased", Err: ErrDescriptionTooLong}
	}
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if _, err := NormalizeCurrency(e.Currency); err != nil {
		return &ValidationError{Field: "currency", Err: err}
	}
	return nil
}

func (in Income) Validate() error {
	if in.Amount.Sign() <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if strings.TrimSpace(in.Source) == "" {
		return &ValidationError{Field: "source", Err: ErrEmptySource}
	}
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if _, err := NormalizeCurrency(in.Currency); err != nil {
		return &ValidationError{Field: "currency", Err: err}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrNegativeAmount}
	}
	if b.Currency != "" {
		if _, err := NormalizeCurrency(b.Currency); err != nil {
			return &ValidationError{Field: "currency", Err: err}
		}
	}
	return nil
}

// SameCategory compares category names case-insensitively, ignoring surrounding space.
func SameCategory(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NewAggregate returns an empty aggregate with non-nil collections.
func NewAggregate() Aggregate {
	return Aggregate{
		Expenses: []Expense{},
		Income:   []Income{},
		Budgets:  []Budget{},
	}
}

// Normalize replaces nil collections with empty ones so the document always
// serializes with all three keys present.
func (a *Aggregate) Normalize() {
	if a.Expenses == nil {
		a.Expenses = []Expense{}
	}
	if a.Income == nil {
		a.Income = []Income{}
	}
	if a.Budgets == nil {
		a.Budgets = []Budget{}
	}
}

// UnmarshalJSON also accepts the legacy singular "budget" key.
func (a *Aggregate) UnmarshalJSON(data []byte) error {
	type plain Aggregate
	var aux struct {
		plain
		Budget []Budget `json:"budget"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Aggregate(aux.plain)
	if a.Budgets == nil && aux.Budget != nil {
		a.Budgets = aux.Budget
	}
	a.Normalize()
	return nil
}

// FindBudget returns the index of the budget for category, or -1.
func (a Aggregate) FindBudget(category string) int {
	for i, b := range a.Budgets {
		if SameCategory(b.Category, category) {
			return i
		}
	}
	return -1
}
