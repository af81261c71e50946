package rates

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Converter applies rates from a Source. Every failure, including a bad
// currency code, is reported as *core.ConversionError.
type Converter struct {
	source Source
}

func NewConverter(source Source) *Converter {
	return &Converter{source: source}
}

// Rate returns the factor converting from into to. Identical codes yield 1
// without consulting the source.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	f, errFrom := core.NormalizeCurrency(from)
	t, errTo := core.NormalizeCurrency(to)
	if errFrom != nil {
		return decimal.Zero, &core.ConversionError{From: from, To: to, Err: errFrom}
	}
	if errTo != nil {
		return decimal.Zero, &core.ConversionError{From: from, To: to, Err: errTo}
	}
	if f == t {
		return decimal.NewFromInt(1), nil
	}
	if c.source == nil {
		return decimal.Zero, &core.ConversionError{From: f, To: t, Err: ErrNoSource}
	}

	rate, err := c.source.Rate(ctx, f, t)
	if err != nil {
		return decimal.Zero, &core.ConversionError{From: f, To: t, Err: err}
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, &core.ConversionError{From: f, To: t, Err: ErrBadRate}
	}
	return rate, nil
}

// Convert returns amount expressed in to, unrounded, for use in aggregation.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// ConvertRounded is Convert rounded to two places, for rewriting stored records.
func (c *Converter) ConvertRounded(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	v, err := c.Convert(ctx, amount, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Round2(v), nil
}

// SymbolFor returns the display glyph for code. It never fails.
func (c *Converter) SymbolFor(code string) string {
	return core.SymbolFor(code)
}
