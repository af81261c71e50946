package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StaticSource serves fixed rates keyed "from:to" (lower-case). The inverse
// direction is derived when only one side is listed.
type StaticSource map[string]decimal.Decimal

// ParseStaticRates builds a StaticSource from "usd:eur" -> "0.9" pairs.
func ParseStaticRates(in map[string]string) (StaticSource, error) {
	out := make(StaticSource, len(in))
	for pair, raw := range in {
		from, to, ok := strings.Cut(strings.ToLower(strings.TrimSpace(pair)), ":")
		if !ok || len(from) != 3 || len(to) != 3 {
			return nil, fmt.Errorf("fixed rate key %q: want from:to", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || rate.Sign() <= 0 {
			return nil, fmt.Errorf("fixed rate %s: invalid value %q", pair, raw)
		}
		out[from+":"+to] = rate
	}
	return out, nil
}

func (s StaticSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if r, ok := s[from+":"+to]; ok {
		return r, nil
	}
	if r, ok := s[to+":"+from]; ok && r.Sign() > 0 {
		return decimal.NewFromInt(1).DivRound(r, 10), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s:%s", ErrUnknownCurrency, from, to)
}

// Chain asks each source in turn, moving on only when a source does not
// know the pair. Other failures stop the chain.
type Chain []Source

func (c Chain) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	err := ErrNoSource
	for _, s := range c {
		var rate decimal.Decimal
		rate, err = s.Rate(ctx, from, to)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, ErrUnknownCurrency) {
			return decimal.Zero, err
		}
	}
	return decimal.Zero, err
}
