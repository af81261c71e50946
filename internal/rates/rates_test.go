package rates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type countingSource struct {
	mu    sync.Mutex
	calls int
	rate  decimal.Decimal
	err   error
}

func (s *countingSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.rate, s.err
}

func TestClientRate(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/latest" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"amount":1.0,"base":"USD","date":"2024-03-01","rates":{"EUR":0.9213}}`)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &logs})
	c := NewClient(srv.URL+"/", time.Second, logger)
	rate, err := c.Rate(context.Background(), "usd", "eur")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !rate.Equal(dec("0.9213")) {
		t.Fatalf("rate = %s", rate)
	}
	if gotQuery != "from=USD&to=EUR" {
		t.Fatalf("query = %q", gotQuery)
	}
	out := logs.String()
	if !strings.Contains(out, "Fetched exchange rate") || !strings.Contains(out, "component=rates") ||
		!strings.Contains(out, "as_of=2024-03-01") {
		t.Fatalf("lookup not logged through the injected logger: %q", out)
	}
}

func TestClientRateFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, nil},
		{"unknown code", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"rates":{"GBP":0.8}}`)
		}, ErrUnknownCurrency},
		{"zero rate", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"rates":{"EUR":0}}`)
		}, ErrBadRate},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>`)
		}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, time.Second, nil).Rate(context.Background(), "usd", "eur")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond, nil).Rate(context.Background(), "usd", "eur")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestConverterSameCurrencySkipsSource(t *testing.T) {
	src := &countingSource{err: errors.New("must not be called")}
	c := NewConverter(src)
	for _, amount := range []string{"0", "1", "123.456", "99999.99"} {
		got, err := c.Convert(context.Background(), dec(amount), "USD", "usd")
		if err != nil || !got.Equal(dec(amount)) {
			t.Fatalf("convert %s usd->usd = %s (err=%v)", amount, got, err)
		}
	}
	if src.calls != 0 {
		t.Fatalf("source called %d times", src.calls)
	}
}

func TestConverterFailureIsConversionError(t *testing.T) {
	c := NewConverter(&countingSource{err: errors.New("offline")})
	_, err := c.Convert(context.Background(), dec("10"), "usd", "eur")
	var cerr *core.ConversionError
	if !errors.As(err, &cerr) || cerr.From != "usd" || cerr.To != "eur" {
		t.Fatalf("expected ConversionError usd->eur, got %v", err)
	}

	if _, err := c.Rate(context.Background(), "usd", "euro"); !core.IsConversion(err) {
		t.Fatalf("bad code should be a ConversionError, got %v", err)
	}
	if _, err := NewConverter(nil).Rate(context.Background(), "usd", "eur"); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if _, err := NewConverter(&countingSource{rate: decimal.Zero}).Rate(context.Background(), "usd", "eur"); !errors.Is(err, ErrBadRate) {
		t.Fatalf("zero rate must be rejected, got %v", err)
	}
}

func TestConverterRounding(t *testing.T) {
	c := NewConverter(&countingSource{rate: dec("0.9137")})
	raw, err := c.Convert(context.Background(), dec("10.5"), "usd", "eur")
	if err != nil || !raw.Equal(dec("9.59385")) {
		t.Fatalf("Convert = %s (err=%v)", raw, err)
	}
	rounded, err := c.ConvertRounded(context.Background(), dec("10.5"), "usd", "eur")
	if err != nil || !rounded.Equal(dec("9.59")) {
		t.Fatalf("ConvertRounded = %s (err=%v)", rounded, err)
	}
	if c.SymbolFor("gbp") != "£" || c.SymbolFor("abc") != "ABC" {
		t.Fatalf("SymbolFor mismatch")
	}
}

func TestCachedSource(t *testing.T) {
	next := &countingSource{rate: dec("0.9")}
	s := NewCachedSource(next, 10, time.Hour)
	for i := 0; i < 3; i++ {
		if r, err := s.Rate(context.Background(), "usd", "eur"); err != nil || !r.Equal(dec("0.9")) {
			t.Fatalf("Rate = %s (err=%v)", r, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}
	if s.Cache().Len() != 1 {
		t.Fatalf("cache size = %d", s.Cache().Len())
	}
}

func TestCachedSourceDoesNotCacheFailures(t *testing.T) {
	next := &countingSource{err: errors.New("offline")}
	s := NewCachedSource(next, 10, time.Hour)
	_, _ = s.Rate(context.Background(), "usd", "eur")
	_, _ = s.Rate(context.Background(), "usd", "eur")
	if next.calls != 2 {
		t.Fatalf("failures must not be cached, calls = %d", next.calls)
	}
}

func TestCachedSourceConcurrent(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	slow := sourceFunc(func(ctx context.Context, from, to string) (decimal.Decimal, error) {
		calls.Add(1)
		<-gate
		return dec("1.1"), nil
	})
	s := NewCachedSource(slow, 10, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Rate(context.Background(), "eur", "usd"); err != nil {
				t.Errorf("Rate: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	if n := calls.Load(); n < 1 || n > 8 {
		t.Fatalf("unexpected upstream calls %d", n)
	}
}

type sourceFunc func(ctx context.Context, from, to string) (decimal.Decimal, error)

func (f sourceFunc) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	return f(ctx, from, to)
}

func TestStaticAndChain(t *testing.T) {
	static, err := ParseStaticRates(map[string]string{"USD:EUR": "0.8"})
	if err != nil {
		t.Fatalf("ParseStaticRates: %v", err)
	}
	if r, _ := static.Rate(context.Background(), "usd", "eur"); !r.Equal(dec("0.8")) {
		t.Fatalf("direct = %s", r)
	}
	if r, _ := static.Rate(context.Background(), "eur", "usd"); !r.Equal(dec("1.25")) {
		t.Fatalf("inverse = %s", r)
	}
	if _, err := ParseStaticRates(map[string]string{"usdeur": "1"}); err == nil {
		t.Fatalf("expected key error")
	}
	if _, err := ParseStaticRates(map[string]string{"usd:eur": "-1"}); err == nil {
		t.Fatalf("expected value error")
	}

	remote := &countingSource{rate: dec("150")}
	chain := Chain{static, remote}
	if r, err := chain.Rate(context.Background(), "usd", "jpy"); err != nil || !r.Equal(dec("150")) {
		t.Fatalf("chain fallback = %s (err=%v)", r, err)
	}
	if _, err := chain.Rate(context.Background(), "usd", "eur"); err != nil || remote.calls != 1 {
		t.Fatalf("static pair should not reach remote, calls=%d err=%v", remote.calls, err)
	}
	if _, err := (Chain{static}).Rate(context.Background(), "usd", "jpy"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}
