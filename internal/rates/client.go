// Package rates resolves exchange rates and converts amounts between
// currencies.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/log"
)

// DefaultBaseURL is the public Frankfurter API.
const DefaultBaseURL = "https://api.frankfurter.app"

var (
	ErrUnknownCurrency = errors.New("rate source does not list currency")
	ErrBadRate         = errors.New("rate source returned an unusable rate")
	ErrNoSource        = errors.New("no rate source configured")
)

// Source looks up the factor that converts one unit of from into to.
// Codes are lower-case ISO 4217.
type Source interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Client queries a Frankfurter-compatible endpoint:
//
//	GET {base}/latest?from=USD&to=EUR -> {"rates":{"EUR":0.92}}
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger.WithComponent(log.ComponentRates),
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fromU, toU := strings.ToUpper(from), strings.ToUpper(to)
	q := url.Values{}
	q.Set("from", fromU)
	q.Set("to", toU)
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("rate source status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := payload.Rates[toU]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, toU)
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrBadRate, rate)
	}

	c.logger.DebugContext(ctx, "Fetched exchange rate",
		"from", from,
		"to", to,
		"rate", rate.String(),
		"as_of", payload.Date,
		log.FieldDuration, time.Since(start).Milliseconds())

	return rate, nil
}
