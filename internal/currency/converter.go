// Package currency converts amounts between ISO 4217 currencies using an
// exchange-rates HTTP API.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultRateTTL = time.Hour

// Conversion is the outcome of a single conversion.
type Conversion struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Result decimal.Decimal `json:"result"`
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Converter fetches exchange rates and converts amounts. Rates are cached
// in-memory per currency pair for RateTTL.
type Converter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	RateTTL    time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	rates map[string]cachedRate // keyed by "USD:EUR"
}

// NewConverter creates a Converter against the given convert endpoint.
func NewConverter(httpClient *http.Client, baseURL, apiKey string) *Converter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Converter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		RateTTL:    defaultRateTTL,
		now:        time.Now,
		rates:      make(map[string]cachedRate),
	}
}

// Configured reports whether an API endpoint has been set.
func (c *Converter) Configured() bool {
	return c.baseURL != ""
}

// apiResponse is the subset of the convert endpoint's payload we read.
type apiResponse struct {
	Success bool            `json:"success"`
	Result  decimal.Decimal `json:"result"`
	Info    struct {
		Rate decimal.Decimal `json:"rate"`
	} `json:"info"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Convert converts amount from one currency to another.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Conversion, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return &Conversion{From: from, To: to, Amount: amount, Rate: decimal.NewFromInt(1), Result: amount}, nil
	}

	rate, err := c.GetRate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &Conversion{
		From:   from,
		To:     to,
		Amount: amount,
		Rate:   rate,
		Result: amount.Mul(rate).Round(2),
	}, nil
}

// GetRate returns the cached rate for the pair or fetches it.
func (c *Converter) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := from + ":" + to

	c.mu.RLock()
	cached, ok := c.rates[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(cached.fetchedAt) < c.RateTTL {
		return cached.rate, nil
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.rates[key] = cachedRate{rate: rate, fetchedAt: c.now()}
	c.mu.Unlock()

	return rate, nil
}

// fetchRate asks the API to convert one unit so the result is the rate.
func (c *Converter) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if !c.Configured() {
		return decimal.Zero, fmt.Errorf("currency API URL is not configured")
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building currency request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency request %s->%s: %w", from, to, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("currency request %s->%s: unexpected status %d", from, to, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decoding currency response for %s->%s: %w", from, to, err)
	}

	if !body.Success {
		return decimal.Zero, fmt.Errorf("currency API error for %s->%s: %s", from, to, string(body.Error))
	}

	rate := body.Info.Rate
	if !rate.IsPositive() {
		rate = body.Result
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid rate for %s->%s: %s", from, to, rate)
	}
	return rate, nil
}
