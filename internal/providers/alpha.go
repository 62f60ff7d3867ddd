package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"pricevault/internal/symbols"
	"pricevault/internal/validation"
	"pricevault/pkg/domain"
)

// priceDecimals is the rounding applied to vendor prices, which arrive
// with spurious precision ("153.08999999").
const priceDecimals = 4

// AlphaFeed fetches daily history from the rate-limited commercial vendor.
// The free tier allows a handful of calls per minute, so the feed guards
// every request behind the symbol validity filter and a client-side
// limiter to avoid burning quota on symbols that cannot resolve.
type AlphaFeed struct {
	BaseURL string
	APIKey  string
	Enabled bool
	Filter  *symbols.Filter
	Client  *http.Client
	Logger  *slog.Logger
	Limiter *rate.Limiter
}

// Vendor symbol suffixes per exchange. US exchanges use the bare ticker;
// unknown exchanges pass through unsuffixed.
var alphaSuffixes = map[string]string{
	"LSE":   ".LON",
	"XETRA": ".DE",
	"ASX":   ".AX",
}

type alphaDailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

func (f *AlphaFeed) Name() string { return "alphavantage" }

func (f *AlphaFeed) Supports(ticker, exchange string) bool {
	return f.Enabled && !looksLikeISIN(ticker)
}

func (f *AlphaFeed) Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	if !f.Enabled {
		return domain.PriceTable{}, nil
	}
	if f.Filter != nil && !f.Filter.IsValid(ticker, exchange) {
		f.Filter.RecordSkipped(ticker, exchange, "no instrument metadata")
		f.logger().Info("skipping vendor call for unknown symbol",
			slog.String("ticker", ticker), slog.String("exchange", exchange))
		return domain.PriceTable{}, nil
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return domain.PriceTable{}, fmt.Errorf("alphavantage: limiter wait: %w", err)
		}
	}

	symbol := ticker + alphaSuffixes[exchange]
	endpoint := fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY&symbol=%s&outputsize=full&apikey=%s",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(f.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("alphavantage: build request: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("alphavantage: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.PriceTable{}, &RateLimitError{
			Provider:   f.Name(),
			RetryAfter: retryAfterFromHeader(resp.Header),
			Message:    "HTTP 429 from vendor",
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PriceTable{}, fmt.Errorf("alphavantage: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Series      map[string]alphaDailyBar `json:"Time Series (Daily)"`
		Note        string                   `json:"Note"`
		Information string                   `json:"Information"`
		ErrMsg      string                   `json:"Error Message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PriceTable{}, fmt.Errorf("alphavantage: decode response: %w", err)
	}

	if len(payload.Series) == 0 {
		// The vendor reports throttling inside a 200 response, as an
		// informational message instead of the time-series key.
		message := payload.Note
		if message == "" {
			message = payload.Information
		}
		if message != "" && looksRateLimited(message) {
			delay, _ := ParseRetryDelay(message)
			return domain.PriceTable{}, &RateLimitError{Provider: f.Name(), RetryAfter: delay, Message: message}
		}
		if message == "" {
			message = payload.ErrMsg
		}
		return domain.PriceTable{}, fmt.Errorf("alphavantage: no time series for %s: %s", symbol, message)
	}

	table := domain.PriceTable{}
	for dateStr, bar := range payload.Series {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		table.Rows = append(table.Rows, domain.PriceRow{
			Date:   domain.Day(date),
			Open:   roundPrice(bar.Open),
			High:   roundPrice(bar.High),
			Low:    roundPrice(bar.Low),
			Close:  roundPrice(bar.Close),
			Volume: parseVendorVolume(bar.Volume),
			Ticker: ticker,
			Source: f.Name(),
		})
	}
	// The API returns full history regardless of the request, so clip to
	// the caller's window.
	return validation.Normalize(table, ticker, f.Name()).Slice(start, end), nil
}

func (f *AlphaFeed) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (f *AlphaFeed) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func roundPrice(value string) float64 {
	f := parseVendorFloat(value)
	factor := math.Pow10(priceDecimals)
	return math.Round(f*factor) / factor
}
