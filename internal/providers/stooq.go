package providers

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pricevault/internal/validation"
	"pricevault/pkg/domain"
)

// StooqFeed fetches daily history from the free stooq-style CSV download
// endpoint. Coverage is broad but spotty; the feed legitimately returns an
// empty body for valid symbols it does not track.
type StooqFeed struct {
	BaseURL string
	Enabled bool
	Client  *http.Client
	Logger  *slog.Logger
}

// Exchange suffixes understood by the CSV endpoint. US symbols are
// requested with a ".us" suffix, London with ".uk", and so on.
var stooqSuffixes = map[string]string{
	"NYSE":   ".us",
	"NASDAQ": ".us",
	"LSE":    ".uk",
	"XETRA":  ".de",
	"ASX":    ".au",
}

func (f *StooqFeed) Name() string { return "stooq" }

func (f *StooqFeed) Supports(ticker, exchange string) bool {
	return f.Enabled && !looksLikeISIN(ticker)
}

func (f *StooqFeed) Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	symbol := strings.ToLower(ticker) + stooqSuffixes[exchange]
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		f.BaseURL, symbol, start.Format("20060102"), end.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("stooq: build request: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("stooq: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.PriceTable{}, &RateLimitError{
			Provider:   f.Name(),
			RetryAfter: retryAfterFromHeader(resp.Header),
			Message:    "HTTP 429 from stooq",
		}
	}
	if resp.StatusCode != http.StatusOK {
		return domain.PriceTable{}, fmt.Errorf("stooq: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("stooq: parse csv: %w", err)
	}
	if len(records) < 2 {
		// Header only, or the feed's "No data" placeholder.
		f.logger().Debug("stooq returned no rows", slog.String("symbol", symbol))
		return domain.PriceTable{}, nil
	}

	raw := domain.RawTable{Columns: records[0], Records: records[1:]}
	table, err := validation.EnsureSchema(raw)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("stooq: %w", err)
	}
	return validation.Normalize(table, ticker, f.Name()).Slice(start, end), nil
}

func (f *StooqFeed) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (f *StooqFeed) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
