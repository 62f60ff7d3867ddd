package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/guregu/null/v6"

	"pricevault/internal/validation"
	"pricevault/pkg/domain"
)

// ArchiveFeed fetches daily history from the financial-times-style market
// archive API. It sits last in the chain: slow, but deep history for
// instruments the free feeds do not cover, including ISIN-keyed funds.
type ArchiveFeed struct {
	BaseURL string
	Enabled bool
	Client  *http.Client
	Logger  *slog.Logger
}

type archiveHistoryResponse struct {
	Symbol string `json:"symbol"`
	Items  []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume *int64  `json:"volume"`
	} `json:"items"`
}

func (f *ArchiveFeed) Name() string { return "archive" }

// Supports accepts ISIN identifiers too; the archive resolves both.
func (f *ArchiveFeed) Supports(ticker, exchange string) bool {
	return f.Enabled
}

func (f *ArchiveFeed) Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	endpoint := fmt.Sprintf("%s/data/equities/%s/prices", f.BaseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("archive feed: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("from", domain.DateKey(start))
	q.Set("to", domain.DateKey(end))
	if exchange != "" {
		q.Set("exchange", exchange)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := f.client().Do(req)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("archive feed: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return domain.PriceTable{}, &RateLimitError{
			Provider:   f.Name(),
			RetryAfter: retryAfterFromHeader(resp.Header),
			Message:    "HTTP 429 from archive feed",
		}
	case http.StatusNotFound:
		// Unknown symbol: absence of data, not a failure.
		f.logger().Debug("archive feed has no such symbol", slog.String("ticker", ticker))
		return domain.PriceTable{}, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PriceTable{}, fmt.Errorf("archive feed: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload archiveHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PriceTable{}, fmt.Errorf("archive feed: decode response: %w", err)
	}

	table := domain.PriceTable{}
	for _, item := range payload.Items {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			continue
		}
		row := domain.PriceRow{
			Date:   domain.Day(date),
			Open:   item.Open,
			High:   item.High,
			Low:    item.Low,
			Close:  item.Close,
			Ticker: ticker,
			Source: f.Name(),
		}
		if item.Volume != nil {
			row.Volume = null.IntFrom(*item.Volume)
		}
		table.Rows = append(table.Rows, row)
	}
	return validation.Normalize(table, ticker, f.Name()).Slice(start, end), nil
}

func (f *ArchiveFeed) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 45 * time.Second}
}

func (f *ArchiveFeed) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
