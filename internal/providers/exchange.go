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

// ExchangeFeed fetches daily history from the exchange's own data API.
// It is the primary provider: authoritative for its home exchange but
// frequently slow or unavailable.
type ExchangeFeed struct {
	BaseURL  string
	Enabled  bool
	Exchange string // home exchange code; empty serves every exchange
	Client   *http.Client
	Logger   *slog.Logger
}

type exchangeHistoryResponse struct {
	Ticker string `json:"ticker"`
	Rows   []struct {
		Date   string   `json:"date"`
		Open   float64  `json:"open"`
		High   float64  `json:"high"`
		Low    float64  `json:"low"`
		Close  float64  `json:"close"`
		Volume null.Int `json:"volume"`
	} `json:"rows"`
}

func (f *ExchangeFeed) Name() string { return "exchange" }

func (f *ExchangeFeed) Supports(ticker, exchange string) bool {
	if !f.Enabled || looksLikeISIN(ticker) {
		return false
	}
	return f.Exchange == "" || f.Exchange == exchange
}

func (f *ExchangeFeed) Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	endpoint := fmt.Sprintf("%s/api/v1/equities/%s/history", f.BaseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("exchange feed: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("from", domain.DateKey(start))
	q.Set("to", domain.DateKey(end))
	req.URL.RawQuery = q.Encode()

	resp, err := f.client().Do(req)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("exchange feed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.PriceTable{}, &RateLimitError{
			Provider:   f.Name(),
			RetryAfter: retryAfterFromHeader(resp.Header),
			Message:    "HTTP 429 from exchange feed",
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PriceTable{}, fmt.Errorf("exchange feed: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload exchangeHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PriceTable{}, fmt.Errorf("exchange feed: decode response: %w", err)
	}

	table := domain.PriceTable{}
	for _, row := range payload.Rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			f.logger().Debug("exchange feed: skipping row with bad date",
				slog.String("ticker", ticker), slog.String("date", row.Date))
			continue
		}
		table.Rows = append(table.Rows, domain.PriceRow{
			Date:   domain.Day(date),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
			Ticker: ticker,
			Source: f.Name(),
		})
	}
	return validation.Normalize(table, ticker, f.Name()).Slice(start, end), nil
}

func (f *ExchangeFeed) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (f *ExchangeFeed) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
