package providers

import (
	"context"
	"regexp"
	"time"

	"pricevault/pkg/domain"
)

// Fetcher is one upstream source of daily price history. Implementations
// return whatever subset of [start, end] they can; an empty table is a
// legitimate answer for symbols outside the provider's coverage and is not
// an error.
type Fetcher interface {
	// Name identifies the provider in logs and in the Source column of
	// returned rows.
	Name() string

	// Supports reports whether the provider can be attempted for the pair
	// at all (enabled, identifier style handled, exchange covered). A
	// false verdict makes the fallback chain skip the provider silently.
	Supports(ticker, exchange string) bool

	// Fetch returns daily rows for the pair within [start, end] inclusive.
	// Failures are ordinary errors, except rate limiting which is reported
	// as *RateLimitError so the caller can back off.
	Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error)
}

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// looksLikeISIN reports whether the identifier is an ISIN rather than a
// plain ticker. Free feeds keyed by ticker cannot resolve ISINs.
func looksLikeISIN(identifier string) bool {
	return len(identifier) == 12 && isinPattern.MatchString(identifier)
}
