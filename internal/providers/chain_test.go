package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricevault/pkg/domain"
)

// scriptedFetcher is a stub provider with a fixed verdict.
type scriptedFetcher struct {
	name     string
	supports bool
	table    domain.PriceTable
	err      error

	calls *[]string
}

func (f *scriptedFetcher) Name() string { return f.name }

func (f *scriptedFetcher) Supports(ticker, exchange string) bool { return f.supports }

func (f *scriptedFetcher) Fetch(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	*f.calls = append(*f.calls, f.name)
	return f.table, f.err
}

func oneRow(d string) domain.PriceTable {
	day, err := time.Parse("2006-01-02", d)
	if err != nil {
		panic(err)
	}
	return domain.PriceTable{Rows: []domain.PriceRow{{Date: day, Close: 10, Ticker: "ACME", Source: "stub"}}}
}

func TestChain_FallsThroughInPriorityOrder(t *testing.T) {
	var calls []string
	var slept []time.Duration

	chain := NewChain(nil,
		&scriptedFetcher{name: "p1", supports: true, err: errors.New("boom"), calls: &calls},
		&scriptedFetcher{name: "p2", supports: true, err: &RateLimitError{Provider: "p2", RetryAfter: 5 * time.Second}, calls: &calls},
		&scriptedFetcher{name: "p3", supports: true, table: oneRow("2024-01-05"), calls: &calls},
		&scriptedFetcher{name: "p4", supports: true, table: oneRow("2024-01-08"), calls: &calls},
	)
	chain.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }

	got, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3"}, calls, "p4 must not be called after a non-empty success")
	assert.Equal(t, []time.Duration{5 * time.Second}, slept, "only the rate-limited provider incurs a backoff")
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "stub", got.First().Source)
}

func TestChain_RateLimitWithoutHintUsesDefaultDelay(t *testing.T) {
	var calls []string
	var slept []time.Duration

	chain := NewChain(nil,
		&scriptedFetcher{name: "p1", supports: true, err: &RateLimitError{Provider: "p1"}, calls: &calls},
		&scriptedFetcher{name: "p2", supports: true, table: oneRow("2024-01-05"), calls: &calls},
	)
	chain.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }

	_, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultRateLimitDelay}, slept)
}

func TestChain_ExcessiveDelayIsCapped(t *testing.T) {
	var calls []string
	var slept []time.Duration

	chain := NewChain(nil,
		&scriptedFetcher{name: "p1", supports: true, err: &RateLimitError{Provider: "p1", RetryAfter: 12 * time.Hour}, calls: &calls},
	)
	chain.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }

	_, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	require.Len(t, slept, 1)
	assert.Equal(t, maxRateLimitDelay, slept[0])
}

func TestChain_SkipsUnsupportedProviders(t *testing.T) {
	var calls []string

	chain := NewChain(nil,
		&scriptedFetcher{name: "disabled", supports: false, table: oneRow("2024-01-05"), calls: &calls},
		&scriptedFetcher{name: "active", supports: true, table: oneRow("2024-01-08"), calls: &calls},
	)

	got, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, calls)
	assert.Equal(t, 1, got.Len())
}

func TestChain_EmptySuccessIsNotAuthoritative(t *testing.T) {
	var calls []string

	chain := NewChain(nil,
		&scriptedFetcher{name: "sparse", supports: true, calls: &calls},
		&scriptedFetcher{name: "deep", supports: true, table: oneRow("2024-01-05"), calls: &calls},
	)

	got, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"sparse", "deep"}, calls)
	assert.Equal(t, 1, got.Len())
}

func TestChain_ExhaustionYieldsEmptyTableNotError(t *testing.T) {
	var calls []string

	chain := NewChain(nil,
		&scriptedFetcher{name: "p1", supports: true, err: errors.New("down"), calls: &calls},
		&scriptedFetcher{name: "p2", supports: true, calls: &calls},
	)

	got, err := chain.FetchBest(context.Background(), "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Equal(t, []string{"p1", "p2"}, calls)
}

func TestChain_CancelledContextStopsTheWalk(t *testing.T) {
	var calls []string

	chain := NewChain(nil,
		&scriptedFetcher{name: "p1", supports: true, table: oneRow("2024-01-05"), calls: &calls},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.FetchBest(ctx, "ACME", "NYSE", time.Now().AddDate(0, 0, -5), time.Now())
	assert.Error(t, err)
	assert.Empty(t, calls)
}
