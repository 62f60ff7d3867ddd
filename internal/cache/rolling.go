package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"pricevault/internal/metrics"
	"pricevault/internal/validation"
	"pricevault/pkg/domain"
)

// Orchestrator obtains the best available price table for a request,
// typically by falling through a provider chain. An empty table with a nil
// error means every source was exhausted.
type Orchestrator interface {
	FetchBest(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error)
}

// RollingCache serves daily price history from per-symbol CSV files,
// extending them incrementally as the trading calendar advances. Provider
// trouble is absorbed into serving the best cached slice available; the
// only errors it raises are unrecoverable local I/O failures.
type RollingCache struct {
	store   *Store
	chain   Orchestrator
	offline bool
	logger  *slog.Logger
	tracer  trace.Tracer

	// failures counts failed or empty refreshes across all symbols for
	// the life of the process. Upstream callers read it to decide whether
	// to keep attempting refreshes within a run.
	failures atomic.Int64

	// group serializes concurrent refreshes of the same symbol so two
	// goroutines cannot interleave a merge-and-save on one file.
	group singleflight.Group
}

// NewRollingCache creates a cache over the given store and orchestrator.
// With offline set, no network access is attempted and every request is
// answered from disk.
func NewRollingCache(store *Store, chain Orchestrator, offline bool, logger *slog.Logger) *RollingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RollingCache{
		store:   store,
		chain:   chain,
		offline: offline,
		logger:  logger,
		tracer:  otel.Tracer("pricevault/cache"),
	}
}

// FailureCount returns the number of failed or empty refresh attempts
// since process start.
func (c *RollingCache) FailureCount() int64 {
	return c.failures.Load()
}

// Get returns up to requestedDays trading days of history ending
// yesterday, trading-day adjusted. The returned slice may be shorter than
// requested when providers are unavailable; callers must treat an empty
// table as "no data", not as an error.
func (c *RollingCache) Get(ctx context.Context, ticker, exchange string, requestedDays int) (domain.PriceTable, error) {
	asOf := time.Now().UTC().AddDate(0, 0, -1)
	cutoff, windowEnd := WeekdayRange(asOf, requestedDays)
	return c.GetRange(ctx, ticker, exchange, cutoff, windowEnd)
}

// GetRange is Get for an explicit inclusive window. Both bounds are
// shifted off weekends before use.
func (c *RollingCache) GetRange(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	cutoff := nextWeekday(domain.Day(start))
	windowEnd := nextWeekday(domain.Day(end))

	ctx, span := c.tracer.Start(ctx, "cache.GetRange",
		trace.WithAttributes(
			attribute.String("ticker", ticker),
			attribute.String("exchange", exchange),
			attribute.String("cutoff", domain.DateKey(cutoff)),
			attribute.String("window_end", domain.DateKey(windowEnd)),
		))
	defer span.End()

	cached, err := c.store.Load(ticker, exchange)
	if err != nil {
		return domain.PriceTable{}, err
	}

	if c.offline {
		c.logger.Debug("offline mode, serving cache without refresh",
			slog.String("ticker", ticker), slog.String("exchange", exchange))
		return cached.Slice(cutoff, windowEnd), nil
	}

	if cached.Covers(cutoff, windowEnd) {
		metrics.CacheHits.Inc()
		return cached.Slice(cutoff, windowEnd), nil
	}

	merged, err, _ := c.group.Do(c.store.Path(ticker, exchange), func() (interface{}, error) {
		return c.refresh(ctx, ticker, exchange, cutoff, windowEnd)
	})
	if err != nil {
		return domain.PriceTable{}, err
	}
	return merged.(domain.PriceTable).Slice(cutoff, windowEnd), nil
}

// refresh fetches the window, merges it into the persisted file and
// returns the full merged table. A failed or empty fetch returns the
// existing table untouched; only local I/O failures surface as errors.
func (c *RollingCache) refresh(ctx context.Context, ticker, exchange string, cutoff, windowEnd time.Time) (domain.PriceTable, error) {
	cached, err := c.store.Load(ticker, exchange)
	if err != nil {
		return domain.PriceTable{}, err
	}

	fetched, err := c.chain.FetchBest(ctx, ticker, exchange, cutoff, windowEnd)
	if err == nil {
		fetched = validation.Normalize(fetched, ticker, "")
	}
	if err != nil || fetched.IsEmpty() {
		c.failures.Add(1)
		metrics.FetchFailures.Inc()
		attrs := []any{
			slog.String("ticker", ticker),
			slog.String("exchange", exchange),
			slog.Int("cached_rows", cached.Len()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		c.logger.Warn("refresh yielded no data, serving stale cache", attrs...)
		return cached, nil
	}

	merged := cached.Merge(fetched)
	if err := c.store.Save(ticker, exchange, merged); err != nil {
		return domain.PriceTable{}, err
	}

	c.logger.Info("cache refreshed",
		slog.String("ticker", ticker),
		slog.String("exchange", exchange),
		slog.Int("fetched_rows", fetched.Len()),
		slog.Int("total_rows", merged.Len()))
	return merged, nil
}
