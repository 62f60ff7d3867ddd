package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pricevault/internal/metrics"
	"pricevault/pkg/domain"
)

// DefaultRateLimitDelay is slept when a provider signals throttling without
// suggesting a delay.
const DefaultRateLimitDelay = 30 * time.Second

// maxRateLimitDelay caps provider-suggested delays so a hostile or broken
// message cannot stall a run for hours.
const maxRateLimitDelay = 5 * time.Minute

// Chain tries providers in fixed priority order and returns the first
// non-empty result. Providers are never called concurrently within one
// request; adding a provider means appending to the list.
type Chain struct {
	fetchers []Fetcher
	logger   *slog.Logger
	tracer   trace.Tracer

	// sleep is swapped out in tests to observe backoff behavior.
	sleep func(context.Context, time.Duration)

	rateLimitDelay time.Duration
}

// NewChain builds a chain over the given providers, in priority order.
func NewChain(logger *slog.Logger, fetchers ...Fetcher) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		fetchers:       fetchers,
		logger:         logger,
		tracer:         otel.Tracer("pricevault/providers"),
		sleep:          sleepCtx,
		rateLimitDelay: DefaultRateLimitDelay,
	}
}

// SetRateLimitDelay overrides the fallback backoff used when a throttled
// provider gives no retry hint.
func (c *Chain) SetRateLimitDelay(d time.Duration) {
	if d > 0 {
		c.rateLimitDelay = d
	}
}

// FetchBest walks the provider list for the request. Ordinary errors and
// empty results move on to the next provider; rate-limit errors additionally
// sleep for the suggested delay first. Exhausting every provider yields an
// empty table and a nil error: the rolling cache decides what that means.
func (c *Chain) FetchBest(ctx context.Context, ticker, exchange string, start, end time.Time) (domain.PriceTable, error) {
	ctx, span := c.tracer.Start(ctx, "providers.FetchBest",
		trace.WithAttributes(
			attribute.String("ticker", ticker),
			attribute.String("exchange", exchange),
		))
	defer span.End()

	logger := c.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("ticker", ticker),
		slog.String("exchange", exchange))

	for _, fetcher := range c.fetchers {
		if err := ctx.Err(); err != nil {
			return domain.PriceTable{}, err
		}
		if !fetcher.Supports(ticker, exchange) {
			logger.Debug("provider does not support symbol, skipping",
				slog.String("provider", fetcher.Name()))
			continue
		}

		table, err := fetcher.Fetch(ctx, ticker, exchange, start, end)
		if err != nil {
			metrics.ProviderErrors.WithLabelValues(fetcher.Name()).Inc()
			if rle, ok := AsRateLimit(err); ok {
				delay := rle.RetryAfter
				if delay <= 0 {
					delay = c.rateLimitDelay
				}
				if delay > maxRateLimitDelay {
					delay = maxRateLimitDelay
				}
				logger.Warn("provider rate limited, backing off before next provider",
					slog.String("provider", fetcher.Name()),
					slog.Duration("delay", delay),
					slog.String("message", rle.Message))
				c.sleep(ctx, delay)
				continue
			}
			logger.Warn("provider fetch failed, trying next",
				slog.String("provider", fetcher.Name()),
				slog.String("error", err.Error()))
			continue
		}

		if table.IsEmpty() {
			// Empty is not authoritative absence: some providers simply do
			// not cover the symbol.
			logger.Debug("provider returned no rows, trying next",
				slog.String("provider", fetcher.Name()))
			continue
		}

		logger.Info("provider returned rows",
			slog.String("provider", fetcher.Name()),
			slog.Int("rows", table.Len()))
		return table, nil
	}

	logger.Warn("all providers exhausted without data")
	return domain.PriceTable{}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
