// Package app wires the price subsystem together from configuration.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"pricevault/internal/cache"
	"pricevault/internal/config"
	"pricevault/internal/importer"
	"pricevault/internal/infrastructure"
	"pricevault/internal/providers"
	"pricevault/internal/symbols"
)

// alphaCallInterval spaces vendor calls to stay inside the free-tier
// quota of five calls per minute.
const alphaCallInterval = 12 * time.Second

// App holds the assembled subsystem.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Cache    *cache.RollingCache
	Store    *cache.Store
	Filter   *symbols.Filter
	Importer *importer.Importer
}

// Build assembles the rolling cache, provider chain and importer from the
// given configuration.
func Build(cfg *config.Config) (*App, error) {
	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	directory := symbols.NewCSVDirectory(cfg.InstrumentsFile)
	filter := symbols.NewFilter(directory, cfg.AuditLog, logger)

	client := &http.Client{Timeout: cfg.FetchTimeout}

	chain := providers.NewChain(logger,
		&providers.ExchangeFeed{
			BaseURL:  cfg.Providers.Exchange.BaseURL,
			Enabled:  cfg.Providers.Exchange.Enabled,
			Exchange: cfg.HomeExchange,
			Client:   client,
			Logger:   logger,
		},
		&providers.StooqFeed{
			BaseURL: cfg.Providers.Stooq.BaseURL,
			Enabled: cfg.Providers.Stooq.Enabled,
			Client:  client,
			Logger:  logger,
		},
		&providers.AlphaFeed{
			BaseURL: cfg.Providers.Alpha.BaseURL,
			APIKey:  cfg.Providers.Alpha.APIKey,
			Enabled: cfg.Providers.Alpha.Enabled,
			Filter:  filter,
			Client:  client,
			Logger:  logger,
			Limiter: rate.NewLimiter(rate.Every(alphaCallInterval), 1),
		},
		&providers.ArchiveFeed{
			BaseURL: cfg.Providers.Archive.BaseURL,
			Enabled: cfg.Providers.Archive.Enabled,
			Client:  client,
			Logger:  logger,
		},
	)
	chain.SetRateLimitDelay(cfg.RateLimitDelay)

	store := cache.NewStore(cfg.CacheDir, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    cache.NewRollingCache(store, chain, cfg.Offline, logger),
		Store:    store,
		Filter:   filter,
		Importer: importer.New(store, cfg.HomeExchange, logger),
	}, nil
}
