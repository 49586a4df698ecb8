package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/brief"
	"github.com/sells-group/rapport-api/internal/cache"
	"github.com/sells-group/rapport-api/internal/config"
	"github.com/sells-group/rapport-api/internal/places"
	"github.com/sells-group/rapport-api/internal/snippets"
	"github.com/sells-group/rapport-api/internal/strategic"
	"github.com/sells-group/rapport-api/internal/synthesis"
	"github.com/sells-group/rapport-api/pkg/duckduckgo"
	"github.com/sells-group/rapport-api/pkg/nominatim"
	"github.com/sells-group/rapport-api/pkg/zippopotam"
)

// env bundles the wired pipeline and whatever needs closing on exit.
type env struct {
	Pipeline *brief.Pipeline
	closers  []func() error
}

func (e *env) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initPipeline builds the full request pipeline from configuration.
func initPipeline(ctx context.Context, cfg *config.Config) (*env, error) {
	e := &env{}

	store, err := openStore(ctx, cfg.Cache, e)
	if err != nil {
		return nil, err
	}
	responseCache := cache.New(store, time.Duration(cfg.Cache.TTLHours)*time.Hour)

	geo := zippopotam.NewClient(zippopotam.WithBaseURL(cfg.Geo.BaseURL))

	search := duckduckgo.NewClient(
		duckduckgo.WithBaseURL(cfg.Search.BaseURL),
		duckduckgo.WithContact(cfg.Search.Contact),
	)
	provider := snippets.NewSource(search,
		snippets.WithRateLimit(cfg.Search.RatePerSec),
		snippets.WithTimeout(time.Duration(cfg.Search.TimeoutSecs)*time.Second),
	)

	geocoder := nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Places.BaseURL),
		nominatim.WithUserAgent(cfg.Places.UserAgent),
	)

	synth := synthesis.New(synthesis.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.Key,
		BaseURL:   cfg.LLM.BaseURL,
		Path:      cfg.LLM.Path,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	}, synthesis.WithTimeout(time.Duration(cfg.LLM.TimeoutSecs)*time.Second))

	e.Pipeline = brief.New(
		geo,
		strategic.NewAggregator(provider),
		places.NewFetcher(geocoder),
		provider,
		synth,
		responseCache,
		brief.WithGeoTimeout(time.Duration(cfg.Geo.TimeoutSecs)*time.Second),
		brief.WithBranchTimeout(time.Duration(cfg.Brief.BranchTimeoutSecs)*time.Second),
	)
	return e, nil
}

// openStore selects the cache backend by driver name.
func openStore(ctx context.Context, cfg config.CacheConfig, e *env) (cache.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return cache.NewMemoryStore(), nil

	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, eris.New("cache: sqlite driver requires cache.sqlite_path")
		}
		store, err := cache.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, store.Close)
		return store, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("cache: postgres driver requires cache.database_url")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "cache: connect postgres")
		}
		e.closers = append(e.closers, func() error {
			pool.Close()
			return nil
		})
		store := cache.NewPostgresStore(pool)
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
