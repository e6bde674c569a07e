package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricewatch/internal/fetch"
	"github.com/sells-group/pricewatch/internal/store"
	"github.com/sells-group/pricewatch/internal/tracker"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "pricewatch.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes the configured store and runs migrations.
// Callers should defer st.Close().
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newLoader() *fetch.Loader {
	return fetch.NewLoader(fetch.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RequestsPerSec: cfg.Fetch.RequestsPerSec,
		Retries:        cfg.Fetch.Retries,
	})
}

func newTracker(st store.Store, opts tracker.Options) *tracker.Tracker {
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = cfg.Track.MaxConcurrent
	}
	return tracker.New(st, newLoader(), opts)
}
