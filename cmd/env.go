package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/leaves"
	"github.com/mapalei/fiscal-cli/internal/monitor"
	"github.com/mapalei/fiscal-cli/internal/pipeline"
	"github.com/mapalei/fiscal-cli/internal/store"
	"github.com/mapalei/fiscal-cli/internal/taxonomy"
	"github.com/mapalei/fiscal-cli/pkg/classificaai"
)

// appEnv bundles the wired subsystems commands run against.
type appEnv struct {
	Store        store.Store
	Leaves       *leaves.Service
	Pipeline     *pipeline.Pipeline
	Monitor      *monitor.Monitor
	Taxonomy     *taxonomy.Source
	ClassificaAI classificaai.Client

	taxonomyPool *pgxpool.Pool
}

func (e *appEnv) Close() {
	if e.taxonomyPool != nil {
		e.taxonomyPool.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore builds the configured persistence backend. Driver "none"
// selects degraded mode: the pipeline still validates and decides, but
// nothing persists.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store driver postgres requires MAPALEI_STORE_DATABASE_URL")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "none":
		zap.L().Warn("no store configured, running in degraded mode")
		return store.NewNoop(), nil
	default:
		return nil, eris.Errorf("unknown store driver: %q", cfg.Store.Driver)
	}
}

// initEnv wires the full application environment.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{
		Store:    st,
		Leaves:   leaves.NewService(st),
		Pipeline: pipeline.New(st),
		Monitor:  monitor.New(st, cfg.Monitor.RequestsPerSecond),
	}

	// Taxonomy access is optional; without it, leaves are created by
	// hand through the API.
	if cfg.Taxonomy.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Taxonomy.DatabaseURL)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "connect taxonomy database")
		}
		env.taxonomyPool = pool
		env.Taxonomy = taxonomy.NewSource(pool)
		zap.L().Info("taxonomy source enabled")
	} else {
		zap.L().Debug("MAPALEI_TAXONOMY_DATABASE_URL not set, taxonomy source disabled")
	}

	if cfg.ClassificaAI.Key != "" {
		env.ClassificaAI = classificaai.NewClient(
			cfg.ClassificaAI.Key,
			cfg.ClassificaAI.BaseURL,
			classificaai.WithRateLimit(cfg.ClassificaAI.RequestsPerSecond),
		)
		zap.L().Info("classificaai client enabled")
	}

	return env, nil
}
