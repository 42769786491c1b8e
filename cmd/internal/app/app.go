// Package app wires the rally server runtime: config, logging, HTTP routes,
// and the websocket gateway with its party, ballot, and presence services.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rally/cmd/internal/ballot"
	"rally/cmd/internal/gateway"
	"rally/cmd/internal/party"
	"rally/cmd/internal/presence"

	"github.com/jackc/pgx/v5/pgxpool"
)

// closer is a small app-level lifecycle abstraction so DB-backed resources
// can be released on shutdown.
type closer interface {
	Close(ctx context.Context) error
}

type nopCloser struct{}

func (nopCloser) Close(_ context.Context) error { return nil }

type poolCloser struct {
	pool *pgxpool.Pool
}

func (c poolCloser) Close(_ context.Context) error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// App owns the HTTP server wiring and the coordinator services.
type App struct {
	cfg Config
	log Logger

	resources closer

	dbPool    *pgxpool.Pool
	dbEnabled bool

	gw *gateway.Gateway
}

// New constructs a fully wired App from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	resources, dbPool, dbEnabled, prov, err := newPresence(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	parties, err := party.NewService(log, party.NewStore())
	if err != nil {
		return nil, err
	}

	votes, err := ballot.NewAggregator(log, ballot.WithWindow(cfg.VoteWindow))
	if err != nil {
		return nil, err
	}

	gw, err := gateway.NewGateway(log, gateway.NewHub(log), parties, votes, prov)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		resources: resources,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		gw:        gw,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.gw)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.resources.Close(shutdownCtx); err != nil {
		a.log.Error("resources.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newPresence decides between the Postgres-backed presence provider and the
// in-memory one. Without a database the gateway mirrors room membership into
// the in-memory provider itself.
func newPresence(ctx context.Context, cfg Config, log Logger) (closer, *pgxpool.Pool, bool, presence.Provider, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_presence")
		return nopCloser{}, nil, false, presence.NewMemory(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, err
	}

	prov, err := presence.NewPostgresProvider(pool) // default schema "rally"
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, err
	}

	log.Info("db.enabled.postgres_presence")
	return poolCloser{pool: pool}, pool, true, prov, nil
}
