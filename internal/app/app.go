// Package app wires the canvasd server runtime: config, logging, HTTP
// routes, and the WebSocket gateway.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"canvasd/internal/gateway"
	"canvasd/internal/history"
	"canvasd/internal/metrics"
	"canvasd/internal/store"
)

// dbHandle is the app-level lifecycle wrapper for DB-backed resources, so
// they can be closed gracefully on shutdown.
type dbHandle struct {
	pool *pgxpool.Pool
}

func (h *dbHandle) Close(_ context.Context) error {
	if h.pool != nil {
		h.pool.Close()
	}
	return nil
}

// App is the canvasd server runtime: it owns HTTP server wiring and gateway
// dependencies.
type App struct {
	cfg Config
	log Logger

	db *dbHandle

	dbPool    *pgxpool.Pool
	dbEnabled bool

	hub     *gateway.Hub
	ws      *gateway.WSGateway
	metrics *metrics.Registry
	reg     *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	pool, dbEnabled, err := newDBPool(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	metricsReg := metrics.New(reg)

	hubOpts := []gateway.HubOption{
		gateway.WithSizeLimits(cfg.SessionBaseSizeLimit, cfg.SessionEmergencyExtra),
		gateway.WithInviteLimits(cfg.SessionMaxInvites, cfg.SessionMaxInviteUses),
	}
	if dbEnabled {
		hubOpts = append(hubOpts, gateway.WithBackendFactory(func(sessionID string) history.Backend {
			b, err := store.NewPostgresBackend(pool, sessionID)
			if err != nil {
				log.Error("store.postgres.backend.fail", "session_id", sessionID, "err", err)
				return store.NewMemoryBackend()
			}
			return b
		}))
	}
	hub := gateway.NewHub(log, hubOpts...)

	ws := gateway.NewWSGateway(log, hub, gateway.WithMetrics(metricsReg))

	var db *dbHandle
	if dbEnabled {
		db = &dbHandle{pool: pool}
	}

	return &App{
		cfg:       cfg,
		log:       log,
		db:        db,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		hub:       hub,
		ws:        ws,
		metrics:   metricsReg,
		reg:       reg,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.reg)

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

	if a.db != nil {
		if err := a.db.Close(shutdownCtx); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
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

// newDBPool decides between Postgres-backed persistence and in-memory dev
// mode, applying the schema idempotently when Postgres is enabled.
func newDBPool(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, false, err
	}

	if err := store.ApplySchema(ctx, pool, "canvasd"); err != nil {
		pool.Close()
		return nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return pool, true, nil
}
