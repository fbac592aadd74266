package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backlogd/backlogd/internal/api"
	"github.com/backlogd/backlogd/internal/engine"
	"github.com/backlogd/backlogd/internal/health"
	_ "github.com/backlogd/backlogd/internal/infra/metrics" // Register Prometheus metrics
	"github.com/backlogd/backlogd/internal/infra/sqlite"
)

// Daemon is the core backlogd runtime. It wires the store, the engine,
// and the HTTP API together.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Engine *engine.Engine
	Server *api.Server
	Health *health.Checker
	cancel context.CancelFunc
}

// New creates and initializes a Daemon from the on-disk config.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	db, err := sqlite.Open(backlogdHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	staleAfter, err := cfg.StaleAfter()
	if err != nil {
		db.Close()
		return nil, err
	}
	granularity, err := cfg.Granularity()
	if err != nil {
		db.Close()
		return nil, err
	}

	eng := engine.New(db, engine.Config{
		StaleAfter:  staleAfter,
		Granularity: granularity,
	})

	srv := api.NewServer(eng, version)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(db)
	srv.SetHealth(checker)

	return &Daemon{
		Config: cfg,
		DB:     db,
		Engine: eng,
		Server: srv,
		Health: checker,
	}, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Integrity checker runs for the whole server lifetime.
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("backlogd serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
