// Package runtime wires configuration, storage, services and the HTTP
// server into a runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/harshpreetweb3/insurance-dao/internal/app"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/httpapi"
	"github.com/harshpreetweb3/insurance-dao/internal/app/metrics"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage/postgres"
	"github.com/harshpreetweb3/insurance-dao/internal/config"
	"github.com/harshpreetweb3/insurance-dao/internal/middleware"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	hub        *events.Hub
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs a runnable application from the environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	stores, db, err := buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	hub := events.NewHub(log.WithField("component", "events"))
	sink := events.Multi{events.NewLog(log), hub}

	application, err := app.New(stores, app.Options{Events: sink}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("build application: %w", err)
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		hub:        hub,
		httpServer: buildServer(cfg, application, hub, log),
		db:         db,
	}, nil
}

func buildStores(cfg *config.Config) (app.Stores, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		// Zero-value stores default to the in-memory implementation.
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	store := postgres.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return app.Stores{
		Organizations: store,
		Proposals:     store,
		Annuities:     store,
		Ledger:        store,
	}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func buildServer(cfg *config.Config, application *app.Application, hub *events.Hub, log *logger.Logger) *http.Server {
	api := httpapi.NewHandler(application)

	var handler http.Handler = api
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
			log.WithField("component", "ratelimit"))
		rl.StartCleanup(10 * time.Minute)
		handler = rl.Handler(handler)
	}
	auth := middleware.NewAuthenticator([]byte(cfg.Auth.Secret), []string{"/health", "/metrics"},
		cfg.Auth.Disabled, log.WithField("component", "auth"))
	handler = auth.Handler(handler)
	handler = middleware.NewCORS(cfg.AllowedOrigins).Handler(handler)
	handler = middleware.RequestID(handler)
	handler = metrics.InstrumentHandler(handler)

	root := http.NewServeMux()
	root.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	}))
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/events", hub)
	root.Handle("/", handler)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}
}

// Run starts the services and the HTTP server and blocks until the context
// is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, the services and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}
