// Package serverapp wires configuration, storage, schema, and HTTP serving
// into a runnable server with an ordered shutdown.
package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/graphql-go/graphql"

	"graphql-preload/internal/config"
	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/logging"
	"graphql-preload/internal/model"
	"graphql-preload/internal/observability"
	"graphql-preload/internal/sqlutil"
	"graphql-preload/internal/store"
)

// App owns runtime resources for the server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	registry *model.Registry
	dialect  sqlutil.Dialect

	meterProvider   *observability.MeterProvider
	resolverMetrics *observability.ResolverMetrics
	tracerProvider  *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	queryExecutor dbexec.QueryExecutor
	store         *store.Store
	schema        graphql.Schema

	graphqlHandler http.Handler
	mux            *http.ServeMux
	handler        http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper. The model registry is built here so
// that declaration errors surface before any connection is opened.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dialect, err := cfg.Database.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database dialect: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build model registry: %w", err)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		dialect:  dialect,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the root HTTP handler. It is nil until Init succeeds.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}

// Schema returns the generated GraphQL schema.
func (a *App) Schema() graphql.Schema {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.schema
}

// Registry returns the model registry.
func (a *App) Registry() *model.Registry {
	return a.registry
}

// Ping checks database connectivity.
func (a *App) Ping(ctx context.Context) error {
	a.stateMu.Lock()
	db := a.db
	a.stateMu.Unlock()
	if db == nil {
		return fmt.Errorf("app is not initialized")
	}
	return db.PingContext(ctx)
}
