package serverapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/cenkalti/backoff/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"graphql-preload/internal/config"
	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/logging"
	"graphql-preload/internal/middleware"
	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
	"graphql-preload/internal/observability"
	"graphql-preload/internal/planner"
	"graphql-preload/internal/resolver"
	"graphql-preload/internal/schema"
	"graphql-preload/internal/sqlutil"
	"graphql-preload/internal/store"
)

// InitLogger builds the process logger. When log export is enabled the
// logger also feeds an OTLP logger provider, which the caller must shut down.
func InitLogger(ctx context.Context, cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:       cfg.Observability.Logging.Level,
		Format:      cfg.Observability.Logging.Format,
		ServiceName: cfg.Observability.ServiceName,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logsConfig := cfg.Observability.LogsConfig()
	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", logsConfig.Endpoint),
		slog.String("otlp_protocol", logsConfig.Protocol),
		slog.Bool("insecure", logsConfig.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(ctx, observabilityConfig(cfg, logsConfig))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)
	logger.Info("OpenTelemetry logging initialized")

	return logger, loggerProvider, nil
}

func observabilityConfig(cfg *config.Config, otlp config.OTLPConfig) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLPConfig: observability.OTLPExporterConfig{
			Endpoint:          otlp.Endpoint,
			Protocol:          otlp.Protocol,
			Insecure:          otlp.Insecure,
			TLSCertFile:       otlp.TLSCertFile,
			TLSClientCertFile: otlp.TLSClientCertFile,
			TLSClientKeyFile:  otlp.TLSClientKeyFile,
			Headers:           otlp.Headers,
			Timeout:           otlp.Timeout,
			Compression:       otlp.Compression,
			RetryEnabled:      otlp.RetryEnabled,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.ResolverMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("environment", cfg.Observability.Environment),
	)

	meterProvider, err := observability.InitMeterProvider(observabilityConfig(cfg, config.OTLPConfig{}))
	if err != nil {
		return nil, nil, err
	}

	resolverMetrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		return nil, nil, errors.Join(err, meterProvider.Shutdown(context.Background(), logger.Logger))
	}

	return meterProvider, resolverMetrics, nil
}

func initTracing(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracesConfig := cfg.Observability.TracesConfig()
	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", tracesConfig.Endpoint),
		slog.String("otlp_protocol", tracesConfig.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)

	tracerProvider, err := observability.InitTracerProvider(ctx, observabilityConfig(cfg, tracesConfig))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized")
	return tracerProvider, nil
}

func dbSystemAttribute(dialect sqlutil.Dialect) attribute.KeyValue {
	switch dialect.Driver {
	case sqlutil.Postgres.Driver:
		return semconv.DBSystemPostgreSQL
	case sqlutil.SQLite.Driver:
		return semconv.DBSystemKey.String("sqlite")
	default:
		return semconv.DBSystemMySQL
	}
}

func connectDB(cfg *config.Config, dialect sqlutil.Dialect, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	// Register custom TLS configuration if needed (for verify-ca/verify-full modes)
	if err := cfg.Database.RegisterTLS(); err != nil {
		return nil, nil, fmt.Errorf("failed to register database TLS config: %w", err)
	}

	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Observability.MetricsEnabled && !cfg.Observability.TracingEnabled {
		db, err := sql.Open(dialect.Driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, nil, nil
	}

	system := dbSystemAttribute(dialect)
	opts := []otelsql.Option{otelsql.WithAttributes(system)}
	if cfg.Observability.TracingEnabled {
		opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableErrSkip: true,
		}))
	}

	db, err := otelsql.Open(dialect.Driver, dsn, opts...)
	if err != nil {
		return nil, nil, err
	}

	var dbStatsReg interface{ Unregister() error }
	if cfg.Observability.MetricsEnabled {
		dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system))
		if err != nil {
			logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
		}
	}

	logger.Info("database instrumentation enabled",
		slog.Bool("metrics", cfg.Observability.MetricsEnabled),
		slog.Bool("tracing", cfg.Observability.TracingEnabled),
	)
	return db, dbStatsReg, nil
}

func configureDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)

	if err := waitForDatabase(ctx, cfg, logger, db); err != nil {
		return err
	}

	logger.Info("connected to database",
		slog.Int("pool_max_open", cfg.Database.Pool.MaxOpen),
		slog.Int("pool_max_idle", cfg.Database.Pool.MaxIdle),
		slog.Duration("pool_max_lifetime", cfg.Database.Pool.MaxLifetime),
	)
	return nil
}

// waitForDatabase pings until the database answers or the configured timeout
// elapses, backing off exponentially up to 30s between attempts. A zero
// timeout pings once.
func waitForDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	timeout := cfg.Database.ConnectionTimeout
	interval := cfg.Database.ConnectionRetryInterval

	if timeout == 0 {
		return db.PingContext(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxInterval = 30 * time.Second

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("database not ready, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("database not available after %v: %w", timeout, err)
	}
	if attempt > 1 {
		logger.Info("database connection established", slog.Int("attempts", attempt))
	}
	return nil
}

func buildQueryExecutor(cfg *config.Config, logger *logging.Logger, db *sql.DB) dbexec.QueryExecutor {
	var executor dbexec.QueryExecutor = dbexec.NewStandardExecutor(db)
	if cfg.Database.LogQueries {
		executor = dbexec.NewLoggingExecutor(executor, logger.With(slog.String("component", "sql")))
		logger.Info("SQL statement logging enabled")
	}
	return executor
}

func buildStore(cfg *config.Config, logger *logging.Logger, executor dbexec.QueryExecutor, registry *model.Registry, dialect sqlutil.Dialect) *store.Store {
	return store.New(executor, registry, dialect,
		store.WithLogger(logger.With(slog.String("component", "store"))),
		store.WithBatchSize(cfg.Preload.BatchSize),
	)
}

func buildSchema(cfg *config.Config, logger *logging.Logger, registry *model.Registry, data schema.DataAccess, metrics *observability.ResolverMetrics) (graphql.Schema, error) {
	resolverLogger := logger.With(slog.String("component", "resolver"))
	namer := naming.New(cfg.Naming, logger.Logger)
	includePlanner := planner.New(registry, namer, planner.WithLogger(resolverLogger))

	built, err := schema.Build(registry, data,
		schema.WithLogger(logger.Logger),
		schema.WithResolverOptions(
			resolver.WithLogger(resolverLogger),
			resolver.WithMetrics(metrics),
			resolver.WithPlanner(includePlanner),
		),
	)
	if err != nil {
		return graphql.Schema{}, err
	}

	exposed := 0
	for _, m := range registry.Models() {
		if m.IsRelational() {
			exposed++
		}
	}
	logger.Info("GraphQL schema built", slog.Int("models", exposed))
	return built, nil
}

func buildGraphQLHandler(cfg *config.Config, logger *logging.Logger, graphqlSchema *graphql.Schema) http.Handler {
	graphqlHandler := handler.New(&handler.Config{
		Schema:   graphqlSchema,
		Pretty:   true,
		GraphiQL: cfg.Server.GraphiQLEnabled,
	})
	if cfg.Server.GraphiQLEnabled {
		logger.Warn("GraphiQL enabled on /graphql")
	}
	return middleware.LoggingMiddleware(logger)(graphqlHandler)
}

func buildRouter(cfg *config.Config, logger *logging.Logger, db *sql.DB, graphqlHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", graphqlHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/graphql", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc("/health", healthHandler(db, cfg.Server.HealthCheckTimeout))

	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}

	return mux
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, h http.Handler) http.Handler {
	if !cfg.Observability.MetricsEnabled && !cfg.Observability.TracingEnabled {
		return h
	}
	logger.Info("HTTP instrumentation enabled")
	return otelhttp.NewHandler(h, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return httpRootSpanName(r)
		}),
	)
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}

	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}

	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", "/graphql", "/health", "/metrics":
		return rawPath
	default:
		return "/*"
	}
}

func buildServer(cfg *config.Config, h http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logAttrs := []any{
			slog.String("address", serverAddr),
			slog.String("graphql_endpoint", "/graphql"),
			slog.String("health_endpoint", "/health"),
			slog.Int("preload_batch_size", cfg.Preload.BatchSize),
			slog.String("log_level", cfg.Observability.Logging.Level),
		}
		if cfg.Observability.MetricsEnabled {
			logAttrs = append(logAttrs, slog.String("metrics_endpoint", "/metrics"))
		}
		logger.Info("server starting", logAttrs...)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}

// healthHandler returns an HTTP handler for health checks
func healthHandler(db *sql.DB, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := db.PingContext(ctx); err != nil {
			reqLogger.Error("health check failed",
				slog.String("error", err.Error()),
				slog.String("check", "database"),
			)
			w.WriteHeader(http.StatusServiceUnavailable)
			// Generic body; the cause is only logged.
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","database":"failed"}`)
			return
		}

		reqLogger.Debug("health check passed")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status":"healthy","database":"ok"}`)
	}
}
