package serverapp

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-preload/internal/config"
	"graphql-preload/internal/logging"
	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "error", Format: "text", Output: io.Discard})
}

func shopConfig(dbPath string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:   "sqlite3",
			Database: dbPath,
			Pool: config.PoolConfig{
				MaxOpen:     1,
				MaxIdle:     1,
				MaxLifetime: time.Minute,
			},
			ConnectionRetryInterval: 10 * time.Millisecond,
		},
		Server: config.ServerConfig{
			Port:               0,
			ReadTimeout:        time.Second,
			WriteTimeout:       time.Second,
			IdleTimeout:        time.Second,
			ShutdownTimeout:    time.Second,
			HealthCheckTimeout: time.Second,
		},
		Preload: config.PreloadConfig{BatchSize: 500},
		Observability: config.ObservabilityConfig{
			ServiceName: "graphql-preload",
			Environment: "test",
			Logging:     config.LoggingConfig{Level: "error", Format: "text"},
		},
		Naming: naming.DefaultConfig(),
		Models: []model.Config{
			{
				Name:  "Customer",
				Table: "customers",
				Columns: []model.ColumnConfig{
					{Name: "id", Type: "int"},
					{Name: "name", Type: "varchar"},
				},
				Relations: []model.RelationConfig{
					{Name: "orders", Kind: "has_many", Target: "Order"},
				},
			},
			{
				Name:  "Order",
				Table: "orders",
				Columns: []model.ColumnConfig{
					{Name: "id", Type: "int"},
					{Name: "total", Type: "decimal"},
					{Name: "customer_id", Type: "int"},
				},
			},
		},
	}
}

func seedShop(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL NOT NULL, customer_id INTEGER NOT NULL)`,
		`INSERT INTO customers (id, name) VALUES (1, 'Ada')`,
		`INSERT INTO orders (id, total, customer_id) VALUES (100, 9.5, 1), (101, 20, 1)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, testLogger())
	assert.Error(t, err)

	_, err = New(shopConfig("x.db"), nil)
	assert.Error(t, err)

	cfg := shopConfig("x.db")
	cfg.Database.Driver = "oracle"
	_, err = New(cfg, testLogger())
	assert.ErrorContains(t, err, "dialect")

	cfg = shopConfig("x.db")
	cfg.Models = append(cfg.Models, model.Config{Name: "Broken", Table: "broken", PrimaryKey: "missing"})
	_, err = New(cfg, testLogger())
	assert.ErrorContains(t, err, "model registry")
}

func TestInit_ServesPreloadedQuery(t *testing.T) {
	app, err := New(shopConfig(seedShop(t)), testLogger())
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	// Init is idempotent.
	require.NoError(t, app.Init(context.Background()))
	require.NoError(t, app.Ping(context.Background()))

	body, err := json.Marshal(map[string]any{
		"query": `{ customer(id: "1") { name orders { id total } } }`,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		Data struct {
			Customer struct {
				Name   string `json:"name"`
				Orders []struct {
					ID    string  `json:"id"`
					Total float64 `json:"total"`
				} `json:"orders"`
			} `json:"customer"`
		} `json:"data"`
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Errors)
	assert.Equal(t, "Ada", resp.Data.Customer.Name)
	require.Len(t, resp.Data.Customer.Orders, 2)
	assert.Equal(t, "100", resp.Data.Customer.Orders[0].ID)
	assert.Equal(t, 9.5, resp.Data.Customer.Orders[0].Total)

	health := httptest.NewRecorder()
	app.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, health.Body.String())
}

func TestInitFailure_DoesNotMarkInitialized(t *testing.T) {
	cfg := shopConfig(filepath.Join(t.TempDir(), "missing-dir", "shop.db"))

	app, err := New(cfg, testLogger())
	require.NoError(t, err)

	assert.Error(t, app.Init(context.Background()))

	app.stateMu.Lock()
	initialized := app.initialized
	app.stateMu.Unlock()
	assert.False(t, initialized, "app should not be marked initialized after failed Init")
	assert.Nil(t, app.Handler())
	assert.Error(t, app.Ping(context.Background()))
}

func TestWaitForStop_SignalWins(t *testing.T) {
	app := &App{logger: testLogger()}
	stop := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)

	stop <- syscall.SIGTERM

	reason, err := app.WaitForStop(stop, serverErrors)
	require.NoError(t, err)
	assert.Equal(t, StopSignal, reason)
}

func TestWaitForStop_ServerErrorWins(t *testing.T) {
	app := &App{logger: testLogger()}
	serverErrors := make(chan error, 1)
	serverErrors <- errors.New("boom")

	reason, err := app.WaitForStop(nil, serverErrors)
	require.Error(t, err)
	assert.Equal(t, StopServerError, reason)
	assert.ErrorContains(t, err, "boom")
}

func TestWaitForStop_NoChannels(t *testing.T) {
	app := &App{logger: testLogger()}
	_, err := app.WaitForStop(nil, nil)
	assert.Error(t, err)
}

func TestShutdown_IdempotentAndReverseOrder(t *testing.T) {
	app := &App{logger: testLogger()}
	var calls int32
	var order []string
	app.cleanup.push("first", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		order = append(order, "first")
		return nil
	})
	app.cleanup.push("second", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		order = append(order, "second")
		return errors.New("close failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := app.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "second: close failed")
	assert.NoError(t, app.Shutdown(ctx))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestStart_BeforeInit_Fails(t *testing.T) {
	app := &App{logger: testLogger()}
	_, err := app.Start()
	assert.Error(t, err)
}

func TestStartAndShutdown_HappyPath(t *testing.T) {
	app := &App{
		cfg:        shopConfig("unused.db"),
		logger:     testLogger(),
		serverAddr: "127.0.0.1:0",
		srv: &http.Server{
			Addr:    "127.0.0.1:0",
			Handler: http.NewServeMux(),
		},
		initialized: true,
	}
	app.cleanup.push("HTTP server", func(ctx context.Context) error {
		return app.srv.Shutdown(ctx)
	})

	first, err := app.Start()
	require.NoError(t, err)
	second, err := app.Start()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
}
