package serverapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-preload/internal/config"
	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/sqlutil"
)

func TestHealthHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	healthHandler(db, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, rec.Body.String())

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	healthHandler(db, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"failed"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("not yet"))
	mock.ExpectPing()

	cfg := &config.Config{Database: config.DatabaseConfig{
		ConnectionTimeout:       time.Second,
		ConnectionRetryInterval: time.Millisecond,
	}}
	require.NoError(t, waitForDatabase(context.Background(), cfg, testLogger(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_GivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))

	cfg := &config.Config{Database: config.DatabaseConfig{}}
	err = waitForDatabase(context.Background(), cfg, testLogger(), db)
	assert.ErrorContains(t, err, "down")

	cfg.Database.ConnectionTimeout = 5 * time.Millisecond
	cfg.Database.ConnectionRetryInterval = time.Millisecond
	err = waitForDatabase(context.Background(), cfg, testLogger(), db)
	assert.ErrorContains(t, err, "database not available")
}

func TestWaitForDatabase_ContextCancelled(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{Database: config.DatabaseConfig{
		ConnectionTimeout:       time.Minute,
		ConnectionRetryInterval: time.Minute,
	}}
	assert.Error(t, waitForDatabase(ctx, cfg, testLogger(), db))
}

func TestBuildQueryExecutor(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{}
	assert.IsType(t, &dbexec.StandardExecutor{}, buildQueryExecutor(cfg, testLogger(), db))

	cfg.Database.LogQueries = true
	assert.IsType(t, &dbexec.LoggingExecutor{}, buildQueryExecutor(cfg, testLogger(), db))
}

func TestBuildRouter(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	graphqlHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux := buildRouter(&config.Config{}, testLogger(), db, graphqlHandler, nil)

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusFound},
		{"/graphql", http.StatusTeapot},
		{"/metrics", http.StatusNotFound},
		{"/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, rec.Code, tt.path)
	}
}

func TestDBSystemAttribute(t *testing.T) {
	assert.Equal(t, "mysql", dbSystemAttribute(sqlutil.MySQL).Value.AsString())
	assert.Equal(t, "postgresql", dbSystemAttribute(sqlutil.Postgres).Value.AsString())
	assert.Equal(t, "sqlite", dbSystemAttribute(sqlutil.SQLite).Value.AsString())
}
