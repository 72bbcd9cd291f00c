package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"catalog-sync/internal/config"
	"catalog-sync/internal/connectivity"
	"catalog-sync/internal/database"
	"catalog-sync/internal/handler"
	"catalog-sync/internal/localstore"
	"catalog-sync/internal/reconcile"
	"catalog-sync/internal/remote"
	"catalog-sync/internal/repository"
	"catalog-sync/internal/router"
	"catalog-sync/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the catalogue schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.AfterConnect = database.RegisterTypes

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	for _, table := range []string{"products", "categories"} {
		if _, err := pool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// StartServer runs the catalogue API over pool and returns its base URL.
func StartServer(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	logger := zerolog.Nop()
	categories := service.NewCategoryService(repository.NewCategoryRepository(pool, logger), logger)
	products := service.NewProductService(repository.NewProductRepository(pool, logger), logger)

	srv := httptest.NewServer(router.New(
		handler.NewCategoryHandler(categories, logger),
		handler.NewProductHandler(products, logger),
		testAPIKey,
		logger,
	))
	t.Cleanup(srv.Close)
	return srv.URL
}

// Client is one offline-first device. Its link to the server can be cut
// with SetOnline regardless of whether the server is reachable.
type Client struct {
	Engine  *reconcile.Engine
	Local   *localstore.Store
	Remote  *remote.Client
	Monitor *connectivity.Monitor

	online atomic.Bool
}

// SetOnline toggles the device link and re-probes.
func (c *Client) SetOnline(ctx context.Context, online bool) {
	c.online.Store(online)
	c.Monitor.Check(ctx)
}

// NewClient wires a device against baseURL with its own local store.
func NewClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()

	local, err := localstore.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"), logger)
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	rc := remote.New(config.RemoteConfig{BaseURL: baseURL, APIKey: testAPIKey, Timeout: 5 * time.Second}, logger)
	c := &Client{Local: local, Remote: rc}
	c.online.Store(true)

	health := connectivity.HTTPProbe(&http.Client{Timeout: time.Second}, baseURL+"/health")
	probe := func(ctx context.Context) error {
		if !c.online.Load() {
			return errors.New("link down")
		}
		return health(ctx)
	}
	c.Monitor = connectivity.NewMonitor(probe, time.Hour, time.Second, logger)
	c.Monitor.Check(ctx)
	c.Engine = reconcile.New(local, rc, c.Monitor, logger)
	return c
}
