// Package testutil provides shared test infrastructure for integration tests.
// It uses testcontainers-go to start a real PostgreSQL instance, run the
// embedded migrations, and hand out a connection pool.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gcsfiles/service/internal/db"
)

// TestDB holds a PostgreSQL test container and connection pool.
type TestDB struct {
	Pool      *pgxpool.Pool
	container testcontainers.Container
}

var (
	shared    *TestDB
	sharedErr error
	setupOnce sync.Once
)

// SetupTestDB starts a PostgreSQL container, runs all migrations, and
// returns a TestDB with an active connection pool.
func SetupTestDB() (*TestDB, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gcsfiles_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	if err := db.Migrate(connStr); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := db.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{Pool: pool, container: container}, nil
}

// Shared returns one TestDB per test binary. The test is skipped in -short
// mode or when no container runtime is available.
func Shared(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	setupOnce.Do(func() {
		shared, sharedErr = SetupTestDB()
	})
	if sharedErr != nil {
		t.Skipf("postgres unavailable: %v", sharedErr)
	}
	return shared
}

// Close terminates the container and closes the pool.
func (tdb *TestDB) Close() {
	if tdb.Pool != nil {
		tdb.Pool.Close()
	}
	if tdb.container != nil {
		_ = tdb.container.Terminate(context.Background())
	}
}

// Truncate removes all rows from application tables.
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	if _, err := tdb.Pool.Exec(context.Background(), `DELETE FROM files`); err != nil {
		t.Fatalf("truncate files: %v", err)
	}
}
