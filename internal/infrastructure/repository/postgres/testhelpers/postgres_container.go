//go:build integration

package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer holds the container and connection pool shared by the
// repository integration tests.
type PostgresContainer struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
}

// SetupPostgresContainer starts a disposable Postgres instance and returns a
// connected pool. The container and pool are torn down via t.Cleanup.
func SetupPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("kiosk_oms_test"),
		postgres.WithUsername("kiosk"),
		postgres.WithPassword("kiosk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("failed to ping database: %v", err)
	}

	pc := &PostgresContainer{Container: container, Pool: pool}

	t.Cleanup(func() {
		pool.Close()

		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	return pc
}

// TestDB adapts a *pgxpool.Pool to db.DB for repository constructors under
// test, skipping the go-sdk bootstrap (DSN parsing, tracer, meter) that
// production wiring goes through.
type TestDB struct {
	pool *pgxpool.Pool
}

func NewTestDB(pool *pgxpool.Pool) *TestDB {
	return &TestDB{pool: pool}
}

func (t *TestDB) Init(_ context.Context) error {
	return nil
}

func (t *TestDB) GetConn() any {
	return t.pool
}

func (pc *PostgresContainer) DB() *TestDB {
	return NewTestDB(pc.Pool)
}
