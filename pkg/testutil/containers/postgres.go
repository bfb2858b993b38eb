//go:build integration

package containers

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the portal
// schema applied.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and runs the migrations found at
// migrationsDir (relative to the test's working directory).
func NewPostgresContainer(t *testing.T, migrationsDir string) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("regportal"),
		tcpostgres.WithUsername("regportal"),
		tcpostgres.WithPassword("regportal"),
		tcpostgres.BasicWaitStrategies(),
		tcpostgres.WithSQLDriver("postgres"),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}

	applyMigrations(t, db, migrationsDir)
	return &PostgresContainer{Container: container, DB: db}
}

func applyMigrations(t *testing.T, db *sql.DB, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read migrations dir: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", entry.Name(), err)
		}
		if _, err := db.Exec(string(raw)); err != nil {
			t.Fatalf("failed to apply migration %s: %v", entry.Name(), err)
		}
	}
}
