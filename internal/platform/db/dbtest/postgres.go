// Package dbtest starts throwaway postgres containers for adapter tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"summit/internal/platform/db"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// StartPostgres runs a postgres container for the lifetime of t and returns
// a connected handle. The test is skipped under -short or when no container
// runtime is reachable.
func StartPostgres(t *testing.T) *db.Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("summit"),
		postgres.WithUsername("summit"),
		postgres.WithPassword("summit"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	pg, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = pg.Close()
	})
	return pg
}
