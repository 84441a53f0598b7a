package schema

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func testPool(t *testing.T) (*pgxpool.Pool, context.Context) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool, ctx
}

// migrate retries while another test binary holds the migration lock.
func migrate(t *testing.T, ctx context.Context, pool *pgxpool.Pool) []string {
	t.Helper()
	for attempt := 0; ; attempt++ {
		applied, err := Migrate(ctx, pool)
		if errors.Is(err, ErrLocked) && attempt < 40 {
			time.Sleep(250 * time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		return applied
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, ctx := testPool(t)
	migrate(t, ctx, pool)

	if again := migrate(t, ctx, pool); len(again) != 0 {
		t.Errorf("second run applied %v, want nothing", again)
	}

	recorded, err := Applied(ctx, pool)
	if err != nil {
		t.Fatalf("Applied: %v", err)
	}
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(recorded) != len(ms) {
		t.Fatalf("recorded %d migrations, want %d", len(recorded), len(ms))
	}
	for i, m := range ms {
		if recorded[i] != m.Filename {
			t.Errorf("recorded[%d] = %s, want %s", i, recorded[i], m.Filename)
		}
	}
}

func TestMigrate_CreatesTables(t *testing.T) {
	pool, ctx := testPool(t)
	migrate(t, ctx, pool)

	for _, table := range []string{"inventory_items", "payments", "taxes", "audit_log", "audit_log_archive", "cart_items"} {
		var exists bool
		err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
		if err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s missing after migrate", table)
		}
	}
}
