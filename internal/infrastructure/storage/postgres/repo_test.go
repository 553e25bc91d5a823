package postgres

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestDialect(t *testing.T) {
	d := Dialect("hf")
	if got := d.Table("positions"); got != `"hf"."positions"` {
		t.Errorf("unexpected table name %s", got)
	}
	if got := Dialect("").Table("orders"); got != `"orders"` {
		t.Errorf("unexpected table name %s", got)
	}
	if got := d.Placeholder(3); got != "$3" {
		t.Errorf("unexpected placeholder %s", got)
	}
}

// Runs against a real database when CAPSNAP_TEST_PG_DSN is set.
func TestPostgresLatestWatermark(t *testing.T) {
	dsn := os.Getenv("CAPSNAP_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CAPSNAP_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := New(ctx, dsn, os.Getenv("CAPSNAP_TEST_PG_SCHEMA"))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer repo.Close()

	if _, err := repo.LatestWatermark(ctx); err != nil {
		t.Fatalf("LatestWatermark failed: %v", err)
	}
}
