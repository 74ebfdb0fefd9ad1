package seed

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/db"
	"github.com/lumashape/insert-pricing/internal/migrations"
	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, zap.NewNop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	params := pricing.DefaultParameters()
	params.MaterialCostPerIn3 = 0.05

	for i := 0; i < 10; i++ {
		cfg := Config{Parameters: params}
		if i > 0 {
			// Later runs must not clobber what the first run stored.
			cfg.Parameters.MaterialCostPerIn3 = float64(i)
		}

		stats, err := Run(ctx, database, cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 1 {
				t.Fatalf("expected 1 insert in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	got, err := store.NewParametersStore(database).Get(ctx)
	if err != nil {
		t.Fatalf("read seeded parameters: %v", err)
	}
	if got != params {
		t.Fatalf("seeded parameters = %+v, want %+v", got, params)
	}
}
