package seed

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
)

// Config contains the values required by startup seed.
type Config struct {
	Parameters pricing.Parameters
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way. Existing rows are never overwritten.
func Run(ctx context.Context, db *sql.DB, cfg Config, logger *zap.Logger) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureParameters(ctx, tx, cfg.Parameters, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	logger.Info("seed complete", zap.Int("inserts", stats.Inserts))
	return stats, nil
}

func ensureParameters(ctx context.Context, tx *sql.Tx, params pricing.Parameters, stats *Stats) error {
	inserted, err := store.UpsertParameters(ctx, tx, params, false)
	if err != nil {
		return fmt.Errorf("seed pricing parameters: %w", err)
	}
	if inserted {
		stats.Inserts++
	}
	return nil
}
