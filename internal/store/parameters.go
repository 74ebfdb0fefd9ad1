package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumashape/insert-pricing/internal/pricing"
)

// ParametersStore keeps the current default pricing parameters in a singleton row.
type ParametersStore struct {
	db *sql.DB
}

// NewParametersStore returns a parameters repository backed by db.
func NewParametersStore(db *sql.DB) *ParametersStore {
	return &ParametersStore{db: db}
}

// Get returns the stored parameters, or ErrNotFound before the first Save or seed.
func (s *ParametersStore) Get(ctx context.Context) (pricing.Parameters, error) {
	var p pricing.Parameters
	err := s.db.QueryRowContext(ctx, `
		SELECT
			material_cost_per_in3,
			engraving_flat_fee,
			design_time_flat_fee,
			machine_time_flat_fee,
			consumables_flat_fee,
			shipping_flat_fee,
			waste_factor,
			packaging_cost_per_order,
			kaiser_margin_pct,
			lumashape_margin_pct
		FROM pricing_parameters
		WHERE id = 1
	`).Scan(
		&p.MaterialCostPerIn3,
		&p.EngravingFlatFee,
		&p.DesignTimeFlatFee,
		&p.MachineTimeFlatFee,
		&p.ConsumablesFlatFee,
		&p.ShippingFlatFee,
		&p.WasteFactor,
		&p.PackagingCostPerOrder,
		&p.KaiserMarginPct,
		&p.LumashapeMarginPct,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Parameters{}, ErrNotFound
	}
	if err != nil {
		return pricing.Parameters{}, fmt.Errorf("query pricing_parameters: %w", err)
	}
	return p, nil
}

// Save replaces the stored parameters.
func (s *ParametersStore) Save(ctx context.Context, p pricing.Parameters) error {
	if _, err := UpsertParameters(ctx, s.db, p, true); err != nil {
		return err
	}
	return nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertParameters writes the singleton row. With overwrite false an existing row is
// left untouched and inserted reports false.
func UpsertParameters(ctx context.Context, db Execer, p pricing.Parameters, overwrite bool) (inserted bool, err error) {
	conflict := `DO NOTHING`
	if overwrite {
		conflict = `DO UPDATE SET
			material_cost_per_in3 = excluded.material_cost_per_in3,
			engraving_flat_fee = excluded.engraving_flat_fee,
			design_time_flat_fee = excluded.design_time_flat_fee,
			machine_time_flat_fee = excluded.machine_time_flat_fee,
			consumables_flat_fee = excluded.consumables_flat_fee,
			shipping_flat_fee = excluded.shipping_flat_fee,
			waste_factor = excluded.waste_factor,
			packaging_cost_per_order = excluded.packaging_cost_per_order,
			kaiser_margin_pct = excluded.kaiser_margin_pct,
			lumashape_margin_pct = excluded.lumashape_margin_pct,
			updated_at = CURRENT_TIMESTAMP`
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO pricing_parameters (
			id,
			material_cost_per_in3,
			engraving_flat_fee,
			design_time_flat_fee,
			machine_time_flat_fee,
			consumables_flat_fee,
			shipping_flat_fee,
			waste_factor,
			packaging_cost_per_order,
			kaiser_margin_pct,
			lumashape_margin_pct
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) `+conflict,
		p.MaterialCostPerIn3,
		p.EngravingFlatFee,
		p.DesignTimeFlatFee,
		p.MachineTimeFlatFee,
		p.ConsumablesFlatFee,
		p.ShippingFlatFee,
		p.WasteFactor,
		p.PackagingCostPerOrder,
		p.KaiserMarginPct,
		p.LumashapeMarginPct,
	)
	if err != nil {
		return false, fmt.Errorf("upsert pricing_parameters: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert pricing_parameters: %w", err)
	}
	return affected > 0, nil
}
