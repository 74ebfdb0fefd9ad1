package pricing

import (
	"fmt"
	"math"
)

// Parameters is the cost, fee and margin configuration for one pricing call.
// The calculation functions never validate values; negative inputs propagate
// arithmetically. Callers accepting parameters from outside use Validate.
type Parameters struct {
	MaterialCostPerIn3 float64 `json:"materialCostPerIn3" yaml:"material_cost_per_in3"`
	EngravingFlatFee   float64 `json:"engravingFlatFee" yaml:"engraving_flat_fee"`
	DesignTimeFlatFee  float64 `json:"designTimeFlatFee" yaml:"design_time_flat_fee"`
	MachineTimeFlatFee float64 `json:"machineTimeFlatFee" yaml:"machine_time_flat_fee"`
	ConsumablesFlatFee float64 `json:"consumablesFlatFee" yaml:"consumables_flat_fee"`
	ShippingFlatFee    float64 `json:"shippingFlatFee" yaml:"shipping_flat_fee"`

	// WasteFactor and PackagingCostPerOrder are carried for the record only.
	WasteFactor           float64 `json:"wasteFactor" yaml:"waste_factor"`
	PackagingCostPerOrder float64 `json:"packagingCostPerOrder" yaml:"packaging_cost_per_order"`

	KaiserMarginPct    float64 `json:"kaiserMarginPct" yaml:"kaiser_margin_pct"`
	LumashapeMarginPct float64 `json:"lumashapeMarginPct" yaml:"lumashape_margin_pct"`
}

// DefaultParameters returns the canonical pricing constants.
func DefaultParameters() Parameters {
	return Parameters{
		MaterialCostPerIn3:    0.04,
		EngravingFlatFee:      2.00,
		DesignTimeFlatFee:     15.00,
		MachineTimeFlatFee:    16.00,
		ConsumablesFlatFee:    1.60,
		ShippingFlatFee:       7.50,
		WasteFactor:           0.10,
		PackagingCostPerOrder: 0,
		KaiserMarginPct:       0.55,
		LumashapeMarginPct:    0.25,
	}
}

// Validate reports the first field that is negative or not a finite number. The
// calculation functions never call it; it is for callers accepting parameters from
// outside.
func (p Parameters) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"material_cost_per_in3", p.MaterialCostPerIn3},
		{"waste_factor", p.WasteFactor},
		{"engraving_flat_fee", p.EngravingFlatFee},
		{"design_time_flat_fee", p.DesignTimeFlatFee},
		{"machine_time_flat_fee", p.MachineTimeFlatFee},
		{"consumables_flat_fee", p.ConsumablesFlatFee},
		{"shipping_flat_fee", p.ShippingFlatFee},
		{"packaging_cost_per_order", p.PackagingCostPerOrder},
		{"kaiser_margin_pct", p.KaiserMarginPct},
		{"lumashape_margin_pct", p.LumashapeMarginPct},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s must be a non-negative number", f.name)
		}
	}
	return nil
}
