package pricing

import (
	"math"

	"github.com/lumashape/insert-pricing/internal/units"
)

// LayoutDimensions is the physical size of one insert. Width and height are plane
// dimensions, thickness is material depth.
type LayoutDimensions struct {
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Thickness float64    `json:"thickness"`
	Unit      units.Unit `json:"unit"`
}

// Canvas is the layout canvas attached to a cart item.
type Canvas struct {
	LayoutDimensions
	MaterialColor string `json:"materialColor,omitempty"`
}

// Tool is one element placed on a layout. Only IsText matters for pricing.
type Tool struct {
	Name   string `json:"name,omitempty"`
	Brand  string `json:"brand,omitempty"`
	IsText bool   `json:"isText,omitempty"`
}

// LayoutData is the design payload of a cart item.
type LayoutData struct {
	Canvas *Canvas `json:"canvas,omitempty"`
	Tools  []Tool  `json:"tools,omitempty"`
}

// CartItem is one line item handed to the engine by the cart layer.
type CartItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Quantity   int         `json:"quantity"`
	LayoutData *LayoutData `json:"layoutData,omitempty"`
}

// ItemPricing is the per-line cost entry.
type ItemPricing struct {
	ID                        string  `json:"id"`
	Name                      string  `json:"name"`
	Qty                       int     `json:"qty"`
	UnitVolumeIn3             float64 `json:"unitVolumeIn3"`
	UnitMaterialCostWithWaste float64 `json:"unitMaterialCostWithWaste"`
	LineMaterialCostWithWaste float64 `json:"lineMaterialCostWithWaste"`
	HasTextEngraving          bool    `json:"hasTextEngraving"`
}

// Totals is the aggregated order breakdown. ShippingCost and PackagingCost are
// informational; shipping is already inside TotalCostBeforeMargins.
type Totals struct {
	MaterialVolumeIn3             float64 `json:"materialVolumeIn3"`
	MaterialCost                  float64 `json:"materialCost"`
	MaterialCostWithWaste         float64 `json:"materialCostWithWaste"`
	EngravingFee                  float64 `json:"engravingFee"`
	TotalLineItems                int     `json:"totalLineItems"`
	DesignTimeCost                float64 `json:"designTimeCost"`
	MachineTimeCost               float64 `json:"machineTimeCost"`
	ConsumablesCost               float64 `json:"consumablesCost"`
	ShippingCost                  float64 `json:"shippingCost"`
	PackagingCost                 float64 `json:"packagingCost"`
	TotalCostBeforeMargins        float64 `json:"totalCostBeforeMargins"`
	KaiserPayout                  float64 `json:"kaiserPayout"`
	LumashapePayout               float64 `json:"lumashapePayout"`
	CustomerSubtotal              float64 `json:"customerSubtotal"`
	DiscountPct                   float64 `json:"discountPct"`
	DiscountAmount                float64 `json:"discountAmount"`
	CustomerSubtotalAfterDiscount float64 `json:"customerSubtotalAfterDiscount"`
	CustomerTotal                 float64 `json:"customerTotal"`
}

// OrderPricing is the full result stored on an order. Parameters is the snapshot the
// totals were computed with, so they can be re-derived later.
type OrderPricing struct {
	Items      []ItemPricing `json:"items"`
	Totals     Totals        `json:"totals"`
	Parameters Parameters    `json:"parameters"`
}

// Round2 rounds half-up to cents.
func Round2(n float64) float64 {
	// The conversion keeps the product rounded to float64 on every platform.
	return roundHalfUp(float64(n*100)) / 100
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf. Comparing
// the fraction avoids the carry that x+0.5 picks up just below a half.
func roundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		f++
	}
	return f
}

// CalculateVolumeInCubicInches converts width and height strictly by unit and runs
// thickness through the magnitude heuristic.
func CalculateVolumeInCubicInches(dims LayoutDimensions) float64 {
	w := units.ToInches(dims.Width, dims.Unit)
	h := units.ToInches(dims.Height, dims.Unit)
	t := units.NormalizeThicknessToInches(dims.Thickness, dims.Unit)
	return w * h * t
}

// CalculateUnitMaterialCostWithWaste returns the material cost of one unit. WasteFactor
// is not applied. A nil params uses the defaults.
func CalculateUnitMaterialCostWithWaste(dims LayoutDimensions, params *Parameters) float64 {
	p := resolve(params)
	return Round2(CalculateVolumeInCubicInches(dims) * p.MaterialCostPerIn3)
}

// CalculateItemPricing prices a single cart line. Items without a canvas price as zero volume.
func CalculateItemPricing(item CartItem, params *Parameters) ItemPricing {
	p := resolve(params)

	dims := LayoutDimensions{Unit: units.Inches}
	if item.LayoutData != nil && item.LayoutData.Canvas != nil {
		dims = item.LayoutData.Canvas.LayoutDimensions
	}

	volume := CalculateVolumeInCubicInches(dims)
	unitCost := Round2(volume * p.MaterialCostPerIn3)

	return ItemPricing{
		ID:                        item.ID,
		Name:                      item.Name,
		Qty:                       item.Quantity,
		UnitVolumeIn3:             Round2(volume),
		UnitMaterialCostWithWaste: unitCost,
		LineMaterialCostWithWaste: Round2(unitCost * float64(item.Quantity)),
		HasTextEngraving:          hasText(item.LayoutData),
	}
}

// CalculateOrderPricing prices a cart. Every intermediate amount is rounded to cents as
// soon as it is computed; stored orders depend on those exact checkpoints.
func CalculateOrderPricing(items []CartItem, params *Parameters) OrderPricing {
	p := resolve(params)

	priced := make([]ItemPricing, 0, len(items))
	for _, item := range items {
		priced = append(priced, CalculateItemPricing(item, &p))
	}

	var volume, engraving float64
	var qty int
	for _, it := range priced {
		volume += float64(it.UnitVolumeIn3 * float64(it.Qty))
		if it.HasTextEngraving {
			engraving += p.EngravingFlatFee
		}
		qty += it.Qty
	}

	t := Totals{TotalLineItems: qty}
	t.MaterialVolumeIn3 = Round2(volume)
	t.MaterialCost = Round2(t.MaterialVolumeIn3 * p.MaterialCostPerIn3)
	t.MaterialCostWithWaste = t.MaterialCost
	t.EngravingFee = Round2(engraving)

	if len(priced) > 0 {
		n := float64(qty)
		t.DesignTimeCost = Round2(p.DesignTimeFlatFee * n)
		t.MachineTimeCost = Round2(p.MachineTimeFlatFee * n)
		t.ConsumablesCost = Round2(p.ConsumablesFlatFee * n)
		t.ShippingCost = Round2(p.ShippingFlatFee * n)
	}

	// PackagingCostPerOrder is intentionally not charged.
	t.PackagingCost = 0

	t.TotalCostBeforeMargins = Round2(t.MaterialCostWithWaste + t.EngravingFee +
		t.DesignTimeCost + t.MachineTimeCost + t.ConsumablesCost + t.ShippingCost)

	t.KaiserPayout = Round2(t.TotalCostBeforeMargins * (1 + p.KaiserMarginPct))
	t.LumashapePayout = Round2(t.KaiserPayout * p.LumashapeMarginPct)
	t.CustomerSubtotal = Round2(t.KaiserPayout + t.LumashapePayout)

	t.DiscountPct = DiscountRate(len(priced))
	t.DiscountAmount = Round2(t.CustomerSubtotal * t.DiscountPct)
	t.CustomerSubtotalAfterDiscount = Round2(t.CustomerSubtotal - t.DiscountAmount)
	t.CustomerTotal = t.CustomerSubtotalAfterDiscount

	return OrderPricing{Items: priced, Totals: t, Parameters: p}
}

// DiscountRate is the tiered discount keyed on the number of distinct line items,
// not on summed quantity.
func DiscountRate(lineItems int) float64 {
	switch {
	case lineItems >= 10:
		return 0.15
	case lineItems >= 5:
		return 0.10
	case lineItems >= 2:
		return 0.05
	}
	return 0
}

func hasText(layout *LayoutData) bool {
	if layout == nil {
		return false
	}
	for _, tool := range layout.Tools {
		if tool.IsText {
			return true
		}
	}
	return false
}

func resolve(params *Parameters) Parameters {
	if params == nil {
		return DefaultParameters()
	}
	return *params
}
