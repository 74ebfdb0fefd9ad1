package orders

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lumashape/insert-pricing/internal/pricing"
)

// validationError reports a request the service refuses to act on.
type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func newValidationError(msg string) error {
	return validationError{message: msg}
}

// IsValidation distinguishes rejected input from infrastructure failures.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}

// CartEntry is a cart line as the storefront sends it. Entries without a selected
// flag are treated as selected.
type CartEntry struct {
	pricing.CartItem
	Selected *bool `json:"selected,omitempty"`
}

func (e CartEntry) isSelected() bool {
	return e.Selected == nil || *e.Selected
}

// SelectedItems returns copies of the selected entries with text tools marked.
func SelectedItems(entries []CartEntry) []pricing.CartItem {
	items := make([]pricing.CartItem, 0, len(entries))
	for _, e := range entries {
		if !e.isSelected() {
			continue
		}
		items = append(items, markTextTools(e.CartItem))
	}
	return items
}

func markTextTools(item pricing.CartItem) pricing.CartItem {
	if item.LayoutData == nil {
		return item
	}
	layout := *item.LayoutData
	if layout.Tools != nil {
		tools := make([]pricing.Tool, len(layout.Tools))
		for i, tool := range layout.Tools {
			tool.IsText = tool.IsText || isTextLabel(tool.Name) || isTextLabel(tool.Brand)
			tools[i] = tool
		}
		layout.Tools = tools
	}
	item.LayoutData = &layout
	return item
}

func isTextLabel(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "text")
}

func validateCheckout(items []pricing.CartItem) error {
	if len(items) == 0 {
		return newValidationError("select at least one item to check out")
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return newValidationError(fmt.Sprintf("item %d (%s): quantity must be at least 1", i, item.ID))
		}
	}
	return nil
}

func validateParameters(p pricing.Parameters) error {
	if err := p.Validate(); err != nil {
		return newValidationError(err.Error())
	}
	return nil
}

// CheckQuote rejects a quote whose amounts overflowed to Inf or NaN, so it is
// never stored or rendered.
func CheckQuote(q pricing.OrderPricing) error {
	for i, item := range q.Items {
		if !finite(item.UnitVolumeIn3, item.UnitMaterialCostWithWaste, item.LineMaterialCostWithWaste) {
			return newValidationError(fmt.Sprintf("item %d (%s): dimensions are too large to price", i, item.ID))
		}
	}
	t := q.Totals
	if !finite(
		t.MaterialVolumeIn3, t.MaterialCost, t.MaterialCostWithWaste, t.EngravingFee,
		t.DesignTimeCost, t.MachineTimeCost, t.ConsumablesCost, t.ShippingCost, t.PackagingCost,
		t.TotalCostBeforeMargins, t.KaiserPayout, t.LumashapePayout, t.CustomerSubtotal,
		t.DiscountPct, t.DiscountAmount, t.CustomerSubtotalAfterDiscount, t.CustomerTotal,
	) {
		return newValidationError("order total is too large to price")
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
