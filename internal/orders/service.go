package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/cache"
	"github.com/lumashape/insert-pricing/internal/metrics"
	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
)

const StatusPlaced = "placed"

// OrderStore persists orders.
type OrderStore interface {
	Create(ctx context.Context, o store.Order) (store.Order, bool, error)
	Get(ctx context.Context, id string) (store.Order, error)
	List(ctx context.Context, limit int) ([]store.Order, error)
}

// ParameterStore holds the current default pricing parameters.
type ParameterStore interface {
	Get(ctx context.Context) (pricing.Parameters, error)
	Save(ctx context.Context, p pricing.Parameters) error
}

// QuoteCache caches computed quotes. Get returns nil on a miss.
type QuoteCache interface {
	Get(ctx context.Context, key string) (*pricing.OrderPricing, error)
	Set(ctx context.Context, key string, quote pricing.OrderPricing) error
}

// Publisher announces created orders.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order store.Order) error
}

// CheckoutRequest is a cart being turned into an order.
type CheckoutRequest struct {
	SessionID     string      `json:"sessionId"`
	CustomerEmail string      `json:"customerEmail"`
	Entries       []CartEntry `json:"items"`
}

// Verification compares an order's stored totals with totals re-derived from its own
// stored items and parameters.
type Verification struct {
	OrderID    string         `json:"orderId"`
	Matches    bool           `json:"matches"`
	Stored     pricing.Totals `json:"stored"`
	Recomputed pricing.Totals `json:"recomputed"`
}

// LineCost is a single order line recomputed for admin display.
type LineCost struct {
	OrderID                   string  `json:"orderId"`
	Index                     int     `json:"index"`
	ItemID                    string  `json:"itemId"`
	Qty                       int     `json:"qty"`
	UnitMaterialCostWithWaste float64 `json:"unitMaterialCostWithWaste"`
	LineMaterialCostWithWaste float64 `json:"lineMaterialCostWithWaste"`
}

// Service prices carts and manages orders around the pricing engine.
type Service struct {
	orders    OrderStore
	params    ParameterStore
	cache     QuoteCache
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	newID func() string
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithQuoteCache enables quote caching.
func WithQuoteCache(c QuoteCache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService wires a Service.
func NewService(orders OrderStore, params ParameterStore, publisher Publisher, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		orders:    orders,
		params:    params,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentParameters returns the stored default parameters, falling back to the
// canonical defaults when none are stored.
func (s *Service) CurrentParameters(ctx context.Context) (pricing.Parameters, error) {
	p, err := s.params.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return pricing.DefaultParameters(), nil
	}
	if err != nil {
		return pricing.Parameters{}, fmt.Errorf("load pricing parameters: %w", err)
	}
	return p, nil
}

// UpdateParameters replaces the stored default parameters. Existing orders keep
// their own snapshot.
func (s *Service) UpdateParameters(ctx context.Context, p pricing.Parameters) error {
	if err := validateParameters(p); err != nil {
		return err
	}
	if err := s.params.Save(ctx, p); err != nil {
		return fmt.Errorf("save pricing parameters: %w", err)
	}
	s.logger.Info("pricing parameters updated", zap.Any("parameters", p))
	return nil
}

// Quote prices the selected cart entries with the current parameters.
func (s *Service) Quote(ctx context.Context, entries []CartEntry) (pricing.OrderPricing, error) {
	params, err := s.CurrentParameters(ctx)
	if err != nil {
		return pricing.OrderPricing{}, err
	}
	items := SelectedItems(entries)

	var key string
	if s.cache != nil {
		key, err = cache.Key(items, params)
		if err != nil {
			return pricing.OrderPricing{}, err
		}
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("quote cache read failed", zap.Error(err))
		} else if cached != nil {
			s.metrics.QuoteCacheHits.Inc()
			return *cached, nil
		}
	}

	quote := pricing.CalculateOrderPricing(items, &params)
	s.metrics.QuotesComputed.Inc()
	if err := CheckQuote(quote); err != nil {
		return pricing.OrderPricing{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, quote); err != nil {
			s.logger.Warn("quote cache write failed", zap.Error(err))
		}
	}
	return quote, nil
}

// Checkout prices the selected entries and stores the order together with the
// parameters it was priced with. A repeated session returns the first order and
// created is false.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (order store.Order, created bool, err error) {
	items := SelectedItems(req.Entries)
	if err := validateCheckout(items); err != nil {
		s.metrics.OrdersCreated.WithLabelValues("rejected").Inc()
		return store.Order{}, false, err
	}

	params, err := s.CurrentParameters(ctx)
	if err != nil {
		return store.Order{}, false, err
	}

	quote := pricing.CalculateOrderPricing(items, &params)
	s.metrics.QuotesComputed.Inc()
	if err := CheckQuote(quote); err != nil {
		s.metrics.OrdersCreated.WithLabelValues("rejected").Inc()
		return store.Order{}, false, err
	}

	order, created, err = s.orders.Create(ctx, store.Order{
		ID:                s.newID(),
		CheckoutSessionID: req.SessionID,
		CustomerEmail:     req.CustomerEmail,
		Status:            StatusPlaced,
		Items:             items,
		Pricing:           quote,
		CreatedAt:         s.now(),
	})
	if err != nil {
		return store.Order{}, false, fmt.Errorf("create order: %w", err)
	}

	if !created {
		s.metrics.OrdersCreated.WithLabelValues("duplicate").Inc()
		s.logger.Info("checkout session already has an order",
			zap.String("session_id", req.SessionID),
			zap.String("order_id", order.ID),
		)
		return order, false, nil
	}

	s.metrics.OrdersCreated.WithLabelValues("created").Inc()
	s.metrics.CustomerTotal.Observe(order.Pricing.Totals.CustomerTotal)
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int("line_items", len(order.Items)),
		zap.Float64("customer_total", order.Pricing.Totals.CustomerTotal),
	)

	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Error("order created but event not published", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, true, nil
}

// Get returns a stored order.
func (s *Service) Get(ctx context.Context, id string) (store.Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns recent orders, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.Order, error) {
	return s.orders.List(ctx, limit)
}

// Verify re-derives an order's totals from its own stored items and parameters,
// independent of the current defaults.
func (s *Service) Verify(ctx context.Context, id string) (Verification, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return Verification{}, err
	}

	params := order.Pricing.Parameters
	recomputed := pricing.CalculateOrderPricing(order.Items, &params)

	v := Verification{
		OrderID:    order.ID,
		Matches:    recomputed.Totals == order.Pricing.Totals,
		Stored:     order.Pricing.Totals,
		Recomputed: recomputed.Totals,
	}
	if !v.Matches {
		s.metrics.VerificationMismatches.Inc()
		s.logger.Warn("stored totals do not match recomputation",
			zap.String("order_id", order.ID),
			zap.Float64("stored_total", v.Stored.CustomerTotal),
			zap.Float64("recomputed_total", v.Recomputed.CustomerTotal),
		)
	}
	return v, nil
}

// LineMaterialCost recomputes the material cost of one order line using the order's
// stored parameters.
func (s *Service) LineMaterialCost(ctx context.Context, id string, index int) (LineCost, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return LineCost{}, err
	}
	if index < 0 || index >= len(order.Items) {
		return LineCost{}, newValidationError(fmt.Sprintf("line %d out of range (order has %d lines)", index, len(order.Items)))
	}

	item := order.Items[index]
	dims := pricing.LayoutDimensions{}
	if item.LayoutData != nil && item.LayoutData.Canvas != nil {
		dims = item.LayoutData.Canvas.LayoutDimensions
	}

	params := order.Pricing.Parameters
	unit := pricing.CalculateUnitMaterialCostWithWaste(dims, &params)
	return LineCost{
		OrderID:                   order.ID,
		Index:                     index,
		ItemID:                    item.ID,
		Qty:                       item.Quantity,
		UnitMaterialCostWithWaste: unit,
		LineMaterialCostWithWaste: pricing.Round2(unit * float64(item.Quantity)),
	}, nil
}
