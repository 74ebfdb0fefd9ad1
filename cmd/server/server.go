package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/money"
	"github.com/lumashape/insert-pricing/internal/orders"
	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
	"github.com/lumashape/insert-pricing/internal/units"
)

const maxBodyBytes = 1 << 20

type server struct {
	orders   *orders.Service
	auth     *adminAuth
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/quote", s.handleQuote)
		r.Post("/checkout", s.handleCheckout)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/layouts/thickness", s.handleThickness)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.auth.middleware)
		r.Get("/parameters", s.handleGetParameters)
		r.Put("/parameters", s.handlePutParameters)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{id}/verify", s.handleVerifyOrder)
		r.Get("/orders/{id}/lines/{index}/cost", s.handleLineCost)
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type quoteRequest struct {
	Items []orders.CartEntry `json:"items"`
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	quote, err := s.orders.Quote(r.Context(), req.Items)
	if err != nil {
		s.serviceError(w, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	order, created, err := s.orders.Checkout(r.Context(), req)
	if err != nil {
		s.serviceError(w, "checkout", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newOrderView(order))
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(order))
}

type thicknessRequest struct {
	Value      float64    `json:"value"`
	Unit       units.Unit `json:"unit"`
	TargetUnit units.Unit `json:"targetUnit,omitempty"`
}

type thicknessResponse struct {
	Value     float64    `json:"value"`
	Unit      units.Unit `json:"unit"`
	IsAllowed bool       `json:"isAllowed"`
	Inches    float64    `json:"inches"`
}

func (s *server) handleThickness(w http.ResponseWriter, r *http.Request) {
	var req thicknessRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if !knownUnit(req.Unit) {
		writeError(w, http.StatusBadRequest, `unit must be "mm" or "inches"`)
		return
	}

	resp := thicknessResponse{Unit: req.Unit}
	switch {
	case req.TargetUnit == "":
		resp.Value = units.CoerceThicknessFromPersisted(req.Value, req.Unit)
	case knownUnit(req.TargetUnit):
		resp.Unit = req.TargetUnit
		resp.Value = units.CoerceThicknessBetweenUnits(req.Value, req.Unit, req.TargetUnit)
	default:
		writeError(w, http.StatusBadRequest, `targetUnit must be "mm" or "inches"`)
		return
	}
	resp.IsAllowed = units.IsAllowedThickness(resp.Value, resp.Unit)
	resp.Inches = units.NormalizeThicknessToInches(resp.Value, resp.Unit)

	writeJSON(w, http.StatusOK, resp)
}

func knownUnit(u units.Unit) bool {
	return u == units.MM || u == units.Inches
}

func (s *server) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.orders.CurrentParameters(r.Context())
	if err != nil {
		s.serviceError(w, "get parameters", err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *server) handlePutParameters(w http.ResponseWriter, r *http.Request) {
	var params pricing.Parameters
	if !decodeJSON(w, r, &params, true) {
		return
	}
	if err := s.orders.UpdateParameters(r.Context(), params); err != nil {
		s.serviceError(w, "update parameters", err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.orders.List(r.Context(), limit)
	if err != nil {
		s.serviceError(w, "list orders", err)
		return
	}

	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, newOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (s *server) handleVerifyOrder(w http.ResponseWriter, r *http.Request) {
	v, err := s.orders.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, "verify order", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleLineCost(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "line index must be an integer")
		return
	}

	line, err := s.orders.LineMaterialCost(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.serviceError(w, "line cost", err)
		return
	}
	writeJSON(w, http.StatusOK, lineCostView{LineCost: line, Display: money.FormatUSD(line.LineMaterialCostWithWaste)})
}

type lineCostView struct {
	orders.LineCost
	Display string `json:"display"`
}

type orderView struct {
	ID                string               `json:"id"`
	CheckoutSessionID string               `json:"checkoutSessionId,omitempty"`
	CustomerEmail     string               `json:"customerEmail,omitempty"`
	Status            string               `json:"status"`
	CreatedAt         time.Time            `json:"createdAt"`
	Items             []pricing.CartItem   `json:"items"`
	Pricing           pricing.OrderPricing `json:"pricing"`
	Display           totalsDisplay        `json:"display"`
}

type totalsDisplay struct {
	MaterialCost                  string `json:"materialCost"`
	EngravingFee                  string `json:"engravingFee"`
	TotalCostBeforeMargins        string `json:"totalCostBeforeMargins"`
	KaiserPayout                  string `json:"kaiserPayout"`
	LumashapePayout               string `json:"lumashapePayout"`
	CustomerSubtotal              string `json:"customerSubtotal"`
	DiscountAmount                string `json:"discountAmount"`
	CustomerSubtotalAfterDiscount string `json:"customerSubtotalAfterDiscount"`
	CustomerTotal                 string `json:"customerTotal"`
}

func newTotalsDisplay(t pricing.Totals) totalsDisplay {
	return totalsDisplay{
		MaterialCost:                  money.FormatUSD(t.MaterialCostWithWaste),
		EngravingFee:                  money.FormatUSD(t.EngravingFee),
		TotalCostBeforeMargins:        money.FormatUSD(t.TotalCostBeforeMargins),
		KaiserPayout:                  money.FormatUSD(t.KaiserPayout),
		LumashapePayout:               money.FormatUSD(t.LumashapePayout),
		CustomerSubtotal:              money.FormatUSD(t.CustomerSubtotal),
		DiscountAmount:                money.FormatUSD(t.DiscountAmount),
		CustomerSubtotalAfterDiscount: money.FormatUSD(t.CustomerSubtotalAfterDiscount),
		CustomerTotal:                 money.FormatUSD(t.CustomerTotal),
	}
}

func newOrderView(o store.Order) orderView {
	return orderView{
		ID:                o.ID,
		CheckoutSessionID: o.CheckoutSessionID,
		CustomerEmail:     o.CustomerEmail,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
		Items:             o.Items,
		Pricing:           o.Pricing,
		Display:           newTotalsDisplay(o.Pricing.Totals),
	}
}

func (s *server) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case orders.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded request body into dst. Cart payloads carry storefront
// fields the engine ignores, so unknown fields are only rejected when strict is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON encodes before writing the header so an unencodable value becomes a 500
// instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
