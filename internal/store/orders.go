package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lumashape/insert-pricing/internal/pricing"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Order is a persisted checkout. Pricing carries the per-item entries, totals and the
// parameter snapshot the totals were computed with.
type Order struct {
	ID                string
	CheckoutSessionID string
	CustomerEmail     string
	Status            string
	Items             []pricing.CartItem
	Pricing           pricing.OrderPricing
	CreatedAt         time.Time
}

// Orders persists orders in SQLite.
type Orders struct {
	db *sql.DB
}

// NewOrders returns an order repository backed by db.
func NewOrders(db *sql.DB) *Orders {
	return &Orders{db: db}
}

// Create inserts o. When an order already exists for o.CheckoutSessionID the stored
// order is returned instead and created is false.
func (r *Orders) Create(ctx context.Context, o Order) (stored Order, created bool, err error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, false, fmt.Errorf("encode order items: %w", err)
	}
	priced, err := json.Marshal(o.Pricing.Items)
	if err != nil {
		return Order{}, false, fmt.Errorf("encode item pricing: %w", err)
	}
	totals, err := json.Marshal(o.Pricing.Totals)
	if err != nil {
		return Order{}, false, fmt.Errorf("encode totals: %w", err)
	}
	params, err := json.Marshal(o.Pricing.Parameters)
	if err != nil {
		return Order{}, false, fmt.Errorf("encode parameters: %w", err)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.CreatedAt = o.CreatedAt.UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, checkout_session_id, customer_email, status,
			items_json, pricing_json, totals_json, parameters_json,
			customer_total, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(checkout_session_id) DO NOTHING
	`,
		o.ID, nullString(o.CheckoutSessionID), o.CustomerEmail, o.Status,
		string(items), string(priced), string(totals), string(params),
		o.Pricing.Totals.CustomerTotal, o.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Order{}, false, fmt.Errorf("insert order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Order{}, false, fmt.Errorf("insert order: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetBySession(ctx, o.CheckoutSessionID)
		if err != nil {
			return Order{}, false, err
		}
		return existing, false, nil
	}

	return o, true, nil
}

// Get returns the order with id.
func (r *Orders) Get(ctx context.Context, id string) (Order, error) {
	return r.queryOne(ctx, `WHERE id = ?`, id)
}

// GetBySession returns the order created for a checkout session.
func (r *Orders) GetBySession(ctx context.Context, sessionID string) (Order, error) {
	return r.queryOne(ctx, `WHERE checkout_session_id = ?`, sessionID)
}

// List returns up to limit orders, newest first.
func (r *Orders) List(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, selectOrder+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

const selectOrder = `
	SELECT
		id, COALESCE(checkout_session_id, ''), customer_email, status,
		items_json, pricing_json, totals_json, parameters_json, created_at
	FROM orders
`

func (r *Orders) queryOne(ctx context.Context, where string, arg any) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var (
		o                                 Order
		items, priced, totals, params, at string
	)
	if err := row.Scan(&o.ID, &o.CheckoutSessionID, &o.CustomerEmail, &o.Status, &items, &priced, &totals, &params, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order %s items: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(priced), &o.Pricing.Items); err != nil {
		return Order{}, fmt.Errorf("decode order %s item pricing: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(totals), &o.Pricing.Totals); err != nil {
		return Order{}, fmt.Errorf("decode order %s totals: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(params), &o.Pricing.Parameters); err != nil {
		return Order{}, fmt.Errorf("decode order %s parameters: %w", o.ID, err)
	}

	created, err := time.Parse(timeLayout, at)
	if err != nil {
		return Order{}, fmt.Errorf("parse order %s created_at: %w", o.ID, err)
	}
	o.CreatedAt = created

	return o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
