package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "insert_pricing"

// Metrics groups the pricing service collectors.
type Metrics struct {
	QuotesComputed         prometheus.Counter
	QuoteCacheHits         prometheus.Counter
	OrdersCreated          *prometheus.CounterVec
	VerificationMismatches prometheus.Counter
	CustomerTotal          prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuotesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_computed_total",
			Help:      "Carts priced by the engine.",
		}),
		QuoteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_hits_total",
			Help:      "Quotes served from the cache.",
		}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		VerificationMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_mismatches_total",
			Help:      "Stored orders whose totals could not be re-derived from their own parameters.",
		}),
		CustomerTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_customer_total_usd",
			Help:      "Customer total of created orders.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}

	reg.MustRegister(m.QuotesComputed, m.QuoteCacheHits, m.OrdersCreated, m.VerificationMismatches, m.CustomerTotal)
	return m
}
