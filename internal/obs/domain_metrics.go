package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SessionsTotal counts customization session transitions by resulting state.
	SessionsTotal *prometheus.CounterVec
	// QuotesTotal counts price computations served to clients.
	QuotesTotal *prometheus.CounterVec
	// CartLinesTotal counts lines added to carts by kind (simple, customized).
	CartLinesTotal *prometheus.CounterVec
	// OrdersTotal counts checkout outcomes.
	OrdersTotal *prometheus.CounterVec
	// OrderValueCents records order totals in cents.
	OrderValueCents prometheus.Histogram
	// POSSubmitTotal counts point-of-sale submission outcomes.
	POSSubmitTotal *prometheus.CounterVec
	// POSSubmitLatency records submission latency in milliseconds.
	POSSubmitLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers the ordering collectors.
// Recording helpers are no-ops until this has run.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customization_sessions_total",
			Help:      "Customization session transitions by resulting state.",
		}, []string{"state"})
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_quotes_total",
			Help:      "Item price computations served, by source.",
		}, []string{"source"})
		CartLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_lines_added_total",
			Help:      "Lines added to carts by kind.",
		}, []string{"kind"})
		OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"result"})
		OrderValueCents = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_cents",
			Help:      "Order totals in cents.",
			Buckets:   []float64{500, 1000, 1500, 2500, 4000, 6000, 10000, 20000},
		})
		POSSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pos_submit_total",
			Help:      "Point-of-sale submissions by mode and result.",
		}, []string{"mode", "result"})
		POSSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pos_submit_duration_ms",
			Help:      "Point-of-sale submission latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		register(reg, &SessionsTotal)
		register(reg, &QuotesTotal)
		register(reg, &CartLinesTotal)
		register(reg, &OrdersTotal)
		register(reg, &OrderValueCents)
		register(reg, &POSSubmitTotal)
		register(reg, &POSSubmitLatency)
	})
}

// ObserveSession records a session reaching state.
func ObserveSession(state string) {
	if SessionsTotal != nil {
		SessionsTotal.WithLabelValues(state).Inc()
	}
}

// ObserveQuote records a served price computation.
func ObserveQuote(source string) {
	if QuotesTotal != nil {
		QuotesTotal.WithLabelValues(source).Inc()
	}
}

// ObserveCartLine records a line added to a cart.
func ObserveCartLine(kind string) {
	if CartLinesTotal != nil {
		CartLinesTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveOrder records a checkout outcome. totalCents is observed only for created orders.
func ObserveOrder(result string, totalCents int64) {
	if OrdersTotal != nil {
		OrdersTotal.WithLabelValues(result).Inc()
	}
	if result == "created" && OrderValueCents != nil {
		OrderValueCents.Observe(float64(totalCents))
	}
}

// ObservePOSSubmit records a submission attempt.
func ObservePOSSubmit(mode, result string, took time.Duration) {
	if POSSubmitTotal != nil {
		POSSubmitTotal.WithLabelValues(mode, result).Inc()
	}
	if POSSubmitLatency != nil {
		POSSubmitLatency.WithLabelValues(result).Observe(DurationMillis(took))
	}
}
