package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	Checkouts        prometheus.Counter
	CheckoutFailures *prometheus.CounterVec
	Returns          prometheus.Counter
	FinesAccrued     prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		Checkouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "biblio_checkouts_total",
			Help: "Total number of successful checkouts",
		}),
		CheckoutFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biblio_checkout_failures_total",
			Help: "Total number of rejected checkouts by reason",
		}, []string{"reason"}),
		Returns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "biblio_returns_total",
			Help: "Total number of successful returns",
		}),
		FinesAccrued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "biblio_fines_accrued_total",
			Help: "Total fine amount accrued to patron balances, in currency units",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biblio_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// IncrementCheckouts increments the successful checkouts counter by 1
func (m *Metrics) IncrementCheckouts() {
	m.Checkouts.Inc()
}

// IncrementCheckoutFailures increments the rejected checkout counter for a reason
func (m *Metrics) IncrementCheckoutFailures(reason string) {
	m.CheckoutFailures.WithLabelValues(reason).Inc()
}

// IncrementReturns increments the successful returns counter by 1
func (m *Metrics) IncrementReturns() {
	m.Returns.Inc()
}

// AddFinesAccrued adds a fine amount to the accrued-fines counter
func (m *Metrics) AddFinesAccrued(amount float64) {
	if amount > 0 {
		m.FinesAccrued.Add(amount)
	}
}

// ObserveRequest records one HTTP request's latency
func (m *Metrics) ObserveRequest(route, method string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}
