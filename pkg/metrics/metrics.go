// Package metrics exposes Prometheus instrumentation for the checkout engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts checkout outcomes and coupon redemptions.
type CheckoutMetrics struct {
	Succeeded   prometheus.Counter
	Failed      *prometheus.CounterVec
	Fulfillment *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout counters on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	succeeded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "payments_total",
		Help:      "Total number of committed checkouts.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "failures_total",
		Help:      "Total number of aborted checkouts by reason.",
	}, []string{"reason"})
	fulfillment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "fulfillment_runs_total",
		Help:      "Total number of fulfillment runs by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(succeeded, failed, fulfillment)
	return &CheckoutMetrics{Succeeded: succeeded, Failed: failed, Fulfillment: fulfillment}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
