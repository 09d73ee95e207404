package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of the checkout flow and its reactive
// rate lookups.
type CheckoutMetrics struct {
	success      *prometheus.CounterVec
	failure      *prometheus.CounterVec
	rateLatency  *prometheus.HistogramVec
	rateStale    prometheus.Counter
	rateFallback prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Checkouts that reached a terminal success state.",
	}, []string{"gateway"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Checkouts that unwound to the failed state.",
	}, []string{"step"})
	rateLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rate_lookup_duration_seconds",
		Help:    "Duration of courier rate lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	rateStale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_lookup_stale_discarded",
		Help: "Rate lookup results discarded because a newer lookup superseded them.",
	})
	rateFallback := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_lookup_fallback",
		Help: "Rate lookups that fell back to a zero shipping fee.",
	})
	reg.MustRegister(success, failure, rateLatency, rateStale, rateFallback)
	return &CheckoutMetrics{
		success:      success,
		failure:      failure,
		rateLatency:  rateLatency,
		rateStale:    rateStale,
		rateFallback: rateFallback,
	}
}

// IncSuccess increments the success counter for the named gateway.
func (c *CheckoutMetrics) IncSuccess(gateway string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(gateway)).Inc()
}

// IncFailure increments the failure counter for the named checkout step.
func (c *CheckoutMetrics) IncFailure(step string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(step)).Inc()
}

// ObserveRateLookup records the duration of a rate lookup.
func (c *CheckoutMetrics) ObserveRateLookup(outcome string, duration time.Duration) {
	if c == nil || c.rateLatency == nil {
		return
	}
	c.rateLatency.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncRateStale counts a discarded stale rate result.
func (c *CheckoutMetrics) IncRateStale() {
	if c == nil || c.rateStale == nil {
		return
	}
	c.rateStale.Inc()
}

// IncRateFallback counts a lookup that fell back to a zero fee.
func (c *CheckoutMetrics) IncRateFallback() {
	if c == nil || c.rateFallback == nil {
		return
	}
	c.rateFallback.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
