package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DiscountEvaluationsTotal counts evaluations by engine and outcome.
	DiscountEvaluationsTotal *prometheus.CounterVec
	// DiscountEvaluationLatency records evaluation latency in milliseconds.
	DiscountEvaluationLatency *prometheus.HistogramVec
	// DiscountConfigStoreOps counts configuration store operations by outcome.
	DiscountConfigStoreOps *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DiscountEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_evaluations_total",
			Help:      "Count of discount evaluations by engine and outcome.",
		}, []string{"engine", "outcome"})
		DiscountEvaluationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discount_evaluation_duration_ms",
			Help:      "Latency of discount evaluations in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"engine"})
		DiscountConfigStoreOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_config_store_ops_total",
			Help:      "Count of discount configuration store operations by result.",
		}, []string{"op", "result"})

		mustRegisterCollector(reg, DiscountEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountEvaluationLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				DiscountEvaluationLatency = v
			}
		})
		mustRegisterCollector(reg, DiscountConfigStoreOps, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountConfigStoreOps = v
			}
		})
	})
}

// ObserveEvaluation records one evaluation. It is a no-op until the domain metrics are registered.
func ObserveEvaluation(engine, outcome string, took time.Duration) {
	if DiscountEvaluationsTotal != nil {
		DiscountEvaluationsTotal.WithLabelValues(engine, outcome).Inc()
	}
	if DiscountEvaluationLatency != nil {
		DiscountEvaluationLatency.WithLabelValues(engine).Observe(DurationMillis(took))
	}
}

// ObserveStoreOp records one configuration store operation.
func ObserveStoreOp(op string, err error) {
	if DiscountConfigStoreOps == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	DiscountConfigStoreOps.WithLabelValues(op, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
