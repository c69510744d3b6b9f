// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultAdmitted = "admitted"
	resultRejected = "rejected"
)

// Metrics contains Prometheus metrics for the limiters of a LimitManager.
type Metrics struct {
	// admission attempts by limiter and result
	admissions *prometheus.CounterVec

	// wait estimates handed back on rejection
	waitEstimate *prometheus.HistogramVec

	// limiters currently wrapped around a reader or writer
	inUse *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg, a nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_admissions_total",
				Help: "Total number of admission attempts per limiter",
			},
			[]string{"limiter", "result"},
		),

		waitEstimate: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "throttle_wait_estimate_seconds",
				Help:    "Wait estimate returned to rejected callers",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"limiter"},
		),

		inUse: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "throttle_limiter_in_use",
				Help: "Whether the limiter is currently wrapped around a stream",
			},
			[]string{"limiter"},
		),
	}
}

// RecordAdmission records the outcome of one admission attempt.
func (m *Metrics) RecordAdmission(limiter string, wait time.Duration) {
	if m == nil {
		return
	}
	if wait == 0 {
		m.admissions.WithLabelValues(limiter, resultAdmitted).Inc()
		return
	}
	m.admissions.WithLabelValues(limiter, resultRejected).Inc()
	m.waitEstimate.WithLabelValues(limiter).Observe(wait.Seconds())
}

// UpdateInUse updates the in use gauge of a limiter.
func (m *Metrics) UpdateInUse(limiter string, inUse bool) {
	if m == nil {
		return
	}
	val := 0.0
	if inUse {
		val = 1
	}
	m.inUse.WithLabelValues(limiter).Set(val)
}
