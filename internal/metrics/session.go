// Package metrics exposes Prometheus collectors for the session workflow.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type SessionMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	settlements *prometheus.CounterVec
	financed    prometheus.Counter
}

var (
	sessionOnce     sync.Once
	sessionRegistry *SessionMetrics
)

// Session returns the process-wide collectors, registering them on first use.
func Session() *SessionMetrics {
	sessionOnce.Do(func() {
		sessionRegistry = newSessionMetrics()
		prometheus.MustRegister(
			sessionRegistry.transitions,
			sessionRegistry.rejections,
			sessionRegistry.durations,
			sessionRegistry.settlements,
			sessionRegistry.financed,
		)
	})
	return sessionRegistry
}

func newSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierpay_session_transitions_total",
			Help: "Applied session transitions by event and resulting status.",
		}, []string{"event", "from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierpay_session_rejections_total",
			Help: "Rejected session operations by event and error code.",
		}, []string{"event", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tierpay_session_operation_seconds",
			Help:    "Latency of session operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierpay_settlements_total",
			Help: "Settlements emitted, split by whether the call replayed an earlier settlement.",
		}, []string{"replayed"}),
		financed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierpay_financed_amount_total",
			Help: "Sum of financed balances committed at settlement, in currency units.",
		}),
	}
}

func (m *SessionMetrics) RecordTransition(event, from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "NONE"
	}
	m.transitions.WithLabelValues(event, from, to).Inc()
}

func (m *SessionMetrics) RecordRejection(event, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.rejections.WithLabelValues(event, code).Inc()
}

func (m *SessionMetrics) RecordOperationDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *SessionMetrics) RecordSettlement(financed float64, replayed bool) {
	if m == nil {
		return
	}
	label := "false"
	if replayed {
		label = "true"
	}
	m.settlements.WithLabelValues(label).Inc()
	if !replayed && financed > 0 {
		m.financed.Add(financed)
	}
}
