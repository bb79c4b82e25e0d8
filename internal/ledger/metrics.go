package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work done by an Engine.
type Metrics struct {
	recomputes         prometheus.Counter
	checkpointsWritten prometheus.Counter
	recomputeDuration  prometheus.Histogram
	balanceRefreshes   prometheus.Counter
	anchorExtensions   prometheus.Counter
	debtRefreshes      prometheus.Counter
	failures           *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "recompute_walks_total",
			Help:      "Number of monthly checkpoint recompute walks started.",
		}),
		checkpointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "checkpoints_written_total",
			Help:      "Number of monthly checkpoints created or updated.",
		}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of monthly checkpoint recompute walks.",
			Buckets:   prometheus.DefBuckets,
		}),
		balanceRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "balance_refreshes_total",
			Help:      "Number of account balance refreshes.",
		}),
		anchorExtensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "anchor_extensions_total",
			Help:      "Number of times an account anchor moved back to absorb earlier records.",
		}),
		debtRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "debt_refreshes_total",
			Help:      "Number of debt balance refreshes.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "failures_total",
			Help:      "Number of failed engine operations.",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.recomputes,
			m.checkpointsWritten,
			m.recomputeDuration,
			m.balanceRefreshes,
			m.anchorExtensions,
			m.debtRefreshes,
			m.failures,
		)
	}

	return m
}

func (m *Metrics) fail(operation string) {
	m.failures.WithLabelValues(operation).Inc()
}
