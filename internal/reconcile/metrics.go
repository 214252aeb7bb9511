package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK      = "ok"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

// Metrics are optional; a nil *Metrics records nothing.
type Metrics struct {
	Syncs        *prometheus.CounterVec
	Upserted     prometheus.Counter
	DeleteChunks *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Syncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanjou",
			Subsystem: "reconcile",
			Name:      "syncs_total",
			Help:      "Sync attempts by result.",
		}, []string{"result"}),
		Upserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kanjou",
			Subsystem: "reconcile",
			Name:      "entries_upserted_total",
			Help:      "Entries sent to the remote store.",
		}),
		DeleteChunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanjou",
			Subsystem: "reconcile",
			Name:      "delete_chunks_total",
			Help:      "Remote delete chunks by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) sync(result string) {
	if m != nil {
		m.Syncs.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) upserted(n int) {
	if m != nil {
		m.Upserted.Add(float64(n))
	}
}

func (m *Metrics) deleteChunk(result string) {
	if m != nil {
		m.DeleteChunks.WithLabelValues(result).Inc()
	}
}
