package processor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/eventscope/internal/event"
)

// Metrics holds the processor's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	commits    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	entities   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventscope_events_committed_total",
			Help: "Events appended to the log, by kind and whether the processor synthesized them",
		}, []string{"kind", "synthesized"}),

		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventscope_events_rejected_total",
			Help: "Events rejected by validation, by error code",
		}, []string{"code"}),

		entities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventscope_live_entities",
			Help: "Currently live nodes, edges, open activities, and pending messages",
		}, []string{"type"}),
	}
}

func (m *Metrics) observeCommit(ev event.Event) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(ev.Kind().String(), strconv.FormatBool(ev.Synthetic())).Inc()
}

func (m *Metrics) observeReject(code ErrorCode) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) observeLive(s Stats) {
	if m == nil {
		return
	}
	m.entities.WithLabelValues("node").Set(float64(s.Nodes))
	m.entities.WithLabelValues("edge").Set(float64(s.Edges))
	m.entities.WithLabelValues("activity").Set(float64(s.Activities))
	m.entities.WithLabelValues("message").Set(float64(s.Messages))
}
