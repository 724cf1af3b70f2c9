package page

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/pagebuilder/core/layout"
)

const (
	saveOK       = "ok"
	saveConflict = "conflict"
	saveError    = "error"
)

// Metrics counts layout actions and saves. A nil *Metrics records nothing.
type Metrics struct {
	actions *prometheus.CounterVec
	saves   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagebuilder",
			Subsystem: "layout",
			Name:      "actions_total",
			Help:      "Layout actions applied, by action and outcome.",
		}, []string{"action", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagebuilder",
			Subsystem: "layout",
			Name:      "saves_total",
			Help:      "Page saves, by result (ok, conflict, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.actions, m.saves)
	}
	return m
}

func (m *Metrics) observeAction(action layout.Action, out layout.Outcome) {
	if m == nil || action == nil {
		return
	}
	m.actions.WithLabelValues(action.Name(), out.String()).Inc()
}

func (m *Metrics) observeSave(result string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(result).Inc()
}
