package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/seltree/pkg/domain"
)

// Namespace prefixes every collector name.
const Namespace = "seltree"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Selections  *prometheus.CounterVec
	Switches    *prometheus.CounterVec
	Signals     *prometheus.CounterVec
	Loads       *prometheus.CounterVec
	Templates   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of tree evaluations",
			},
			[]string{"template"},
		),
		Selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "selections_total",
				Help:      "Behaviors selected by evaluations; empty behavior means nothing was selectable",
			},
			[]string{"template", "behavior"},
		),
		Switches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "behavior_switches_total",
				Help:      "Evaluations that selected a different leaf than the previous one",
			},
			[]string{"template"},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "signals_total",
				Help:      "Signals delivered to trees",
			},
			[]string{"template", "signal", "matched"},
		),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "loads_total",
				Help:      "Registry loads by result",
			},
			[]string{"result"},
		),
		Templates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "templates_loaded",
			Help:      "Templates held by the registry after the last successful load",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Evaluations, m.Selections, m.Switches, m.Signals, m.Loads, m.Templates} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluate: func(e *domain.EvaluateEvent) {
			m.Evaluations.WithLabelValues(e.Template).Inc()
			m.Selections.WithLabelValues(e.Template, e.Behavior).Inc()
			if e.Selected != e.Previous {
				m.Switches.WithLabelValues(e.Template).Inc()
			}
		},
		OnSignal: func(e *domain.SignalEvent) {
			m.Signals.WithLabelValues(e.Template, e.Signal, strconv.FormatBool(e.Matched)).Inc()
		},
		OnLoad: func(e *domain.LoadEvent) {
			if e.Err != nil {
				m.Loads.WithLabelValues("error").Inc()
				return
			}
			m.Loads.WithLabelValues("ok").Inc()
			m.Templates.Set(float64(e.Templates))
		},
	}
}
