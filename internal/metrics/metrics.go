package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/model"
)

const namespace = "arbfeed"

var connectionStates = []connection.State{
	connection.StateDisconnected,
	connection.StateConnecting,
	connection.StateConnected,
	connection.StateErrored,
}

// Metrics holds the feed collectors. It implements engine.Observer and
// engine.TransitionObserver.
type Metrics struct {
	registry *prometheus.Registry

	connectionState *prometheus.GaugeVec
	feedErrors      *prometheus.CounterVec
	batches         prometheus.Counter
	records         prometheus.Gauge
	changes         *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current stream connection state, 0 otherwise",
		}, []string{"state"}),
		feedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed errors surfaced to consumers, by kind",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_batches_total",
			Help:      "Snapshot batches reconciled",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records tracked after the last batch or sweep",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_changes_total",
			Help:      "Per-batch record changes, by change",
		}, []string{"change"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Record lifecycle transitions, by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.connectionState,
		m.feedErrors,
		m.batches,
		m.records,
		m.changes,
		m.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.setState(connection.StateDisconnected)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnStatusChange(state connection.State) {
	m.setState(state)
}

func (m *Metrics) OnError(kind model.ErrorKind, _ string) {
	m.feedErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) OnData(count, added, updated, vanished int) {
	m.batches.Inc()
	m.records.Set(float64(count))
	m.changes.WithLabelValues("added").Add(float64(added))
	m.changes.WithLabelValues("updated").Add(float64(updated))
	m.changes.WithLabelValues("vanished").Add(float64(vanished))
}

func (m *Metrics) OnTransitions(transitions []model.Transition) {
	for _, tr := range transitions {
		m.transitions.WithLabelValues(string(tr.Kind)).Inc()
	}
}

func (m *Metrics) setState(state connection.State) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.connectionState.WithLabelValues(string(s)).Set(v)
	}
}

var (
	_ engine.Observer           = (*Metrics)(nil)
	_ engine.TransitionObserver = (*Metrics)(nil)
)
