package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/arbfeed/internal/engine"
)

// StatusSource reports engine status. *engine.Engine implements it.
type StatusSource interface {
	Status() engine.Status
}

// WatchEngine registers collectors read from src at scrape time.
func (m *Metrics) WatchEngine(src StatusSource) {
	gauge := func(name, help string, f func(engine.Status) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		}, func() float64 { return f(src.Status()) })
	}
	counter := func(name, help string, f func(engine.Status) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		}, func() float64 { return f(src.Status()) })
	}

	m.registry.MustRegister(
		gauge("active_records", "Records present in the latest snapshot",
			func(s engine.Status) float64 { return float64(s.Active) }),
		gauge("vanished_records", "Records kept after vanishing, awaiting eviction",
			func(s engine.Status) float64 { return float64(s.Records - s.Active) }),
		gauge("state_generation", "Generation of the published record state",
			func(s engine.Status) float64 { return float64(s.Generation) }),
		counter("dropped_records_total", "Records dropped for missing required fields",
			func(s engine.Status) float64 { return float64(s.DroppedRecords) }),
		counter("evicted_records_total", "Vanished records evicted by the sweep",
			func(s engine.Status) float64 { return float64(s.Evicted) }),
		counter("reconnects_total", "Reconnects scheduled by the connection manager",
			func(s engine.Status) float64 { return float64(s.Manager.Reconnects) }),
		counter("connection_attempts_total", "Stream connection attempts",
			func(s engine.Status) float64 { return float64(s.Manager.Attempts) }),
		gauge("queue_depth", "Events waiting for the engine loop",
			func(s engine.Status) float64 { return float64(s.Queue.Count) }),
		gauge("queue_capacity", "Ring size of the engine event queue",
			func(s engine.Status) float64 { return float64(s.Queue.Capacity) }),
		counter("queue_resizes_total", "Times the engine event queue grew",
			func(s engine.Status) float64 { return float64(s.Queue.ResizeCount) }),
		counter("events_total", "Events handed to the engine loop",
			func(s engine.Status) float64 { return float64(s.Queue.TotalReceived) }),
		counter("view_cache_hits_total", "View pages served from the cache",
			func(s engine.Status) float64 { return float64(s.ViewCache.Hits) }),
		counter("view_cache_misses_total", "View pages recomputed",
			func(s engine.Status) float64 { return float64(s.ViewCache.Misses) }),
	)
}

// WatchPool registers pgxpool stats collectors.
func (m *Metrics) WatchPool(name string, pool *pgxpool.Pool) {
	labels := prometheus.Labels{"pool": name}
	gauge := func(metric, help string, f func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "db_pool",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return f(pool.Stat()) })
	}

	m.registry.MustRegister(
		gauge("total_conns", "Connections in the pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("acquired_conns", "Connections currently acquired",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("idle_conns", "Idle connections",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("max_conns", "Maximum pool size",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	)
}
