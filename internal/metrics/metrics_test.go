package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/model"
)

// value returns the sample of metric name whose labels include want.
func value(t *testing.T, g prometheus.Gatherer, name string, want map[string]string) float64 {
	t.Helper()

	mfs, err := g.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return 0
}

func TestMetrics_ConnectionState(t *testing.T) {
	m := New()
	reg := m.Registry()

	if got := value(t, reg, "arbfeed_connection_state", map[string]string{"state": "disconnected"}); got != 1 {
		t.Errorf("disconnected = %v, want 1", got)
	}

	m.OnStatusChange(connection.StateConnected)
	if got := value(t, reg, "arbfeed_connection_state", map[string]string{"state": "connected"}); got != 1 {
		t.Errorf("connected = %v, want 1", got)
	}
	if got := value(t, reg, "arbfeed_connection_state", map[string]string{"state": "disconnected"}); got != 0 {
		t.Errorf("disconnected = %v, want 0", got)
	}
}

func TestMetrics_Events(t *testing.T) {
	m := New()
	reg := m.Registry()

	m.OnError(model.KindDataFormat, "not a list")
	m.OnError(model.KindDataFormat, "not a list")
	m.OnError(model.KindTransport, "reset")
	m.OnData(3, 3, 0, 0)
	m.OnData(2, 0, 1, 1)
	m.OnTransitions([]model.Transition{
		{Kind: model.TransitionVanished},
		{Kind: model.TransitionEvicted},
		{Kind: model.TransitionEvicted},
	})

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"arbfeed_feed_errors_total", map[string]string{"kind": "data_format"}, 2},
		{"arbfeed_feed_errors_total", map[string]string{"kind": "transport"}, 1},
		{"arbfeed_reconciled_batches_total", nil, 2},
		{"arbfeed_records", nil, 2},
		{"arbfeed_record_changes_total", map[string]string{"change": "added"}, 3},
		{"arbfeed_record_changes_total", map[string]string{"change": "updated"}, 1},
		{"arbfeed_record_changes_total", map[string]string{"change": "vanished"}, 1},
		{"arbfeed_lifecycle_transitions_total", map[string]string{"kind": "evicted"}, 2},
		{"arbfeed_lifecycle_transitions_total", map[string]string{"kind": "vanished"}, 1},
	}
	for _, tt := range tests {
		if got := value(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

type staticStatus engine.Status

func (s staticStatus) Status() engine.Status { return engine.Status(s) }

func TestMetrics_WatchEngine(t *testing.T) {
	m := New()
	st := engine.Status{Records: 5, Active: 3, DroppedRecords: 7, Evicted: 2}
	st.Manager.Reconnects = 4
	st.ViewCache.Hits = 9
	st.Queue = engine.QueueStats{Count: 6, Capacity: 128, TotalReceived: 40, ResizeCount: 1}
	m.WatchEngine(staticStatus(st))

	reg := m.Registry()
	tests := map[string]float64{
		"arbfeed_engine_active_records":        3,
		"arbfeed_engine_vanished_records":      2,
		"arbfeed_engine_dropped_records_total": 7,
		"arbfeed_engine_evicted_records_total": 2,
		"arbfeed_engine_reconnects_total":      4,
		"arbfeed_engine_view_cache_hits_total": 9,
		"arbfeed_engine_queue_depth":           6,
		"arbfeed_engine_queue_capacity":        128,
		"arbfeed_engine_queue_resizes_total":   1,
		"arbfeed_engine_events_total":          40,
	}
	for name, want := range tests {
		if got := value(t, reg, name, nil); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OnError(model.KindConfigFetch, "timeout")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	for _, want := range []string{
		`arbfeed_feed_errors_total{kind="config_fetch"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
