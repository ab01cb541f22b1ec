package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/model"
	"github.com/rickgao/arbfeed/internal/view"
)

// stubClient is a connection.Client fed by the test.
type stubClient struct {
	msgs chan connection.TimestampedMessage
	errs chan error
	done chan struct{}

	once   sync.Once
	mu     sync.Mutex
	reason connection.CloseReason
}

func newStubClient() *stubClient {
	return &stubClient{
		msgs: make(chan connection.TimestampedMessage, 16),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
}

func (c *stubClient) Connect(context.Context) error                  { return nil }
func (c *stubClient) Messages() <-chan connection.TimestampedMessage { return c.msgs }
func (c *stubClient) Errors() <-chan error                           { return c.errs }
func (c *stubClient) Done() <-chan struct{}                          { return c.done }

func (c *stubClient) Close() error {
	c.end(connection.CloseUserInitiated)
	return nil
}

func (c *stubClient) CloseReason() connection.CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *stubClient) end(reason connection.CloseReason) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *stubClient) push(data string) {
	c.msgs <- connection.TimestampedMessage{Data: []byte(data), ReceivedAt: time.Now()}
}

type stubDialer struct {
	mu      sync.Mutex
	clients []*stubClient
}

func (d *stubDialer) Dial(context.Context) (connection.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newStubClient()
	d.clients = append(d.clients, c)
	return c, nil
}

func (d *stubDialer) last() *stubClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type dataEvent struct {
	count, added, updated, vanished int
}

type recordingObserver struct {
	mu          sync.Mutex
	states      []connection.State
	errKinds    []model.ErrorKind
	data        []dataEvent
	transitions []model.Transition
}

func (o *recordingObserver) OnStatusChange(s connection.State) {
	o.mu.Lock()
	o.states = append(o.states, s)
	o.mu.Unlock()
}

func (o *recordingObserver) OnError(kind model.ErrorKind, _ string) {
	o.mu.Lock()
	o.errKinds = append(o.errKinds, kind)
	o.mu.Unlock()
}

func (o *recordingObserver) OnData(count, added, updated, vanished int) {
	o.mu.Lock()
	o.data = append(o.data, dataEvent{count, added, updated, vanished})
	o.mu.Unlock()
}

func (o *recordingObserver) OnTransitions(ts []model.Transition) {
	o.mu.Lock()
	o.transitions = append(o.transitions, ts...)
	o.mu.Unlock()
}

func (o *recordingObserver) dataEvents() []dataEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]dataEvent(nil), o.data...)
}

func (o *recordingObserver) errorKinds() []model.ErrorKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.ErrorKind(nil), o.errKinds...)
}

func (o *recordingObserver) transitionKinds() []model.TransitionKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.TransitionKind, len(o.transitions))
	for i, t := range o.transitions {
		out[i] = t.Kind
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

type harness struct {
	engine   *Engine
	dialer   *stubDialer
	clock    *fakeClock
	observer *recordingObserver
	cancel   context.CancelFunc
	done     chan error
}

func startHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		dialer:   &stubDialer{},
		clock:    &fakeClock{now: time.UnixMilli(1_700_000_000_000)},
		observer: &recordingObserver{},
		done:     make(chan error, 1),
	}

	cfg := DefaultConfig()
	cfg.SweepInterval = time.Hour // sweeps are triggered by hand

	h.engine = New(cfg, h.observer, nil,
		WithClock(h.clock.Now),
		WithManagerOptions(connection.WithDialer(h.dialer)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.engine.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})

	eventually(t, "connected", func() bool {
		return h.engine.ConnectionState() == connection.StateConnected
	})
	return h
}

const snapshotA = `[{"id":"a","symbol":"BTC/USDT","buy_exchange":"binance","sell_exchange":"kraken","net_profit_pct":1.0,"timestamp":1700000000000}]`

func TestEngine_ReconcilesMessages(t *testing.T) {
	h := startHarness(t)

	h.dialer.last().push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })

	rec, ok := h.engine.Snapshot().Get("a")
	if !ok || !rec.IsActive {
		t.Fatalf("record a = %+v, %v", rec, ok)
	}
	if rec.AppearedAt != 1_700_000_000_000 {
		t.Errorf("AppearedAt = %d, want clock time", rec.AppearedAt)
	}

	eventually(t, "data event", func() bool { return len(h.observer.dataEvents()) == 1 })
	if got := h.observer.dataEvents()[0]; got != (dataEvent{1, 1, 0, 0}) {
		t.Errorf("OnData = %+v, want {1 1 0 0}", got)
	}

	st := h.engine.Status()
	if !st.Running || st.Batches != 1 || st.Active != 1 {
		t.Errorf("Status = %+v", st)
	}
}

func TestEngine_VanishAndSweep(t *testing.T) {
	h := startHarness(t)
	c := h.dialer.last()

	c.push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })

	h.clock.Advance(time.Second)
	c.push(`[]`)
	eventually(t, "a inactive", func() bool { return h.engine.Snapshot().ActiveCount() == 0 })

	if got := h.engine.Snapshot().Len(); got != 1 {
		t.Fatalf("Len() after empty snapshot = %d, want 1", got)
	}

	// Not yet past the sticky period.
	h.clock.Advance(h.engine.cfg.Reconcile.StickyDuration)
	h.engine.SweepNow()
	time.Sleep(20 * time.Millisecond)
	if got := h.engine.Snapshot().Len(); got != 1 {
		t.Fatalf("Len() at sticky boundary = %d, want 1", got)
	}

	h.clock.Advance(time.Millisecond)
	h.engine.SweepNow()
	eventually(t, "eviction", func() bool { return h.engine.Snapshot().Len() == 0 })

	want := []model.TransitionKind{model.TransitionAdded, model.TransitionVanished, model.TransitionEvicted}
	eventually(t, "transitions", func() bool { return len(h.observer.transitionKinds()) == 3 })
	got := h.observer.transitionKinds()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, got[i], want[i])
		}
	}
	if h.engine.Status().Evicted != 1 {
		t.Errorf("Evicted = %d, want 1", h.engine.Status().Evicted)
	}
}

func TestEngine_DataFormatError(t *testing.T) {
	h := startHarness(t)

	h.dialer.last().push(`{"error":"upstream failure"}`)
	eventually(t, "error event", func() bool { return len(h.observer.errorKinds()) == 1 })

	if got := h.observer.errorKinds()[0]; got != model.KindDataFormat {
		t.Errorf("kind = %s, want data_format", got)
	}
	if got := h.engine.ConnectionState(); got != connection.StateConnected {
		t.Errorf("ConnectionState() = %s, want connected", got)
	}
	if got := h.engine.Status().DataErrors; got != 1 {
		t.Errorf("DataErrors = %d, want 1", got)
	}
}

func TestEngine_MalformedBatchIsNoop(t *testing.T) {
	h := startHarness(t)
	c := h.dialer.last()

	c.push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })
	gen := h.engine.Snapshot().Generation()

	c.push(`[{"symbol":"ETH/USDT"},{"id":"x"}]`)
	eventually(t, "dropped records counted", func() bool { return h.engine.Status().DroppedRecords == 2 })

	s := h.engine.Snapshot()
	if s.Generation() != gen || s.ActiveCount() != 1 {
		t.Errorf("state changed by malformed batch: gen %d -> %d, active %d", gen, s.Generation(), s.ActiveCount())
	}
}

func TestEngine_StopKeepsRecords(t *testing.T) {
	h := startHarness(t)

	h.dialer.last().push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })

	if err := h.engine.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	eventually(t, "disconnected", func() bool {
		return h.engine.ConnectionState() == connection.StateDisconnected
	})

	if got := h.engine.Snapshot().Len(); got != 1 {
		t.Errorf("Len() after Stop = %d, want 1", got)
	}
	if h.engine.Status().Manager.Wanted {
		t.Error("stream should not be wanted after Stop")
	}

	// Start again opens a fresh stream.
	if err := h.engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	eventually(t, "reconnected", func() bool {
		return h.engine.ConnectionState() == connection.StateConnected
	})
}

func TestEngine_SweepContinuesAfterStop(t *testing.T) {
	h := startHarness(t)
	c := h.dialer.last()

	c.push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })
	c.push(`[]`)
	eventually(t, "a inactive", func() bool { return h.engine.Snapshot().ActiveCount() == 0 })

	if err := h.engine.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	eventually(t, "disconnected", func() bool {
		return h.engine.ConnectionState() == connection.StateDisconnected
	})
	if got := h.engine.Snapshot().Len(); got != 1 {
		t.Fatalf("Len() after Stop = %d, want 1", got)
	}

	h.clock.Advance(h.engine.cfg.Reconcile.StickyDuration + time.Millisecond)
	h.engine.SweepNow()
	eventually(t, "eviction after stop", func() bool { return h.engine.Snapshot().Len() == 0 })
}

func TestEngine_WrongTypedOptionalFieldKeepsRecord(t *testing.T) {
	h := startHarness(t)
	c := h.dialer.last()

	c.push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })

	c.push(`[{"id":"b","symbol":"ETH/USDT","buy_exchange":"okx","sell_exchange":"bybit","net_profit_pct":2.0,"buy_price":"100.5"}]`)
	eventually(t, "record b", func() bool { return h.engine.Snapshot().Len() == 2 })

	s := h.engine.Snapshot()
	a, _ := s.Get("a")
	if a.IsActive {
		t.Error("a should have vanished")
	}
	b, ok := s.Get("b")
	if !ok || !b.IsActive {
		t.Fatalf("record b = %+v, %v", b, ok)
	}
	if b.BuyPrice != nil {
		t.Errorf("BuyPrice = %v, want nil", *b.BuyPrice)
	}
	if got := h.engine.Status().DroppedRecords; got != 0 {
		t.Errorf("DroppedRecords = %d, want 0", got)
	}
}

func TestEngine_GetPage(t *testing.T) {
	h := startHarness(t)

	h.dialer.last().push(`[
		{"id":"a","symbol":"BTC/USDT","buy_exchange":"binance","sell_exchange":"kraken","net_profit_pct":1.0},
		{"id":"b","symbol":"ETH/USDT","buy_exchange":"kraken","sell_exchange":"okx","net_profit_pct":2.0},
		{"id":"c","symbol":"SOL/USDT","buy_exchange":"okx","sell_exchange":"bybit","net_profit_pct":3.0}
	]`)
	eventually(t, "three records", func() bool { return h.engine.Snapshot().Len() == 3 })

	page := h.engine.GetPage()
	if page.TotalCount != 3 || page.Records[0].ID != "c" {
		t.Errorf("default page = %d records, first %s", page.TotalCount, page.Records[0].ID)
	}

	h.engine.SetViewParameters(view.Params{
		Exchanges: []string{"Kraken"},
		Sort:      view.Order{Key: view.SortNetProfit, Direction: view.Ascending},
		PageSize:  1,
		Page:      2,
	})

	page = h.engine.GetPage()
	if page.TotalCount != 2 || page.TotalPages != 2 {
		t.Errorf("TotalCount, TotalPages = %d, %d, want 2, 2", page.TotalCount, page.TotalPages)
	}
	if len(page.Records) != 1 || page.Records[0].ID != "b" {
		t.Errorf("page 2 = %+v", page.Records)
	}

	if got := h.engine.ViewParameters().Exchanges; len(got) != 1 || got[0] != "kraken" {
		t.Errorf("stored Exchanges = %v, want [kraken]", got)
	}
}

func TestEngine_StartBeforeRun(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	if err := e.Start(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Start() error = %v, want ErrNotRunning", err)
	}
	if e.Snapshot().Len() != 0 {
		t.Error("new engine should start empty")
	}
	if e.ConnectionState() != connection.StateDisconnected {
		t.Errorf("ConnectionState() = %s, want disconnected", e.ConnectionState())
	}
}

func TestEngine_RunTwice(t *testing.T) {
	h := startHarness(t)

	if err := h.engine.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestEngine_QueueStats(t *testing.T) {
	h := startHarness(t)

	h.dialer.last().push(snapshotA)
	eventually(t, "record a", func() bool { return h.engine.Snapshot().Len() == 1 })

	q := h.engine.Status().Queue
	if q.TotalReceived == 0 || q.TotalSent != q.TotalReceived-int64(q.Count) {
		t.Errorf("Queue = %+v", q)
	}
	if q.Capacity < DefaultConfig().QueueCapacity {
		t.Errorf("Capacity = %d, want >= %d", q.Capacity, DefaultConfig().QueueCapacity)
	}
}

func TestEngine_RunAfterShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoStart = false
	e := New(cfg, nil, nil, WithManagerOptions(connection.WithDialer(&stubDialer{})))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	eventually(t, "running", func() bool { return e.Status().Running })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	if e.SweepNow() {
		t.Error("SweepNow() after shutdown = true, want false")
	}
	if err := e.Run(context.Background()); !errors.Is(err, ErrShutDown) {
		t.Errorf("Run() after shutdown error = %v, want ErrShutDown", err)
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	m := MultiObserver{a, NopObserver{}, b}

	m.OnStatusChange(connection.StateConnected)
	m.OnError(model.KindTransport, "boom")
	m.OnData(1, 1, 0, 0)
	m.OnTransitions([]model.Transition{{Kind: model.TransitionAdded}})

	for i, o := range []*recordingObserver{a, b} {
		if len(o.states) != 1 || len(o.errKinds) != 1 || len(o.data) != 1 || len(o.transitions) != 1 {
			t.Errorf("observer %d did not receive every event", i)
		}
	}
}
