package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/model"
	"github.com/rickgao/arbfeed/internal/reconcile"
	"github.com/rickgao/arbfeed/internal/view"
)

// Errors
var (
	ErrNotRunning     = errors.New("engine is not running")
	ErrAlreadyRunning = errors.New("engine is already running")
	ErrShutDown       = errors.New("engine has shut down")
)

// Config holds engine configuration.
type Config struct {
	Connection    connection.ManagerConfig
	Reconcile     reconcile.Config
	SweepInterval time.Duration // Eviction sweep cadence
	StopTimeout   time.Duration // Max wait for the manager on Stop
	AutoStart     bool          // Start the stream as soon as Run begins
	View          view.Params   // Initial view parameters
	QueueCapacity int           // Initial event queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Connection:    connection.DefaultManagerConfig(),
		Reconcile:     reconcile.DefaultConfig(),
		SweepInterval: time.Minute,
		StopTimeout:   5 * time.Second,
		AutoStart:     true,
		View:          view.DefaultParams(),
		QueueCapacity: 64,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for reconcile and sweep timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithManagerOptions passes options to the Connection Manager.
func WithManagerOptions(opts ...connection.ManagerOption) Option {
	return func(e *Engine) {
		e.managerOpts = append(e.managerOpts, opts...)
	}
}

// Status is a point-in-time summary of the engine.
type Status struct {
	Running        bool                    `json:"running"`
	Connection     connection.State        `json:"connection"`
	Records        int                     `json:"records"`
	Active         int                     `json:"active"`
	Generation     uint64                  `json:"generation"`
	UpdatedAt      int64                   `json:"updated_at"`
	Batches        uint64                  `json:"batches"`
	DataErrors     uint64                  `json:"data_errors"`
	DroppedRecords uint64                  `json:"dropped_records"`
	Evicted        uint64                  `json:"evicted"`
	Manager        connection.ManagerStats `json:"manager"`
	View           view.Params             `json:"view"`
	ViewCache      view.CacheStats         `json:"view_cache"`
	Queue          QueueStats              `json:"queue"`
}

// Engine is the reconciliation core plus its consumer controls.
type Engine struct {
	cfg         Config
	logger      *slog.Logger
	observer    Observer
	transitions TransitionObserver
	now         func() time.Time
	managerOpts []connection.ManagerOption

	reconciler *reconcile.Reconciler
	manager    *connection.Manager
	events     *queue[event]
	cache      *view.Cache

	state  atomic.Pointer[reconcile.State]
	status atomic.Value // connection.State

	paramsMu sync.RWMutex
	params   view.Params

	runMu   sync.Mutex
	running bool
	done    bool
	runCtx  context.Context

	batches        atomic.Uint64
	dataErrors     atomic.Uint64
	droppedRecords atomic.Uint64
	evicted        atomic.Uint64
}

// New creates an Engine. observer may be nil.
func New(cfg Config, observer Observer, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		observer:   observer,
		now:        time.Now,
		reconciler: reconcile.New(cfg.Reconcile, logger.With("component", "reconciler")),
		events:     newQueue[event](cfg.QueueCapacity),
		cache:      view.NewCache(),
		params:     cfg.View.Normalize(),
	}
	if to, ok := observer.(TransitionObserver); ok {
		e.transitions = to
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state.Store(reconcile.EmptyState())
	e.status.Store(connection.StateDisconnected)
	e.manager = connection.NewManager(
		cfg.Connection,
		queueHandler{q: e.events},
		logger.With("component", "connection"),
		e.managerOpts...,
	)

	return e
}

// Run processes events until ctx is cancelled. The stream is started
// immediately when Config.AutoStart is set. On return the stream is stopped
// and the event queue closed; Run cannot be called again.
func (e *Engine) Run(ctx context.Context) error {
	e.runMu.Lock()
	if e.running {
		e.runMu.Unlock()
		return ErrAlreadyRunning
	}
	if e.done {
		e.runMu.Unlock()
		return ErrShutDown
	}
	e.running = true
	e.runCtx = ctx
	e.runMu.Unlock()

	defer func() {
		e.runMu.Lock()
		e.running = false
		e.done = true
		e.runCtx = nil
		e.runMu.Unlock()
	}()

	e.logger.Info("engine started",
		"sweep_interval", e.cfg.SweepInterval,
		"sticky", e.cfg.Reconcile.StickyDuration,
	)

	if e.cfg.AutoStart {
		if err := e.manager.Start(ctx); err != nil {
			return err
		}
	}

	e.loop(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), e.cfg.StopTimeout)
	defer cancel()
	if err := e.manager.Stop(stopCtx); err != nil {
		e.logger.Warn("connection manager stop timed out", "error", err)
	}

	// Hand over whatever the manager reported while stopping.
	e.dispatch(e.events.Drain())
	e.events.Close()

	e.logger.Info("engine stopped")
	return nil
}

// Start requests the live stream. It is a no-op while the stream is open or
// opening.
func (e *Engine) Start() error {
	e.runMu.Lock()
	ctx := e.runCtx
	e.runMu.Unlock()

	if ctx == nil {
		return ErrNotRunning
	}
	return e.manager.Start(ctx)
}

// Stop closes the live stream without reconnecting. Reconciled records stay
// queryable and keep aging out through the sweep.
func (e *Engine) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.StopTimeout)
	defer cancel()
	return e.manager.Stop(ctx)
}

// SetViewParameters replaces the view parameters used by GetPage.
func (e *Engine) SetViewParameters(p view.Params) {
	p = p.Normalize()

	e.paramsMu.Lock()
	e.params = p
	e.paramsMu.Unlock()
}

// ViewParameters returns the current (normalized) view parameters.
func (e *Engine) ViewParameters() view.Params {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return e.params
}

// GetPage returns the page for the current view parameters.
func (e *Engine) GetPage() view.Page {
	return e.cache.Page(e.state.Load(), e.ViewParameters())
}

// Query returns the page for p without changing the stored parameters.
func (e *Engine) Query(p view.Params) view.Page {
	return e.cache.Page(e.state.Load(), p)
}

// Snapshot returns the current immutable state.
func (e *Engine) Snapshot() *reconcile.State {
	return e.state.Load()
}

// ConnectionState returns the last reported connection state.
func (e *Engine) ConnectionState() connection.State {
	return e.status.Load().(connection.State)
}

// Status returns a summary of the engine.
func (e *Engine) Status() Status {
	e.runMu.Lock()
	running := e.running
	e.runMu.Unlock()

	s := e.state.Load()
	return Status{
		Running:        running,
		Connection:     e.ConnectionState(),
		Records:        s.Len(),
		Active:         s.ActiveCount(),
		Generation:     s.Generation(),
		UpdatedAt:      s.UpdatedAt(),
		Batches:        e.batches.Load(),
		DataErrors:     e.dataErrors.Load(),
		DroppedRecords: e.droppedRecords.Load(),
		Evicted:        e.evicted.Load(),
		Manager:        e.manager.Stats(),
		View:           e.ViewParameters(),
		ViewCache:      e.cache.Stats(),
		Queue:          e.events.Stats(),
	}
}

// SweepNow queues an eviction sweep ahead of the next tick. It returns false
// once Run has returned.
func (e *Engine) SweepNow() bool {
	return e.events.Send(event{kind: eventSweep})
}

func (e *Engine) loop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.events.Ready():
			e.dispatch(e.events.Drain())
		case <-ticker.C:
			e.sweep()
		}
	}
}

func (e *Engine) dispatch(events []event) {
	for _, ev := range events {
		switch ev.kind {
		case eventMessage:
			e.handleMessage(ev.msg)
		case eventStatus:
			e.status.Store(ev.state)
			e.observer.OnStatusChange(ev.state)
		case eventError:
			e.observer.OnError(model.KindOf(ev.err), ev.err.Error())
		case eventReconnect:
			e.logger.Info("stream reconnect pending", "delay", ev.delay)
		case eventSweep:
			e.sweep()
		}
	}
}

func (e *Engine) handleMessage(msg connection.TimestampedMessage) {
	batch, err := reconcile.DecodeBatch(msg.Data)
	if err != nil {
		e.dataErrors.Add(1)
		e.observer.OnError(model.KindOf(err), err.Error())
		return
	}

	for _, d := range batch.Dropped {
		e.logger.Warn("dropping malformed record", "index", d.Index, "id", d.ID, "reason", d.Reason)
	}
	e.droppedRecords.Add(uint64(len(batch.Dropped)))

	if batch.Malformed() {
		e.logger.Warn("no valid records in batch, ignoring", "elements", batch.Total)
		return
	}

	now := e.now().UnixMilli()
	prev := e.state.Load()
	next, diff := e.reconciler.Reconcile(prev, batch.Records, now)
	if next != prev {
		e.state.Store(next)
	}
	e.batches.Add(1)

	if e.transitions != nil && !diff.Empty() {
		e.transitions.OnTransitions(transitionsFor(next, diff, now))
	}
	e.observer.OnData(next.Len(), len(diff.Added), diff.UpdatedCount(), len(diff.Vanished))
}

func (e *Engine) sweep() {
	now := e.now().UnixMilli()
	prev := e.state.Load()
	next, evicted := e.reconciler.Sweep(prev, now)
	if len(evicted) == 0 {
		return
	}
	e.state.Store(next)
	e.evicted.Add(uint64(len(evicted)))

	if e.transitions != nil {
		out := make([]model.Transition, 0, len(evicted))
		for _, id := range evicted {
			rec, _ := prev.Get(id)
			out = append(out, model.Transition{Kind: model.TransitionEvicted, Record: rec, At: now})
		}
		e.transitions.OnTransitions(out)
	}
	e.observer.OnData(next.Len(), 0, 0, 0)
}

func transitionsFor(s *reconcile.State, diff reconcile.Diff, now int64) []model.Transition {
	out := make([]model.Transition, 0, len(diff.Added)+diff.UpdatedCount()+len(diff.Vanished))
	add := func(kind model.TransitionKind, ids []string) {
		for _, id := range ids {
			rec, _ := s.Get(id)
			out = append(out, model.Transition{Kind: kind, Record: rec, At: now})
		}
	}
	add(model.TransitionAdded, diff.Added)
	add(model.TransitionUpdated, diff.Updated)
	add(model.TransitionReappeared, diff.Reappeared)
	add(model.TransitionVanished, diff.Vanished)
	return out
}
