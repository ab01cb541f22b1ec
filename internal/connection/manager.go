package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/arbfeed/internal/model"
)

// Handler receives Manager events. Callbacks are invoked in event order
// while the Manager holds its lock: they must not block and must not call
// back into the Manager.
type Handler interface {
	OnStatus(state State)
	OnError(err error)
	OnMessage(msg TimestampedMessage)
	OnReconnectScheduled(delay time.Duration)
}

type noopHandler struct{}

func (noopHandler) OnStatus(State)                     {}
func (noopHandler) OnError(error)                      {}
func (noopHandler) OnMessage(TimestampedMessage)       {}
func (noopHandler) OnReconnectScheduled(time.Duration) {}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d Dialer) ManagerOption {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithScheduler replaces the system timer scheduler.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		m.sched = s
	}
}

// Manager owns the single logical stream and its reconnect policy.
//
// At most one transport handle is open or opening, and at most one
// reconnect timer is pending, at any time.
type Manager struct {
	cfg     ManagerConfig
	dialer  Dialer
	sched   Scheduler
	handler Handler
	logger  *slog.Logger

	wg sync.WaitGroup

	mu      sync.Mutex
	state   State
	wanted  bool
	session uint64 // bumped by every Start from a stopped state
	gen     uint64 // bumped by every attempt and by Stop; stale events are ignored
	client  Client
	backoff *Backoff

	cancelAttempt context.CancelFunc
	sessionCtx    context.Context
	unwatch       func() bool

	timer    Timer
	timerSeq uint64

	attempts    uint64
	connects    uint64
	reconnects  uint64
	messages    uint64
	lastError   string
	connectedAt time.Time
}

// NewManager creates a new Connection Manager in the disconnected state.
func NewManager(cfg ManagerConfig, handler Handler, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = noopHandler{}
	}

	m := &Manager{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		sched:   SystemScheduler,
		state:   StateDisconnected,
		backoff: NewBackoff(cfg.ReconnectBaseWait, cfg.ReconnectMaxWait),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewWebSocketDialer(cfg.Client, logger)
	}
	return m
}

// Start requests the stream. ctx bounds the session: when it is cancelled
// the Manager stops as if Stop had been called. Start is a no-op while a
// connection is open or opening, but it always cancels a pending reconnect
// timer.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.wanted {
		m.session++
		session := m.session
		m.sessionCtx = ctx
		m.unwatch = context.AfterFunc(ctx, func() {
			m.stopSession(session)
		})
	}
	m.wanted = true
	m.cancelTimerLocked()

	if m.attemptLiveLocked() {
		m.logger.Debug("start ignored, connection already active", "state", m.state)
		return nil
	}

	m.connectLocked()
	return nil
}

// Stop ends the session: the pending timer is cancelled, the live transport
// is detached and closed, and no reconnect happens until the next Start.
// It waits for attempt goroutines to exit or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	client := m.stopLocked()
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, connection goroutines still running")
		return ctx.Err()
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		State:       m.state,
		Wanted:      m.wanted,
		Attempts:    m.attempts,
		Connects:    m.connects,
		Reconnects:  m.reconnects,
		Messages:    m.messages,
		NextDelay:   m.backoff.Peek(),
		Pending:     m.timer != nil,
		LastError:   m.lastError,
		ConnectedAt: m.connectedAt,
	}
}

func (m *Manager) stopSession(session uint64) {
	m.mu.Lock()
	if session != m.session || !m.wanted {
		m.mu.Unlock()
		return
	}
	m.logger.Info("session context done, stopping stream")
	client := m.stopLocked()
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
}

// stopLocked detaches the session and returns the live client, which the
// caller closes after releasing the lock.
func (m *Manager) stopLocked() Client {
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	m.wanted = false
	m.cancelTimerLocked()

	// Detach before closing so the close cannot drive a reconnect.
	m.gen++
	if m.cancelAttempt != nil {
		m.cancelAttempt()
		m.cancelAttempt = nil
	}
	client := m.client
	m.client = nil

	m.backoff.Reset()
	m.connectedAt = time.Time{}
	m.setStateLocked(StateDisconnected)
	return client
}

func (m *Manager) connectLocked() {
	m.gen++
	gen := m.gen
	m.attempts++

	ctx, cancel := context.WithCancel(m.sessionCtx)
	m.cancelAttempt = cancel

	attemptID := uuid.NewString()
	m.setStateLocked(StateConnecting)

	m.wg.Add(1)
	go m.run(ctx, gen, m.logger.With("attempt_id", attemptID))
}

// run dials and then pumps one connection until it ends.
func (m *Manager) run(ctx context.Context, gen uint64, logger *slog.Logger) {
	defer m.wg.Done()

	logger.Info("connecting")
	client, err := m.dialer.Dial(ctx)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if client != nil {
			client.Close()
		}
		return
	}
	if err != nil {
		logger.Warn("connection attempt failed", "error", err)
		m.transportErrorLocked(err)
		m.closedLocked(CloseNetworkError)
		m.mu.Unlock()
		return
	}

	m.client = client
	m.connects++
	m.connectedAt = time.Now()
	m.backoff.Reset()
	m.cancelTimerLocked()
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	logger.Info("connected")
	m.pump(gen, client, logger)
}

func (m *Manager) pump(gen uint64, client Client, logger *slog.Logger) {
	for {
		select {
		case msg := <-client.Messages():
			m.deliver(gen, msg)

		case err := <-client.Errors():
			m.transportError(gen, err)

		case <-client.Done():
			// Flush what arrived before the close, in order.
			for {
				select {
				case msg := <-client.Messages():
					m.deliver(gen, msg)
					continue
				case err := <-client.Errors():
					m.transportError(gen, err)
					continue
				default:
				}
				break
			}

			reason := client.CloseReason()
			logger.Info("connection closed", "reason", reason)

			m.mu.Lock()
			if gen == m.gen {
				m.client = nil
				m.connectedAt = time.Time{}
				m.closedLocked(reason)
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *Manager) deliver(gen uint64, msg TimestampedMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.messages++
	m.handler.OnMessage(msg)
}

func (m *Manager) transportError(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.transportErrorLocked(err)
}

func (m *Manager) transportErrorLocked(err error) {
	m.lastError = err.Error()
	m.setStateLocked(StateErrored)
	m.handler.OnError(model.NewFeedError(model.KindTransport, err))
}

// closedLocked handles the end of the current transport handle.
func (m *Manager) closedLocked(reason CloseReason) {
	if m.cancelAttempt != nil {
		m.cancelAttempt()
		m.cancelAttempt = nil
	}
	m.setStateLocked(StateDisconnected)

	if !reason.Unexpected() || !m.wanted {
		m.backoff.Reset()
		return
	}
	m.scheduleReconnectLocked()
}

func (m *Manager) scheduleReconnectLocked() {
	if m.timer != nil {
		return
	}

	delay := m.backoff.Next()
	m.reconnects++
	m.timerSeq++
	seq := m.timerSeq

	m.timer = m.sched.AfterFunc(delay, func() {
		m.fireReconnect(seq)
	})

	m.logger.Info("reconnect scheduled", "delay", delay, "next_delay", m.backoff.Peek())
	m.handler.OnReconnectScheduled(delay)
}

func (m *Manager) fireReconnect(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.timerSeq || m.timer == nil {
		return
	}
	m.timer = nil

	if !m.wanted || m.attemptLiveLocked() {
		return
	}
	m.connectLocked()
}

// attemptLiveLocked reports whether a transport handle is open or opening.
// An errored handle stays live until its close is observed.
func (m *Manager) attemptLiveLocked() bool {
	return m.cancelAttempt != nil
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerSeq++
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	prev := m.state
	m.state = s
	m.logger.Debug("connection state changed", "from", prev, "to", s)
	m.handler.OnStatus(s)
}
