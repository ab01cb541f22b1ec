package connection

import (
	"context"
	"log/slog"
	"time"
)

// Dialer opens a connected Client.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Client, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Client, error) {
	return f(ctx)
}

// WebSocketDialer dials the configured URL with a new Client per attempt.
type WebSocketDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer for cfg.URL.
func NewWebSocketDialer(cfg ClientConfig, logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketDialer{cfg: cfg, logger: logger}
}

// Dial connects a fresh Client.
func (d *WebSocketDialer) Dial(ctx context.Context) (Client, error) {
	c := NewClient(d.cfg, d.logger)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Timer is a pending deferred action.
type Timer interface {
	// Stop cancels the action. It returns false if the action already ran
	// or was already stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer heap.
var SystemScheduler Scheduler = systemScheduler{}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
