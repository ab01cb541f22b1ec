package engine

import (
	"context"
	"log/slog"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/model"
)

// Observer receives consumer-facing events from the engine loop. Callbacks
// run on the loop goroutine and should return promptly.
type Observer interface {
	OnStatusChange(state connection.State)
	OnError(kind model.ErrorKind, message string)
	OnData(count, added, updated, vanished int)
}

// TransitionObserver is implemented by observers that want every record
// lifecycle change, including evictions.
type TransitionObserver interface {
	OnTransitions(transitions []model.Transition)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnStatusChange(state connection.State) {
	for _, o := range m {
		o.OnStatusChange(state)
	}
}

func (m MultiObserver) OnError(kind model.ErrorKind, message string) {
	for _, o := range m {
		o.OnError(kind, message)
	}
}

func (m MultiObserver) OnData(count, added, updated, vanished int) {
	for _, o := range m {
		o.OnData(count, added, updated, vanished)
	}
}

// OnTransitions forwards to members that implement TransitionObserver.
func (m MultiObserver) OnTransitions(transitions []model.Transition) {
	for _, o := range m {
		if to, ok := o.(TransitionObserver); ok {
			to.OnTransitions(transitions)
		}
	}
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnStatusChange(connection.State) {}
func (NopObserver) OnError(model.ErrorKind, string) {}
func (NopObserver) OnData(int, int, int, int)       {}

// LogObserver logs events with slog.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnStatusChange(state connection.State) {
	level := slog.LevelInfo
	if state == connection.StateErrored {
		level = slog.LevelWarn
	}
	o.logger.Log(context.Background(), level, "feed status changed", "status", state)
}

func (o *LogObserver) OnError(kind model.ErrorKind, message string) {
	o.logger.Warn("feed error", "kind", kind, "error", message)
}

func (o *LogObserver) OnData(count, added, updated, vanished int) {
	if added == 0 && updated == 0 && vanished == 0 {
		return
	}
	o.logger.Debug("feed data",
		"records", count,
		"added", added,
		"updated", updated,
		"vanished", vanished,
	)
}
