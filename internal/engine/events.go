package engine

import (
	"time"

	"github.com/rickgao/arbfeed/internal/connection"
)

type eventKind int

const (
	eventMessage eventKind = iota
	eventStatus
	eventError
	eventReconnect
	eventSweep
)

// event is one unit of work for the engine loop.
type event struct {
	kind  eventKind
	msg   connection.TimestampedMessage
	state connection.State
	err   error
	delay time.Duration
}

// queueHandler turns Connection Manager callbacks into queued events. Every
// callback only appends to the queue, so it never blocks the manager.
type queueHandler struct {
	q *queue[event]
}

func (h queueHandler) OnStatus(state connection.State) {
	h.q.Send(event{kind: eventStatus, state: state})
}

func (h queueHandler) OnError(err error) {
	h.q.Send(event{kind: eventError, err: err})
}

func (h queueHandler) OnMessage(msg connection.TimestampedMessage) {
	h.q.Send(event{kind: eventMessage, msg: msg})
}

func (h queueHandler) OnReconnectScheduled(delay time.Duration) {
	h.q.Send(event{kind: eventReconnect, delay: delay})
}
