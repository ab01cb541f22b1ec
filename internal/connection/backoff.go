package connection

import "time"

// Backoff yields reconnect delays that double on every call to Next,
// capped at Max. It is not safe for concurrent use.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	current time.Duration
}

// NewBackoff creates a Backoff starting at initial.
func NewBackoff(initial, maxWait time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if maxWait < initial {
		maxWait = initial
	}
	return &Backoff{Initial: initial, Max: maxWait, current: initial}
}

// Next returns the delay to use now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	d := b.Peek()
	next := d * 2
	if next > b.Max || next <= 0 {
		next = b.Max
	}
	b.current = next
	return d
}

// Peek returns the delay Next would return without advancing.
func (b *Backoff) Peek() time.Duration {
	if b.current <= 0 {
		return b.Initial
	}
	return b.current
}

// Reset returns the delay to Initial.
func (b *Backoff) Reset() {
	b.current = b.Initial
}
