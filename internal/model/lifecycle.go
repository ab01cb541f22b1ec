package model

// TransitionKind is a record lifecycle change.
type TransitionKind string

const (
	TransitionAdded      TransitionKind = "added"
	TransitionUpdated    TransitionKind = "updated"
	TransitionReappeared TransitionKind = "reappeared"
	TransitionVanished   TransitionKind = "vanished"
	TransitionEvicted    TransitionKind = "evicted"
)

// Transition is one lifecycle change of one record. Record is the state
// after the change, except for evictions where it is the last state held.
type Transition struct {
	Kind   TransitionKind
	Record Record
	At     int64 // ms since epoch
}
