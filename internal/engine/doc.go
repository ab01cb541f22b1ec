// Package engine ties the Connection Manager, the Reconciler and the view
// pipeline together behind the consumer controls.
//
// All mutations of the authoritative map happen on one goroutine: manager
// callbacks are queued, and the loop drains the queue and runs the eviction
// sweep in between. Readers load the current immutable State atomically.
package engine
