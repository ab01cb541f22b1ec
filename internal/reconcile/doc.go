// Package reconcile implements the Reconciler and its Equality Oracle.
//
// The Reconciler:
//   - Decodes each inbound snapshot and drops malformed records individually
//   - Diffs the snapshot against the previous State (added, updated, reappeared, vanished)
//   - Keeps vanished records for a sticky period before the sweep evicts them
//   - Publishes a new immutable State on every change; old States stay valid for readers
package reconcile
