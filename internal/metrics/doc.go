// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Stream connection state, reconnects and feed errors by kind
//   - Reconciled batches and record lifecycle transitions
//   - Tracked records, active and vanished
//   - Database connection pool stats when the journal is enabled
//
// All collectors live on a private registry served by Handler.
package metrics
