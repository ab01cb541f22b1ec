// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single WebSocket stream carrying opportunity snapshots
//   - Runs the connecting/connected/errored/disconnected state machine
//   - Schedules reconnects with doubling backoff after unexpected closure
//   - Forwards every inbound message to a Handler in arrival order
package connection
