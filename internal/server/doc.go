// Package server exposes the feed to consumers over HTTP.
//
// Routes:
//   - GET  /health, /version, /metrics
//   - GET  /api/v1/opportunities: one page of the derived view
//   - GET  /api/v1/view, PUT /api/v1/view: stored view parameters
//   - GET  /api/v1/filters: catalog exchanges and assets
//   - GET  /api/v1/exchanges/status: collaborator exchange statuses
//   - GET  /api/v1/feed/status, POST /api/v1/feed/start, POST /api/v1/feed/stop
package server
