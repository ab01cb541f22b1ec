// Package api is a REST client for the upstream scanner's collaborator endpoints.
//
// Endpoints:
//   - GET /status: service state and per-exchange connectivity
//   - GET /api/v1/monitored_pairs: exchange id to monitored symbols
//
// Requests are retried with jittered exponential backoff on 5xx and 429.
package api
