// Package poller keeps the collaborator catalog fresh.
//
// The Poller:
//   - Polls GET /status every 10 seconds for exchange connectivity
//   - Polls GET /api/v1/monitored_pairs every 5 minutes for the filter catalog
//   - Runs the two loops on independent tickers
//   - Reports failures as config_fetch errors and keeps the last good values
//
// Nothing here touches the reconciled record map.
package poller
