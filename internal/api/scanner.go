package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickgao/arbfeed/internal/model"
)

const (
	statusPath         = "/status"
	monitoredPairsPath = "/api/v1/monitored_pairs"
)

// ServiceStatus is the scanner's self-reported state.
type ServiceStatus struct {
	Status           string                          `json:"status"`
	ServiceRunning   bool                            `json:"service_running"`
	ExchangeStatuses map[string]model.ExchangeStatus `json:"exchange_statuses"`
}

type serviceStatusResponse struct {
	Status           string            `json:"status"`
	ServiceRunning   bool              `json:"service_running"`
	ExchangeStatuses map[string]string `json:"exchange_statuses"`
}

// GetStatus fetches the scanner status. Unrecognized exchange status values
// map to model.ExchangeUnknown.
func (c *Client) GetStatus(ctx context.Context) (*ServiceStatus, error) {
	var resp serviceStatusResponse
	if err := c.get(ctx, statusPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	out := &ServiceStatus{
		Status:           resp.Status,
		ServiceRunning:   resp.ServiceRunning,
		ExchangeStatuses: make(map[string]model.ExchangeStatus, len(resp.ExchangeStatuses)),
	}
	for ex, s := range resp.ExchangeStatuses {
		out.ExchangeStatuses[ex] = model.ParseExchangeStatus(s)
	}
	return out, nil
}

// GetMonitoredPairs fetches the symbols monitored per exchange. Empty symbols
// are dropped; a null list becomes an empty one.
func (c *Client) GetMonitoredPairs(ctx context.Context) (model.MonitoredPairs, error) {
	var resp map[string][]string
	if err := c.get(ctx, monitoredPairsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get monitored pairs: %w", err)
	}

	out := make(model.MonitoredPairs, len(resp))
	for ex, symbols := range resp {
		kept := make([]string, 0, len(symbols))
		for _, s := range symbols {
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		out[ex] = kept
	}
	return out, nil
}
