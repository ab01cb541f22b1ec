package poller

import (
	"maps"
	"sync"
	"time"

	"github.com/rickgao/arbfeed/internal/model"
)

// Catalog holds the latest collaborator data. It is safe for concurrent use.
type Catalog struct {
	mu sync.RWMutex

	pairs          model.MonitoredPairs
	exchanges      []string
	assets         []string
	pairsFetchedAt time.Time

	statuses        map[string]model.ExchangeStatus
	serviceRunning  bool
	statusFetchedAt time.Time

	lastError   string
	lastErrorAt time.Time
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		pairs:    model.MonitoredPairs{},
		statuses: map[string]model.ExchangeStatus{},
	}
}

// SetPairs replaces the monitored pairs.
func (c *Catalog) SetPairs(p model.MonitoredPairs, at time.Time) {
	p = maps.Clone(p)
	if p == nil {
		p = model.MonitoredPairs{}
	}
	exchanges, assets := p.Exchanges(), p.Assets()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs = p
	c.exchanges = exchanges
	c.assets = assets
	c.pairsFetchedAt = at
}

// SetStatuses replaces the exchange statuses.
func (c *Catalog) SetStatuses(statuses map[string]model.ExchangeStatus, running bool, at time.Time) {
	statuses = maps.Clone(statuses)
	if statuses == nil {
		statuses = map[string]model.ExchangeStatus{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = statuses
	c.serviceRunning = running
	c.statusFetchedAt = at
}

// SetError records the most recent fetch failure.
func (c *Catalog) SetError(err error, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err.Error()
	c.lastErrorAt = at
}

// Pairs returns a copy of the monitored pairs.
func (c *Catalog) Pairs() model.MonitoredPairs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.pairs)
}

// Exchanges returns the monitored exchange ids, sorted.
func (c *Catalog) Exchanges() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.exchanges...)
}

// Assets returns the distinct monitored base assets, sorted.
func (c *Catalog) Assets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.assets...)
}

// Statuses returns a copy of the exchange statuses.
func (c *Catalog) Statuses() map[string]model.ExchangeStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.statuses)
}

// Snapshot is a point-in-time view of the Catalog.
type Snapshot struct {
	Exchanges       []string                        `json:"exchanges"`
	Assets          []string                        `json:"assets"`
	Statuses        map[string]model.ExchangeStatus `json:"exchange_statuses"`
	ServiceRunning  bool                            `json:"service_running"`
	PairsFetchedAt  time.Time                       `json:"pairs_fetched_at"`
	StatusFetchedAt time.Time                       `json:"status_fetched_at"`
	LastError       string                          `json:"last_error,omitempty"`
	LastErrorAt     time.Time                       `json:"last_error_at"`
}

// Snapshot returns a consistent copy of everything in the Catalog.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Exchanges:       append([]string(nil), c.exchanges...),
		Assets:          append([]string(nil), c.assets...),
		Statuses:        maps.Clone(c.statuses),
		ServiceRunning:  c.serviceRunning,
		PairsFetchedAt:  c.pairsFetchedAt,
		StatusFetchedAt: c.statusFetchedAt,
		LastError:       c.lastError,
		LastErrorAt:     c.lastErrorAt,
	}
}

// Fresh reports whether both polls succeeded within maxAge of now.
func (s Snapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	if s.PairsFetchedAt.IsZero() || s.StatusFetchedAt.IsZero() {
		return false
	}
	return now.Sub(s.PairsFetchedAt) <= maxAge && now.Sub(s.StatusFetchedAt) <= maxAge
}
