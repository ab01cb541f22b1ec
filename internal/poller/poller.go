package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/arbfeed/internal/api"
	"github.com/rickgao/arbfeed/internal/model"
)

// Source fetches collaborator data. *api.Client implements it.
type Source interface {
	GetStatus(ctx context.Context) (*api.ServiceStatus, error)
	GetMonitoredPairs(ctx context.Context) (model.MonitoredPairs, error)
}

// ErrorHandler receives poll failures.
type ErrorHandler interface {
	OnError(kind model.ErrorKind, message string)
}

// Config holds poller configuration.
type Config struct {
	StatusInterval time.Duration // Exchange status poll interval (default: 10s)
	PairsInterval  time.Duration // Monitored pairs poll interval (default: 5m)
	Timeout        time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StatusInterval: 10 * time.Second,
		PairsInterval:  5 * time.Minute,
		Timeout:        10 * time.Second,
	}
}

// Poller periodically refreshes a Catalog from a Source.
type Poller struct {
	cfg     Config
	source  Source
	catalog *Catalog
	errors  ErrorHandler
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. errors may be nil.
func New(cfg Config, source Source, catalog *Catalog, errors ErrorHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = def.StatusInterval
	}
	if cfg.PairsInterval <= 0 {
		cfg.PairsInterval = def.PairsInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		catalog: catalog,
		errors:  errors,
		logger:  logger,
		now:     time.Now,
	}
}

// Catalog returns the Catalog the poller writes to.
func (p *Poller) Catalog() *Catalog {
	return p.catalog
}

// Start begins both polling loops. Each polls once immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.run(p.cfg.StatusInterval, p.fetchStatus)
	go p.run(p.cfg.PairsInterval, p.fetchPairs)

	p.logger.Info("collaborator poller started",
		"status_interval", p.cfg.StatusInterval,
		"pairs_interval", p.cfg.PairsInterval,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("collaborator poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh fetches statuses and pairs concurrently, once. It returns the first
// failure; the other fetch still completes.
func (p *Poller) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return p.fetchStatus(ctx) })
	g.Go(func() error { return p.fetchPairs(ctx) })
	return g.Wait()
}

func (p *Poller) run(interval time.Duration, poll func(context.Context) error) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			poll(p.ctx)
		}
	}
}

func (p *Poller) fetchStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	st, err := p.source.GetStatus(ctx)
	if err != nil {
		return p.fail("exchange status", err)
	}

	p.catalog.SetStatuses(st.ExchangeStatuses, st.ServiceRunning, p.now())
	p.logger.Debug("exchange statuses refreshed",
		"exchanges", len(st.ExchangeStatuses),
		"service_running", st.ServiceRunning,
	)
	return nil
}

func (p *Poller) fetchPairs(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	pairs, err := p.source.GetMonitoredPairs(ctx)
	if err != nil {
		return p.fail("monitored pairs", err)
	}

	p.catalog.SetPairs(pairs, p.now())
	p.logger.Info("monitored pairs refreshed", "exchanges", len(pairs))
	return nil
}

// fail records a fetch failure. Failures during shutdown are not reported.
func (p *Poller) fail(what string, err error) error {
	err = model.NewFeedError(model.KindConfigFetch, fmt.Errorf("fetch %s: %w", what, err))
	if p.ctx != nil && p.ctx.Err() != nil {
		return err
	}

	p.catalog.SetError(err, p.now())
	p.logger.Warn("collaborator poll failed", "what", what, "error", err)
	if p.errors != nil {
		p.errors.OnError(model.KindConfigFetch, err.Error())
	}
	return err
}
