package main

import (
	"fmt"
	"time"

	"github.com/rickgao/arbfeed/internal/api"
	"github.com/rickgao/arbfeed/internal/config"
	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/journal"
	"github.com/rickgao/arbfeed/internal/poller"
	"github.com/rickgao/arbfeed/internal/reconcile"
	"github.com/rickgao/arbfeed/internal/server"
	"github.com/rickgao/arbfeed/internal/view"
)

// journalObserver lets the journal writer sit in an engine.MultiObserver.
type journalObserver struct {
	engine.NopObserver
	*journal.Writer
}

func engineConfig(cfg *config.Config) (engine.Config, error) {
	params, err := viewParams(cfg.View)
	if err != nil {
		return engine.Config{}, err
	}

	out := engine.DefaultConfig()
	out.Connection = connection.ManagerConfig{
		Client:            clientConfig(cfg.Stream),
		ReconnectBaseWait: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Stream.ReconnectMaxDelay,
	}
	out.Reconcile = reconcile.Config{
		StickyDuration: cfg.Reconcile.StickyDuration,
		Precision:      int32(cfg.Reconcile.Precision),
	}
	out.SweepInterval = cfg.Reconcile.SweepInterval
	out.AutoStart = cfg.Stream.AutoStart
	out.View = params
	return out, nil
}

func clientConfig(s config.StreamConfig) connection.ClientConfig {
	out := connection.DefaultClientConfig()
	out.URL = s.URL
	if s.HandshakeTimeout > 0 {
		out.HandshakeTimeout = s.HandshakeTimeout
	}
	if s.PingInterval > 0 {
		out.PingInterval = s.PingInterval
	}
	if s.PingTimeout > 0 {
		out.PingTimeout = s.PingTimeout
	}
	if s.ReadLimit > 0 {
		out.ReadLimit = s.ReadLimit
	}
	if s.BufferSize > 0 {
		out.BufferSize = s.BufferSize
	}
	return out
}

func viewParams(v config.ViewConfig) (view.Params, error) {
	key, err := view.ParseSortKey(v.SortKey)
	if err != nil {
		return view.Params{}, fmt.Errorf("view.sort_key: %w", err)
	}
	dir, err := view.ParseDirection(v.SortDirection)
	if err != nil {
		return view.Params{}, fmt.Errorf("view.sort_direction: %w", err)
	}

	p := view.DefaultParams()
	p.Sort = view.Order{Key: key, Direction: dir}
	if v.PageSize > 0 {
		p.PageSize = v.PageSize
	}
	return p.Normalize(), nil
}

func pollerConfig(c config.CollaboratorConfig) poller.Config {
	return poller.Config{
		StatusInterval: c.StatusInterval,
		PairsInterval:  c.PairsInterval,
		Timeout:        c.Timeout,
	}
}

func apiOptions(c config.CollaboratorConfig) []api.ClientOption {
	opts := []api.ClientOption{api.WithRetries(c.MaxRetries, time.Second)}
	if c.Timeout > 0 {
		opts = append(opts, api.WithTimeout(c.Timeout))
	}
	return opts
}

func journalConfig(j config.JournalConfig) journal.Config {
	out := journal.DefaultConfig()
	out.BatchSize = j.BatchSize
	out.FlushInterval = j.FlushInterval
	out.BufferSize = j.BufferSize
	return out
}

func serverConfig(cfg *config.Config) server.Config {
	out := server.DefaultConfig()
	out.Addr = cfg.Server.Addr
	if cfg.Server.ReadTimeout > 0 {
		out.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		out.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	if cfg.Metrics.Path != "" {
		out.MetricsPath = cfg.Metrics.Path
	}
	// Health reports stale after two missed pairs polls.
	if cfg.Collaborator.PairsInterval > 0 {
		out.CatalogMaxAge = 2 * cfg.Collaborator.PairsInterval
	}
	return out
}
