package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rickgao/arbfeed/internal/view"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := validateURL("stream.url", c.Stream.URL, "ws", "wss"); err != nil {
		return err
	}
	if c.Stream.ReconnectBaseDelay <= 0 {
		return errors.New("stream.reconnect_base_delay must be > 0")
	}
	if c.Stream.ReconnectMaxDelay < c.Stream.ReconnectBaseDelay {
		return fmt.Errorf("stream.reconnect_max_delay (%s) cannot be below reconnect_base_delay (%s)",
			c.Stream.ReconnectMaxDelay, c.Stream.ReconnectBaseDelay)
	}
	if c.Stream.PingInterval > 0 && c.Stream.PingTimeout > 0 && c.Stream.PingTimeout <= c.Stream.PingInterval {
		return errors.New("stream.ping_timeout must exceed stream.ping_interval")
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}

	if c.Reconcile.StickyDuration <= 0 {
		return errors.New("reconcile.sticky_duration must be > 0")
	}
	if c.Reconcile.SweepInterval <= 0 {
		return errors.New("reconcile.sweep_interval must be > 0")
	}
	if c.Reconcile.Precision < 0 || c.Reconcile.Precision > 16 {
		return fmt.Errorf("reconcile.precision must be between 0 and 16, got %d", c.Reconcile.Precision)
	}

	if _, err := view.ParseSortKey(c.View.SortKey); err != nil {
		return fmt.Errorf("view.sort_key: %w", err)
	}
	if _, err := view.ParseDirection(c.View.SortDirection); err != nil {
		return fmt.Errorf("view.sort_direction: %w", err)
	}
	if c.View.PageSize < 1 {
		return errors.New("view.page_size must be >= 1")
	}

	if c.Collaborator.Enabled {
		if err := validateURL("collaborator.rest_url", c.Collaborator.RestURL, "http", "https"); err != nil {
			return err
		}
		if c.Collaborator.MaxRetries < 0 {
			return errors.New("collaborator.max_retries must be >= 0")
		}
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < c.Journal.BatchSize {
			return errors.New("journal.buffer_size must be >= journal.batch_size")
		}
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ParseLevel maps a logging.level value onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: unknown level %q", s)
	}
	return level, nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", field, strings.Join(schemes, " or "), raw)
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
