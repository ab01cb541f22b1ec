package config

import "time"

// Config is the root configuration for an arbfeed instance.
type Config struct {
	Stream       StreamConfig       `yaml:"stream"`
	Reconcile    ReconcileConfig    `yaml:"reconcile"`
	View         ViewConfig         `yaml:"view"`
	Collaborator CollaboratorConfig `yaml:"collaborator"`
	Server       ServerConfig       `yaml:"server"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Journal      JournalConfig      `yaml:"journal"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// StreamConfig holds the opportunity stream connection settings.
type StreamConfig struct {
	URL                string        `yaml:"url"`       // ws:// or wss:// endpoint
	AutoStart          bool          `yaml:"autostart"` // Open the stream at startup
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	ReadLimit          int64         `yaml:"read_limit"` // Max message size in bytes
	BufferSize         int           `yaml:"buffer_size"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// ReconcileConfig holds reconciler settings.
type ReconcileConfig struct {
	StickyDuration time.Duration `yaml:"sticky_duration"` // How long vanished records stay visible
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	Precision      int           `yaml:"precision"` // Decimal places for numeric equality
}

// ViewConfig holds the initial view parameters.
type ViewConfig struct {
	SortKey       string `yaml:"sort_key"`
	SortDirection string `yaml:"sort_direction"`
	PageSize      int    `yaml:"page_size"`
}

// CollaboratorConfig holds scanner REST polling settings.
type CollaboratorConfig struct {
	Enabled        bool          `yaml:"enabled"`
	RestURL        string        `yaml:"rest_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	StatusInterval time.Duration `yaml:"status_interval"`
	PairsInterval  time.Duration `yaml:"pairs_interval"`
}

// ServerConfig holds the consumer HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// JournalConfig holds lifecycle journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Rotated log file; empty logs to stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}
