package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultStreamURL          = "ws://localhost:8000/ws_final"
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultReadLimit          = 32 << 20
	DefaultStreamBufferSize   = 64
	DefaultReconnectBaseDelay = 5 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultStickyDuration     = 5 * time.Minute
	DefaultSweepInterval      = 1 * time.Minute
	DefaultPrecision          = 8
	DefaultSortKey            = "net_profit"
	DefaultSortDirection      = "descending"
	DefaultPageSize           = 10
	DefaultRestURL            = "http://localhost:8000"
	DefaultAPITimeout         = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultStatusInterval     = 10 * time.Second
	DefaultPairsInterval      = 5 * time.Minute
	DefaultServerAddr         = ":8080"
	DefaultReadTimeout        = 10 * time.Second
	DefaultWriteTimeout       = 30 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
	DefaultMetricsPath        = "/metrics"
	DefaultJournalBatchSize   = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultJournalBufferSize  = 10000
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 14
)

func (c *Config) applyDefaults() {
	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.HandshakeTimeout == 0 {
		c.Stream.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.ReadLimit == 0 {
		c.Stream.ReadLimit = DefaultReadLimit
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Reconcile defaults
	if c.Reconcile.StickyDuration == 0 {
		c.Reconcile.StickyDuration = DefaultStickyDuration
	}
	if c.Reconcile.SweepInterval == 0 {
		c.Reconcile.SweepInterval = DefaultSweepInterval
	}
	if c.Reconcile.Precision == 0 {
		c.Reconcile.Precision = DefaultPrecision
	}

	// View defaults
	if c.View.SortKey == "" {
		c.View.SortKey = DefaultSortKey
	}
	if c.View.SortDirection == "" {
		c.View.SortDirection = DefaultSortDirection
	}
	if c.View.PageSize == 0 {
		c.View.PageSize = DefaultPageSize
	}

	// Collaborator defaults
	if c.Collaborator.RestURL == "" {
		c.Collaborator.RestURL = DefaultRestURL
	}
	if c.Collaborator.Timeout == 0 {
		c.Collaborator.Timeout = DefaultAPITimeout
	}
	if c.Collaborator.MaxRetries == 0 {
		c.Collaborator.MaxRetries = DefaultMaxRetries
	}
	if c.Collaborator.StatusInterval == 0 {
		c.Collaborator.StatusInterval = DefaultStatusInterval
	}
	if c.Collaborator.PairsInterval == 0 {
		c.Collaborator.PairsInterval = DefaultPairsInterval
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}
	applyDBDefaults(&c.Journal.Database)

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
