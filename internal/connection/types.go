package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoURL           = errors.New("websocket URL is required")
)

// State is the Connection Manager state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateErrored      State = "errored"
)

// Active reports whether a transport handle is open or opening.
func (s State) Active() bool {
	return s == StateConnecting || s == StateConnected
}

// CloseReason explains why a stream ended.
type CloseReason string

const (
	CloseNone          CloseReason = ""               // Still open
	CloseUserInitiated CloseReason = "user_initiated" // Close() was called
	CloseServerClosed  CloseReason = "server_closed"  // Peer sent a close frame
	CloseNetworkError  CloseReason = "network_error"  // Read failure or stale link
)

// Unexpected reports whether the closure should trigger the reconnect policy.
func (r CloseReason) Unexpected() bool {
	return r == CloseServerClosed || r == CloseNetworkError
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8000/ws_final)
	Header           http.Header   // Extra handshake headers
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max time without ping/pong/data before considering connection stale
	WriteTimeout     time.Duration // Write deadline for control frames
	ReadLimit        int64         // Max inbound message size in bytes (0 = unlimited)
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        32 << 20, // full snapshots can be large
		BufferSize:       64,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client            ClientConfig  // Passed to the default dialer
	ReconnectBaseWait time.Duration // First reconnect delay
	ReconnectMaxWait  time.Duration // Cap for the doubling delay
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: 5 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
	}
}

// ManagerStats is a point-in-time view of the manager.
type ManagerStats struct {
	State       State         `json:"state"`
	Wanted      bool          `json:"wanted"`       // Consumer wants the stream active
	Attempts    uint64        `json:"attempts"`     // Connection attempts started
	Connects    uint64        `json:"connects"`     // Successful handshakes
	Reconnects  uint64        `json:"reconnects"`   // Reconnects scheduled
	Messages    uint64        `json:"messages"`     // Messages forwarded
	NextDelay   time.Duration `json:"next_delay"`   // Delay the next unexpected close would schedule
	Pending     bool          `json:"pending"`      // A reconnect timer is pending
	LastError   string        `json:"last_error"`   // Most recent transport error
	ConnectedAt time.Time     `json:"connected_at"` // Zero unless connected
}
