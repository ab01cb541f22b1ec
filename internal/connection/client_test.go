package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = url
	cfg.BufferSize = 100
	return cfg
}

// drainReads keeps the server side reading so control frames are handled.
func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitDone(t *testing.T, c Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Done")
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, drainReads)
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-client.Done():
		t.Fatal("Done closed while connected")
	default:
	}
	if got := client.CloseReason(); got != CloseNone {
		t.Errorf("CloseReason() = %q while open, want empty", got)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	waitDone(t, client)

	if got := client.CloseReason(); got != CloseUserInitiated {
		t.Errorf("CloseReason() = %q, want %q", got, CloseUserInitiated)
	}
}

func TestClient_ConnectNoURL(t *testing.T) {
	client := NewClient(ClientConfig{}, nil)
	if err := client.Connect(context.Background()); !errors.Is(err, ErrNoURL) {
		t.Errorf("Connect() error = %v, want ErrNoURL", err)
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	client := NewClient(testClientConfig("ws://127.0.0.1:1"), nil)
	client.Close()

	if err := client.Connect(context.Background()); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect() error = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	server := mockWSServer(t, drainReads)
	url := wsURL(server)
	server.Close()

	client := NewClient(testClientConfig(url), nil)
	if err := client.Connect(context.Background()); err == nil {
		t.Error("expected dial error against closed server")
	}
}

func TestClient_Messages(t *testing.T) {
	testMessages := []string{
		`[{"id":"a"}]`,
		`[{"id":"a"},{"id":"b"}]`,
		`[]`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		drainReads(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var received []string
	timeout := time.After(2 * time.Second)

	for i := 0; i < len(testMessages); i++ {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	for i, want := range testMessages {
		if received[i] != want {
			t.Errorf("message %d: got %q, want %q", i, received[i], want)
		}
	}
}

func TestClient_SlowConsumerLosesNothing(t *testing.T) {
	const total = 20

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < total; i++ {
			msg := fmt.Sprintf(`[{"id":"%d"}]`, i)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		drainReads(conn)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.BufferSize = 2
	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	// Let the server get well ahead of the buffer.
	time.Sleep(100 * time.Millisecond)

	timeout := time.After(2 * time.Second)
	for i := 0; i < total; i++ {
		select {
		case msg := <-client.Messages():
			want := fmt.Sprintf(`[{"id":"%d"}]`, i)
			if string(msg.Data) != want {
				t.Fatalf("message %d = %q, want %q", i, msg.Data, want)
			}
		case <-timeout:
			t.Fatalf("timeout after %d of %d messages", i, total)
		}
	}
}

func TestClient_ServerClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting"),
			time.Now().Add(time.Second),
		)
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	waitDone(t, client)

	if got := client.CloseReason(); got != CloseServerClosed {
		t.Errorf("CloseReason() = %q, want %q", got, CloseServerClosed)
	}

	select {
	case err := <-client.Errors():
		var closeErr *websocket.CloseError
		if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
			t.Errorf("error = %v, want close 1001", err)
		}
	default:
		t.Error("expected close error before Done")
	}
}

func TestClient_NetworkDrop(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	waitDone(t, client)

	if got := client.CloseReason(); got != CloseNetworkError {
		t.Errorf("CloseReason() = %q, want %q", got, CloseNetworkError)
	}
	if !client.CloseReason().Unexpected() {
		t.Error("network error should be unexpected")
	}
}

func TestClient_StaleConnection(t *testing.T) {
	release := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Never read, so pings are never answered.
		<-release
	})
	defer server.Close()
	defer close(release)

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	waitDone(t, client)

	if got := client.CloseReason(); got != CloseNetworkError {
		t.Errorf("CloseReason() = %q, want %q", got, CloseNetworkError)
	}

	select {
	case err := <-client.Errors():
		if !errors.Is(err, ErrStaleConnection) {
			t.Errorf("error = %v, want ErrStaleConnection", err)
		}
	default:
		t.Error("expected stale error")
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, drainReads)
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestClient_PingHandler(t *testing.T) {
	pong := make(chan string, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		drainReads(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case data := <-pong:
		if data != "heartbeat" {
			t.Errorf("pong data = %q, want heartbeat", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for pong")
	}

	if got := client.CloseReason(); got != CloseNone {
		t.Errorf("CloseReason() = %q after ping, want open", got)
	}
}

func TestStateAndReason(t *testing.T) {
	active := map[State]bool{
		StateDisconnected: false,
		StateConnecting:   true,
		StateConnected:    true,
		StateErrored:      false,
	}
	for s, want := range active {
		if got := s.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", s, got, want)
		}
	}

	unexpected := map[CloseReason]bool{
		CloseNone:          false,
		CloseUserInitiated: false,
		CloseServerClosed:  true,
		CloseNetworkError:  true,
	}
	for r, want := range unexpected {
		if got := r.Unexpected(); got != want {
			t.Errorf("%q.Unexpected() = %v, want %v", r, got, want)
		}
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	if clientCfg.PingTimeout <= clientCfg.PingInterval {
		t.Errorf("PingTimeout %v should exceed PingInterval %v", clientCfg.PingTimeout, clientCfg.PingInterval)
	}
	if clientCfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", clientCfg.HandshakeTimeout)
	}

	mgrCfg := DefaultManagerConfig()
	if mgrCfg.ReconnectBaseWait != 5*time.Second {
		t.Errorf("ReconnectBaseWait = %v, want 5s", mgrCfg.ReconnectBaseWait)
	}
	if mgrCfg.ReconnectMaxWait != 60*time.Second {
		t.Errorf("ReconnectMaxWait = %v, want 60s", mgrCfg.ReconnectMaxWait)
	}
}
