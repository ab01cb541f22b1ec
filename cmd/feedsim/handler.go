package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type handler struct {
	sim      *simulator
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// handleStream pushes one snapshot per interval until the peer goes away.
func (h *handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("remote", r.RemoteAddr)
	logger.Info("stream client connected")

	// The read loop answers pings and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	send := func() bool {
		data, err := json.Marshal(h.sim.Snapshot(time.Now()))
		if err != nil {
			logger.Error("encode snapshot", "error", err)
			return false
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Info("stream write failed", "error", err)
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case <-closed:
			logger.Info("stream client disconnected")
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":            "ok",
		"service_running":   true,
		"exchange_statuses": h.sim.Statuses(),
	})
}

func (h *handler) handlePairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sim.Pairs())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
