// feedsim serves a synthetic opportunity stream for local development.
// Usage: go run ./cmd/feedsim --addr :8000 --interval 1s
//
// It exposes the same surface as the scanner:
//
//	/ws_final               - WebSocket, one JSON snapshot array per tick
//	/status                 - service and per-exchange connectivity
//	/api/v1/monitored_pairs - exchange to symbol map
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	interval := flag.Duration("interval", time.Second, "snapshot interval")
	churn := flag.Float64("churn", 0.2, "probability an opportunity is absent from a snapshot")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newSimulator(defaultMarkets(), *churn, *seed)
	h := &handler{
		sim:      sim,
		interval: *interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws_final", h.handleStream)
	r.Get("/status", h.handleStatus)
	r.Get("/api/v1/monitored_pairs", h.handlePairs)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("feedsim listening", "addr", *addr, "interval", *interval, "churn", *churn)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("feedsim stopped")
}
