package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/playkit/feature"
	"github.com/c360/playkit/features"
	"github.com/c360/playkit/health"
	"github.com/c360/playkit/metric"
	"github.com/c360/playkit/store"
)

// server exposes the running store over HTTP: a websocket state stream,
// one-shot request dispatch, health and metrics.
type server struct {
	player   *store.Store[features.Media]
	registry *metric.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newServer(player *store.Store[features.Media], registry *metric.Registry, logger *slog.Logger) *server {
	return &server{
		player:   player,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Demo server; browsers connect from anywhere
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// serve runs the HTTP server until ctx ends, then shuts down gracefully
func (s *server) serve(ctx context.Context, port int, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /requests", s.handleRequest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.registry.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return ctx.Err()
}

// wsCommand is the inbound websocket message shape
type wsCommand struct {
	Request string `json:"request"`
	Input   any    `json:"input"`
}

// handleState streams every state change over a websocket and accepts
// request dispatch commands on the same connection.
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer func() { _ = conn.Close() }()

	s.logger.Debug("state stream connected", "remote", r.RemoteAddr)

	// Buffered so a slow client drops intermediate snapshots instead of
	// blocking the store's notification pass.
	updates := make(chan feature.State, 16)
	off := s.player.Subscribe(func(state feature.State) {
		select {
		case updates <- state:
		default:
		}
	})
	defer off()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Request == "" {
				continue
			}
			s.player.Do(cmd.Request, cmd.Input)
		}
	}()

	if err := conn.WriteJSON(s.player.State()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case state := <-updates:
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		}
	}
}

// requestBody is the POST /requests payload
type requestBody struct {
	Request string `json:"request"`
	Input   any    `json:"input"`
}

// requestResponse is the POST /requests reply
type requestResponse struct {
	Status string        `json:"status"`
	Result any           `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	State  feature.State `json:"state"`
}

// handleRequest dispatches one request and waits for it to settle
func (s *server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if body.Request == "" {
		http.Error(w, "request name is required", http.StatusBadRequest)
		return
	}

	tk := s.player.Do(body.Request, body.Input)
	result, err := tk.Wait(r.Context())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	resp := requestResponse{
		Status: tk.Status().String(),
		Result: result,
		State:  s.player.State(),
	}
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// healthResponse is the GET /healthz payload
type healthResponse struct {
	Level    string          `json:"level"`
	Attached bool            `json:"attached"`
	Features []health.Status `json:"features"`
}

// handleHealth reports aggregate and per-feature health
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	aggregate := s.player.Health().AggregateHealth("player")

	resp := healthResponse{
		Level:    string(aggregate.Level),
		Attached: s.player.Attached(),
		Features: aggregate.SubStatuses,
	}

	code := http.StatusOK
	if aggregate.Level == health.LevelUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
