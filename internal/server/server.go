// Package server provides the HTTP status server of gesturepi: health, the
// published state, the transition history and a live transition stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/gesturepi/internal/publish"
	"github.com/ayusman/gesturepi/internal/server/api"
	"github.com/ayusman/gesturepi/internal/store"
)

// EventTransition is the WebSocket event type for published state changes.
const EventTransition = "transition"

// Config holds the server configuration.
type Config struct {
	// StateFile is the published state file read by GET /api/state.
	StateFile string
	// Publisher enables PUT /api/state when set.
	Publisher publish.StatePublisher
	// Store enables the transition history endpoints and records notified transitions.
	Store *store.Store
	// Phase reports the detection loop's activity in the health response.
	Phase  func() string
	Logger *slog.Logger
}

// Server represents the HTTP server for the gesturepi application.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *Hub
	logger *slog.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		hub:    NewHub(logger),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/events", s.hub)

	if s.config.StateFile != "" {
		s.mux.Handle("/api/state", api.NewStateHandler(s.config.StateFile, s.config.Publisher, s.Notify))
	}

	if s.config.Store != nil {
		transitions := api.NewTransitionHandler(s.config.Store)
		s.mux.Handle("/api/transitions", transitions)
		s.mux.Handle("/api/transitions/", transitions)
	}
}

// Hub returns the WebSocket hub behind /api/events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Notify records a published transition in the store, when configured, and
// pushes it to WebSocket clients.
func (s *Server) Notify(t *store.Transition) {
	if s.config.Store != nil {
		if err := s.config.Store.Transitions().Create(t); err != nil {
			s.logger.Error("recording transition", "state", t.To, "error", err)
		}
	}
	s.hub.Broadcast(EventTransition, t)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  uptime.String(),
		"clients": s.hub.Clients(),
	}
	if s.config.Phase != nil {
		response["phase"] = s.config.Phase()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
