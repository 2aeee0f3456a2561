// Package server provides the HTTP surface of the poster kiosk.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/posterpoint/internal/plugin"
	"github.com/ayusman/posterpoint/internal/server/api"
	"github.com/ayusman/posterpoint/internal/store"
)

// Config holds the server configuration. Endpoints whose collaborator is nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	DeviceID  string
	Kiosk     api.Kiosk
	Frames    FrameSource
	Events    *Hub
	Plugins   *plugin.Manager
}

// Server represents the HTTP server for the kiosk.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Kiosk != nil {
		kiosk := api.NewKioskHandler(s.config.Kiosk)
		s.mux.HandleFunc("/api/status", kiosk.Status)
		s.mux.HandleFunc("/api/retry", kiosk.Retry)
		s.mux.HandleFunc("/api/zones", kiosk.Zones)
	}

	if s.config.Store != nil {
		var h *api.SelectionHandler
		if s.config.Kiosk != nil {
			h = api.NewSelectionHandler(s.config.Store, s.config.Kiosk.Zones(), s.config.DeviceID)
		} else {
			h = api.NewSelectionHandler(s.config.Store, nil, s.config.DeviceID)
		}
		if s.config.Events != nil {
			events := s.config.Events
			h.OnCreate(func(sel *store.Selection) {
				events.Broadcast(Event{Type: EventSelection, Zone: sel.Zone, Selection: sel})
			})
		}
		s.mux.Handle("/api/selections", h)
		s.mux.Handle("/api/selections/", h)
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
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
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Kiosk != nil {
		response["running"] = s.config.Kiosk.Running()
	}
	if s.config.Events != nil {
		response["clients"] = s.config.Events.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
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
		log.Printf("Server shutdown error: %v", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
