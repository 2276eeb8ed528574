package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dbehnke/mavtrap/pkg/config"
	"github.com/dbehnke/mavtrap/pkg/logger"
)

// statusInterval paces status_update pushes to websocket clients
const statusInterval = 5 * time.Second

// Server represents the web dashboard HTTP server
type Server struct {
	config    config.WebConfig
	logger    *logger.Logger
	server    *http.Server
	hub       *WebSocketHub
	api       *API
	staticDir string
	addr      string
	started   chan struct{}
	mu        sync.RWMutex
}

// NewServer creates a new web server instance
func NewServer(cfg config.WebConfig, log *logger.Logger) *Server {
	log = log.WithComponent("web")
	return &Server{
		config:    cfg,
		logger:    log,
		hub:       NewWebSocketHub(log),
		api:       NewAPI(log),
		staticDir: "frontend/dist",
		started:   make(chan struct{}),
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	go s.hub.Run(ctx)
	go s.pushStatus(ctx)

	// Determine address
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start listener to get actual address (especially for port 0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()
	close(s.started)

	s.logger.Info("Starting web server",
		logger.String("address", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Handler builds the HTTP router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// API endpoints
	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/stats", s.api.HandleStats)
	mux.HandleFunc("/api/events", s.api.HandleEvents)
	mux.HandleFunc("/api/events/summary", s.api.HandleEventSummary)

	// WebSocket endpoint
	mux.Handle("/ws", s.hub.Handler())

	mux.Handle("/", s.staticHandler())
	return mux
}

// staticHandler serves frontend/dist when present on disk, otherwise the
// embedded live event page
func (s *Server) staticHandler() http.Handler {
	if fi, err := os.Stat(s.staticDir); err == nil && fi.IsDir() {
		s.logger.Info("Serving dashboard from disk", logger.String("dir", s.staticDir))
		return http.FileServer(http.Dir(s.staticDir))
	}

	fsys, err := embeddedStaticFS()
	if err != nil {
		s.logger.Warn("Embedded dashboard unavailable", logger.Error(err))
		return http.NotFoundHandler()
	}
	return http.FileServer(fsys)
}

// pushStatus tells websocket clients to refresh their status view
func (s *Server) pushStatus(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.GetClientCount() > 0 {
				s.hub.BroadcastStatusUpdate(s.api.Status())
			}
		}
	}
}

// WaitStarted blocks until the listener is bound or ctx is done
func (s *Server) WaitStarted(ctx context.Context) error {
	select {
	case <-s.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

// API returns the REST API for wiring engine and store
func (s *Server) API() *API {
	return s.api
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "mavtrap",
		"version": GetVersionInfo().Version,
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
