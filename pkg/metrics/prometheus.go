package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	// Event metrics
	writeHeader(&output, "mavtrap_events_total", "counter", "Recorded events by type")
	writeLabeled(&output, "mavtrap_events_total", "type", h.collector.EventsByType())

	writeHeader(&output, "mavtrap_commands_total", "counter", "Recorded commands by name")
	writeLabeled(&output, "mavtrap_commands_total", "command", h.collector.CommandsByName())

	// Peer metrics
	writeHeader(&output, "mavtrap_sessions_total", "counter", "Sessions opened by external peers")
	fmt.Fprintf(&output, "mavtrap_sessions_total %d\n", h.collector.GetTotalSessions())

	writeHeader(&output, "mavtrap_peers_unique", "gauge", "Distinct peer addresses seen")
	fmt.Fprintf(&output, "mavtrap_peers_unique %d\n", h.collector.GetUniquePeers())

	// Traffic metrics
	if snap, ok := h.collector.Traffic(); ok {
		writeHeader(&output, "mavtrap_bytes_total", "counter", "Bytes moved by direction")
		writeLabeled(&output, "mavtrap_bytes_total", "direction", map[string]uint64{
			"from_client":  snap.BytesFromClient,
			"to_backend":   snap.BytesToBackend,
			"from_backend": snap.BytesFromBackend,
			"to_client":    snap.BytesToClient,
		})

		writeHeader(&output, "mavtrap_messages_total", "counter", "Datagrams or chunks moved by direction")
		writeLabeled(&output, "mavtrap_messages_total", "direction", map[string]uint64{
			"from_client":  snap.MessagesFromClient,
			"to_backend":   snap.MessagesToBackend,
			"from_backend": snap.MessagesFromBackend,
			"to_client":    snap.MessagesToClient,
		})

		writeCounter(&output, "mavtrap_frames_parsed_total", "Frames parsed from client datagrams", snap.FramesParsed)
		writeCounter(&output, "mavtrap_parse_stops_total", "Datagrams with unparsed trailing bytes", snap.ParseStops)
		writeCounter(&output, "mavtrap_events_suppressed_total", "Command events dropped by the noise filter", snap.EventsSuppressed)
		writeCounter(&output, "mavtrap_checksum_failures_total", "Frames failing checksum verification", snap.ChecksumFailures)
		writeCounter(&output, "mavtrap_backend_dropped_total", "Backend chunks dropped without a session", snap.BackendDropped)
	}

	// Dispatcher metrics
	if stats, ok := h.collector.Dispatcher(); ok {
		writeHeader(&output, "mavtrap_dispatcher_queued", "gauge", "Events waiting for delivery")
		fmt.Fprintf(&output, "mavtrap_dispatcher_queued %d\n", stats.Queued)
		writeCounter(&output, "mavtrap_dispatcher_failed_total", "Sink write failures", stats.Failed)
		writeCounter(&output, "mavtrap_dispatcher_dropped_total", "Events dropped on a full queue", stats.Dropped)
	}

	_, _ = w.Write([]byte(output.String()))
}

func writeHeader(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

func writeCounter(b *strings.Builder, name, help string, v uint64) {
	writeHeader(b, name, "counter", help)
	fmt.Fprintf(b, "%s %d\n", name, v)
}

// writeLabeled emits one sample per key, sorted for stable output
func writeLabeled(b *strings.Builder, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
