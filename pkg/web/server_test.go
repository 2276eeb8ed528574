package web

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dbehnke/mavtrap/pkg/config"
)

func startServer(t *testing.T) (*Server, context.CancelFunc, chan error) {
	t.Helper()
	cfg := config.WebConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    0, // Use any available port
	}
	srv := NewServer(cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	if err := srv.WaitStarted(ctx); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}
	return srv, cancel, errChan
}

func TestServer_New(t *testing.T) {
	cfg := config.WebConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    8080,
	}

	srv := NewServer(cfg, testLogger())
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.config.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", srv.config.Port)
	}
	if srv.API() == nil || srv.GetHub() == nil {
		t.Error("Expected API and hub to be created")
	}
}

func TestServer_Disabled(t *testing.T) {
	srv := NewServer(config.WebConfig{Enabled: false}, testLogger())
	if err := srv.Start(context.Background()); err != nil {
		t.Errorf("Expected nil error when disabled, got %v", err)
	}
}

func TestServer_StartStop(t *testing.T) {
	_, cancel, errChan := startServer(t)

	cancel()

	select {
	case err := <-errChan:
		if err != nil && err != context.Canceled && err != http.ErrServerClosed {
			t.Errorf("Unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, cancel, _ := startServer(t)
	defer cancel()

	addr := srv.GetAddr()
	if addr == "" {
		t.Fatal("Server address is empty")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("Failed to request health endpoint: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestServer_EmbeddedDashboard(t *testing.T) {
	srv, cancel, _ := startServer(t)
	defer cancel()

	resp, err := http.Get("http://" + srv.GetAddr() + "/")
	if err != nil {
		t.Fatalf("Failed to request dashboard: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "/api/events") {
		t.Error("Expected dashboard page to reference the events API")
	}
}
