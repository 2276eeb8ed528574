//go:build integration
// +build integration

package testhelpers

import (
	"net"
	"testing"
	"time"

	"github.com/dbehnke/mavtrap/pkg/config"
)

// TestIntegrationSuite_Basic tests basic integration suite functionality
func TestIntegrationSuite_Basic(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	if suite.Logger == nil {
		t.Error("Expected logger to be initialized")
	}
	if suite.Ctx == nil {
		t.Error("Expected context to be initialized")
	}
	if suite.Config == nil || suite.Config.Mode != config.ModeDecoy {
		t.Error("Expected default decoy config")
	}
}

// TestIntegrationSuite_GetFreePort tests getting free ports
func TestIntegrationSuite_GetFreePort(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	port := suite.GetFreePort()
	if port <= 0 || port > 65535 {
		t.Errorf("Invalid port: %d", port)
	}
}

func TestIntegrationSuite_ListenerAndGCS(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	addr := suite.StartListener()
	gcs := suite.DialGCS(addr)
	if _, err := gcs.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	select {
	case dg := <-suite.Listener.Packets():
		if string(dg.Data) != "hello" {
			t.Errorf("Expected hello, got %q", dg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
	}
}

func TestIntegrationSuite_FakeBackend(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	b := suite.StartBackend()
	conn, err := net.Dial("tcp", b.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if !b.WaitAccepted(2 * time.Second) {
		t.Fatal("backend never accepted")
	}
	if _, err := conn.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	suite.AssertEventually(func() bool { return string(b.Received()) == "abc" },
		2*time.Second, "backend should receive abc")
}

// TestIntegrationSuite_WaitFor tests the WaitFor helper
func TestIntegrationSuite_WaitFor(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	counter := 0
	result := suite.WaitFor(func() bool {
		counter++
		return counter >= 5
	}, 1*time.Second, "counter to reach 5")

	if !result {
		t.Error("WaitFor should have succeeded")
	}

	result = suite.WaitFor(func() bool {
		return false
	}, 50*time.Millisecond, "impossible condition")

	if result {
		t.Error("WaitFor should have timed out")
	}
}
