package testhelpers

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dbehnke/mavtrap/pkg/config"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
	"github.com/dbehnke/mavtrap/pkg/network"
)

// IntegrationSuite provides infrastructure for integration tests
type IntegrationSuite struct {
	T        *testing.T
	Config   *config.Config
	Logger   *logger.Logger
	Ctx      context.Context
	Cancel   context.CancelFunc
	Listener *network.Listener
	Backend  *FakeBackend
	clients  []*net.UDPConn
}

// NewIntegrationSuite creates a new integration test suite
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	return &IntegrationSuite{
		T:      t,
		Config: CreateDefaultConfig(),
		Logger: log,
		Ctx:    ctx,
		Cancel: cancel,
	}
}

// GetFreePort gets a free port for testing
func (s *IntegrationSuite) GetFreePort() int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		s.T.Fatal(err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.T.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// StartListener binds the external UDP socket on a loopback port
func (s *IntegrationSuite) StartListener() *net.UDPAddr {
	s.Listener = network.NewListener("127.0.0.1:0", s.Logger)
	go func() { _ = s.Listener.Start(s.Ctx) }()

	if err := s.Listener.WaitStarted(s.Ctx); err != nil {
		s.T.Fatalf("listener did not start: %v", err)
	}
	addr, err := s.Listener.Addr()
	if err != nil {
		s.T.Fatal(err)
	}
	return addr
}

// StartBackend starts a fake vehicle accepting one TCP connection
func (s *IntegrationSuite) StartBackend() *FakeBackend {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.T.Fatal(err)
	}
	b := &FakeBackend{ln: ln, accepted: make(chan struct{})}
	go b.serve()
	s.Backend = b
	return b
}

// DialGCS opens a UDP socket playing the ground station
func (s *IntegrationSuite) DialGCS(addr *net.UDPAddr) *net.UDPConn {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		s.T.Fatalf("failed to dial %s: %v", addr, err)
	}
	s.clients = append(s.clients, conn)
	return conn
}

// ReadFrames collects the frames arriving on conn until nothing arrives for
// quiet or want frames were read
func (s *IntegrationSuite) ReadFrames(conn *net.UDPConn, want int, quiet time.Duration) []*mavlink.Frame {
	var frames []*mavlink.Frame
	buffer := make([]byte, network.BufferSize)
	for len(frames) < want {
		_ = conn.SetReadDeadline(time.Now().Add(quiet))
		n, err := conn.Read(buffer)
		if err != nil {
			break
		}
		parsed, _ := mavlink.ParseAll(buffer[:n])
		frames = append(frames, parsed...)
	}
	return frames
}

// Cleanup cleans up resources
func (s *IntegrationSuite) Cleanup() {
	for _, c := range s.clients {
		_ = c.Close()
	}
	if s.Backend != nil {
		s.Backend.Close()
	}
	s.Cancel()
}

// WaitFor waits for a condition to be true
func (s *IntegrationSuite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually asserts that a condition becomes true within timeout
func (s *IntegrationSuite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// FakeBackend stands in for a simulator on the far side of the relay
type FakeBackend struct {
	ln       net.Listener
	accepted chan struct{}

	mu       sync.Mutex
	conn     net.Conn
	received []byte
}

// Addr returns the TCP address to dial
func (b *FakeBackend) Addr() string {
	return b.ln.Addr().String()
}

func (b *FakeBackend) serve() {
	conn, err := b.ln.Accept()
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	close(b.accepted)

	buffer := make([]byte, network.BufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			b.mu.Lock()
			b.received = append(b.received, buffer[:n]...)
			b.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// WaitAccepted blocks until the relay connected or timeout passed
func (b *FakeBackend) WaitAccepted(timeout time.Duration) bool {
	select {
	case <-b.accepted:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Received returns everything the backend read so far
func (b *FakeBackend) Received() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.received...)
}

// Send writes data to the relay
func (b *FakeBackend) Send(data []byte) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(data)
	return err
}

// Hangup drops the relay connection
func (b *FakeBackend) Hangup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

// Close stops accepting and drops the connection
func (b *FakeBackend) Close() {
	_ = b.ln.Close()
	b.Hangup()
}

// CreateDefaultConfig creates a default test configuration
func CreateDefaultConfig() *config.Config {
	return &config.Config{
		Mode: config.ModeDecoy,
		Protocol: config.ProtocolConfig{
			Listen: "127.0.0.1:0",
		},
		Decoy: config.DecoyConfig{
			SystemID:          1,
			ComponentID:       1,
			TelemetryInterval: time.Second,
		},
		Relay: config.RelayConfig{
			Backend: config.BackendConfig{
				Network:     "tcp",
				DialTimeout: 2 * time.Second,
			},
			NoiseFilter:   true,
			StatsInterval: time.Second,
		},
		Events: config.EventsConfig{
			BufferSize: 64,
		},
		Web: config.WebConfig{
			Enabled: false,
		},
		MQTT: config.MQTTConfig{
			Enabled: false,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
	}
}
