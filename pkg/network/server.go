package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

const (
	// BufferSize is the largest datagram or stream chunk read at once
	BufferSize = 2048

	readTimeout  = 100 * time.Millisecond
	queueSize    = 256
	writeTimeout = time.Second
)

// Datagram is one packet received on the external endpoint
type Datagram struct {
	Data []byte
	Addr net.Addr
	At   time.Time
}

// PacketWriter sends a datagram to a peer
type PacketWriter interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// Listener is the external UDP endpoint ground stations talk to
type Listener struct {
	address string
	log     *logger.Logger
	conn    net.PacketConn
	packets chan Datagram
	// started is closed once the UDP listener is bound and ready
	started chan struct{}
	mu      sync.RWMutex
}

// NewListener creates a listener for address ("host:port", port 0 picks one)
func NewListener(address string, log *logger.Logger) *Listener {
	return &Listener{
		address: address,
		log:     log.WithComponent("network.listener"),
		packets: make(chan Datagram, queueSize),
		started: make(chan struct{}),
	}
}

// Start binds the socket and receives datagrams until ctx is cancelled
func (l *Listener) Start(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP %s: %w", l.address, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	// Signal that the listener is ready to accept packets
	select {
	case <-l.started: // already closed
	default:
		close(l.started)
	}
	defer func() {
		_ = conn.Close()
	}()

	l.log.Info("Listener started", logger.String("addr", conn.LocalAddr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- l.receiveLoop(ctx, conn)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// WaitStarted blocks until the UDP listener is bound or the context is canceled.
func (l *Listener) WaitStarted(ctx context.Context) error {
	select {
	case <-l.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the local UDP address the listener is bound to. It should be called after WaitStarted.
func (l *Listener) Addr() (*net.UDPAddr, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return nil, fmt.Errorf("listener not started")
	}
	udpAddr, ok := l.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("not a UDP address")
	}
	return udpAddr, nil
}

// Packets returns the channel received datagrams are delivered on
func (l *Listener) Packets() <-chan Datagram {
	return l.packets
}

// WriteTo sends p to addr from the listening socket
func (l *Listener) WriteTo(p []byte, addr net.Addr) (int, error) {
	l.mu.RLock()
	conn := l.conn
	l.mu.RUnlock()
	if conn == nil {
		return 0, fmt.Errorf("listener not started")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, err
	}
	return conn.WriteTo(p, addr)
}

// receiveLoop continuously receives datagrams and queues them for the owner
func (l *Listener) receiveLoop(ctx context.Context, conn net.PacketConn) error {
	buffer := make([]byte, BufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Set read deadline to allow context checking
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		n, addr, err := conn.ReadFrom(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			l.log.Error("Failed to read from UDP", logger.Error(err))
			continue
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case l.packets <- Datagram{Data: data, Addr: addr, At: time.Now()}:
		default:
			l.log.Warn("Receive queue full, dropping datagram",
				logger.String("from", addr.String()),
				logger.Int("bytes", n))
		}
	}
}
