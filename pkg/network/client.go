package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

// BackendConfig describes the link to the real vehicle or simulator
type BackendConfig struct {
	Network     string // "tcp" or "udp"
	Address     string // host:port
	DialTimeout time.Duration
}

// Link is the backing connection as seen by the relay engine
type Link interface {
	Write(p []byte) (int, error)
	Data() <-chan []byte
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Backend is a connected stream (TCP) or connected datagram (UDP) link
type Backend struct {
	log  *logger.Logger
	conn net.Conn
	data chan []byte
	done chan struct{}

	mu   sync.Mutex
	err  error
	once sync.Once
}

// Dial connects to the backend. The read loop is started with Start.
func Dial(ctx context.Context, cfg BackendConfig, log *logger.Logger) (*Backend, error) {
	network := cfg.Network
	if network == "" {
		network = "tcp"
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, network, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend %s %s: %w", network, cfg.Address, err)
	}

	b := NewBackend(conn, log)
	b.log.Info("Backend connected",
		logger.String("network", network),
		logger.String("remote", conn.RemoteAddr().String()),
		logger.String("local", conn.LocalAddr().String()))
	return b, nil
}

// NewBackend wraps an established connection
func NewBackend(conn net.Conn, log *logger.Logger) *Backend {
	return &Backend{
		log:  log.WithComponent("network.backend"),
		conn: conn,
		data: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// Start reads from the backend until it closes, fails or ctx is cancelled.
// A zero-length read or read error ends the link for good: Done is closed
// and Err reports why. It returns nil in that case so a lost backend does
// not bring the process down.
func (b *Backend) Start(ctx context.Context) error {
	defer b.Close()

	err := b.receiveLoop(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	b.log.Warn("Backend disconnected", logger.Error(err))
	return nil
}

// receiveLoop continuously receives chunks and queues them for the owner
func (b *Backend) receiveLoop(ctx context.Context) error {
	buffer := make([]byte, BufferSize)

	for {
		select {
		case <-ctx.Done():
			b.finish(ctx.Err())
			return ctx.Err()
		default:
		}

		// Set read deadline to allow context checking
		if err := b.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			b.finish(err)
			return err
		}
		n, err := b.conn.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case b.data <- chunk:
			case <-ctx.Done():
				b.finish(ctx.Err())
				return ctx.Err()
			}
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			b.finish(err)
			return err
		}
		if n == 0 {
			b.finish(io.EOF)
			return io.EOF
		}
	}
}

func (b *Backend) finish(err error) {
	b.once.Do(func() {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		close(b.done)
	})
}

// Write sends p to the backend
func (b *Backend) Write(p []byte) (int, error) {
	if err := b.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, err
	}
	return b.conn.Write(p)
}

// Data returns the channel received chunks are delivered on
func (b *Backend) Data() <-chan []byte {
	return b.data
}

// Done is closed once the backend link is gone
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// Err returns why the link ended, nil while it is up
func (b *Backend) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// RemoteAddr returns the backend address
func (b *Backend) RemoteAddr() net.Addr {
	return b.conn.RemoteAddr()
}

// Close closes the connection. It is safe to call more than once.
func (b *Backend) Close() error {
	err := b.conn.Close()
	b.finish(net.ErrClosed)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
