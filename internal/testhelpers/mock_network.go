package testhelpers

import (
	"errors"
	"net"
	"sync"
)

// MockPacket represents a datagram written to a mock socket
type MockPacket struct {
	To   string
	Data []byte
}

// MockPacketWriter records everything written to it
type MockPacketWriter struct {
	mu      sync.RWMutex
	packets []MockPacket
	err     error
}

// NewMockPacketWriter creates an empty writer
func NewMockPacketWriter() *MockPacketWriter {
	return &MockPacketWriter{packets: make([]MockPacket, 0)}
}

// FailWith makes later writes return err
func (w *MockPacketWriter) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// WriteTo records a copy of p
func (w *MockPacketWriter) WriteTo(p []byte, addr net.Addr) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return 0, w.err
	}
	packet := MockPacket{To: addr.String(), Data: make([]byte, len(p))}
	copy(packet.Data, p)
	w.packets = append(w.packets, packet)
	return len(p), nil
}

// Packets returns all recorded packets
func (w *MockPacketWriter) Packets() []MockPacket {
	w.mu.RLock()
	defer w.mu.RUnlock()

	packets := make([]MockPacket, len(w.packets))
	copy(packets, w.packets)
	return packets
}

// Reset clears recorded packets
func (w *MockPacketWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.packets = w.packets[:0]
}

// MockLink is an in-memory backend link
type MockLink struct {
	mu      sync.RWMutex
	writes  [][]byte
	writeFn func([]byte) error
	data    chan []byte
	done    chan struct{}
	once    sync.Once
	err     error
	closed  int
}

// NewMockLink creates a connected link
func NewMockLink() *MockLink {
	return &MockLink{
		writes: make([][]byte, 0),
		data:   make(chan []byte, 100),
		done:   make(chan struct{}),
	}
}

// FailWrites makes later writes return err
func (l *MockLink) FailWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFn = func([]byte) error { return err }
}

// Write records a copy of p
func (l *MockLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writeFn != nil {
		if err := l.writeFn(p); err != nil {
			return 0, err
		}
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	l.writes = append(l.writes, buf)
	return len(p), nil
}

// Writes returns every chunk written to the link
func (l *MockLink) Writes() [][]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	writes := make([][]byte, len(l.writes))
	copy(writes, l.writes)
	return writes
}

// Deliver queues data as if the backend had sent it
func (l *MockLink) Deliver(data []byte) {
	l.data <- data
}

// Disconnect ends the link with err
func (l *MockLink) Disconnect(err error) {
	l.once.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}

// Data returns the delivery channel
func (l *MockLink) Data() <-chan []byte { return l.data }

// Done is closed once the link is gone
func (l *MockLink) Done() <-chan struct{} { return l.done }

// Err returns the disconnect reason
func (l *MockLink) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Close disconnects the link and counts the call
func (l *MockLink) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	l.Disconnect(errors.New("closed"))
	return nil
}

// CloseCount returns how many times Close was called
func (l *MockLink) CloseCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}
