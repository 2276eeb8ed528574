package testhelpers

import (
	"sync"
	"time"

	"github.com/dbehnke/mavtrap/pkg/events"
)

// MockRecorder collects recorded events
type MockRecorder struct {
	mu     sync.RWMutex
	events []events.Event
	notify chan struct{}
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{notify: make(chan struct{}, 1)}
}

// Record stores ev
func (r *MockRecorder) Record(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded
func (r *MockRecorder) Events() []events.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every recorded event in order
func (r *MockRecorder) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// Len returns the number of recorded events
func (r *MockRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// WaitLen blocks until at least n events were recorded or timeout passes
func (r *MockRecorder) WaitLen(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if r.Len() >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline:
			return r.Len() >= n
		}
	}
}

// Reset drops all recorded events
func (r *MockRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
