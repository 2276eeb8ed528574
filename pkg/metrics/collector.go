package metrics

import (
	"context"
	"sync"

	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/session"
)

// Collector collects mavtrap metrics. It counts events as an events.Sink and
// reads traffic counters from the running engine on demand.
type Collector struct {
	mu sync.RWMutex

	// Event metrics
	eventsByType map[string]uint64
	commands     map[string]uint64

	// Peer metrics
	totalSessions uint64
	peers         map[string]bool

	traffic    func() session.Snapshot
	dispatcher func() events.DispatcherStats
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		eventsByType: make(map[string]uint64),
		commands:     make(map[string]uint64),
		peers:        make(map[string]bool),
	}
}

// WithTraffic sets the source of engine traffic counters
func (c *Collector) WithTraffic(fn func() session.Snapshot) *Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traffic = fn
	return c
}

// WithDispatcher sets the source of event dispatcher counters
func (c *Collector) WithDispatcher(fn func() events.DispatcherStats) *Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher = fn
	return c
}

// Name implements events.Sink
func (c *Collector) Name() string {
	return "metrics"
}

// Write implements events.Sink
func (c *Collector) Write(_ context.Context, ev events.Event) error {
	c.Observe(ev)
	return nil
}

// Observe records one event
func (c *Collector) Observe(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventsByType[ev.Type]++
	if ev.Type == string(intent.CategoryConnection) {
		c.totalSessions++
		if ev.PeerIP != "" {
			c.peers[ev.PeerIP] = true
		}
	}
	if ev.Intent != nil && ev.Intent.Command != "" {
		c.commands[ev.Intent.Command]++
	}
}

// Reset forgets the unique peer set. Cumulative counters are kept.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.peers = make(map[string]bool)
}

// Getters for metrics

// GetEvents returns the number of events of one type
func (c *Collector) GetEvents(eventType string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eventsByType[eventType]
}

// EventsByType returns a copy of the per-type event counters
func (c *Collector) EventsByType() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyCounts(c.eventsByType)
}

// CommandsByName returns a copy of the per-command counters
func (c *Collector) CommandsByName() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyCounts(c.commands)
}

// GetTotalSessions returns how many sessions were opened
func (c *Collector) GetTotalSessions() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalSessions
}

// GetUniquePeers returns the number of distinct peer addresses seen
func (c *Collector) GetUniquePeers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peers)
}

// Traffic returns the engine counters, false when no source is set
func (c *Collector) Traffic() (session.Snapshot, bool) {
	c.mu.RLock()
	fn := c.traffic
	c.mu.RUnlock()

	if fn == nil {
		return session.Snapshot{}, false
	}
	return fn(), true
}

// Dispatcher returns the dispatcher counters, false when no source is set
func (c *Collector) Dispatcher() (events.DispatcherStats, bool) {
	c.mu.RLock()
	fn := c.dispatcher
	c.mu.RUnlock()

	if fn == nil {
		return events.DispatcherStats{}, false
	}
	return fn(), true
}

func copyCounts(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
