package events

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

// DefaultBufferSize is the dispatcher queue length when none is configured
const DefaultBufferSize = 1024

const drainTimeout = 2 * time.Second

// Sink is an event output. Write is called from the dispatcher goroutine
// only, one event at a time.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev Event) error
}

// Closer is implemented by sinks holding resources
type Closer interface {
	Close() error
}

// DispatcherStats are the dispatcher counters
type DispatcherStats struct {
	Queued  int    `json:"queued"`
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

// Dispatcher fans recorded events out to every sink. Record never blocks:
// when the queue is full the event is dropped and counted.
type Dispatcher struct {
	sinks  []Sink
	queue  chan Event
	logger *logger.Logger

	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher creates a dispatcher with a queue of bufferSize events
func NewDispatcher(log *logger.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan Event, bufferSize),
		logger: log.WithComponent("events"),
	}
}

// AddSink registers another sink. It must be called before Run.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Sinks returns the names of the registered sinks
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Record queues ev for delivery
func (d *Dispatcher) Record(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.logger.Warn("Event queue full, dropping event",
			logger.String("type", ev.Type),
			logger.String("peer", ev.Peer()))
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// left in the queue and closes the sinks.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Event dispatcher started", logger.Any("sinks", d.Sinks()))

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			d.drain()
			d.close()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := s.Write(ctx, ev); err != nil {
			d.failed.Add(1)
			if errors.Is(err, context.Canceled) {
				continue
			}
			d.logger.Error("Event sink failed",
				logger.String("sink", s.Name()),
				logger.String("type", ev.Type),
				logger.Error(err))
			continue
		}
		d.written.Add(1)
	}
}

func (d *Dispatcher) close() {
	for _, s := range d.sinks {
		c, ok := s.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			d.logger.Warn("Failed to close event sink",
				logger.String("sink", s.Name()),
				logger.Error(err))
		}
	}
	d.logger.Info("Event dispatcher stopped",
		logger.Uint64("written", d.written.Load()),
		logger.Uint64("dropped", d.dropped.Load()))
}

// Stats returns the dispatcher counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Queued:  len(d.queue),
		Written: d.written.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
