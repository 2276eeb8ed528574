// Package relay implements relay mode: datagrams from an external ground
// station are inspected, logged and forwarded whole to a real backend, and
// everything the backend sends goes back to the current session.
package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
	"github.com/dbehnke/mavtrap/pkg/network"
	"github.com/dbehnke/mavtrap/pkg/session"
)

// Config holds relay behaviour switches
type Config struct {
	// VerifyChecksum drops the events of frames whose checksum does not
	// match. Forwarding is never affected.
	VerifyChecksum bool
	// NoiseFilter suppresses the events of automatic ground station polling
	NoiseFilter bool
	// SessionTimeout deactivates a silent session; 0 disables expiry
	SessionTimeout time.Duration
	// TickInterval paces session expiry and the periodic stats line
	TickInterval time.Duration
}

// DefaultTickInterval is used when Config.TickInterval is zero
const DefaultTickInterval = 10 * time.Second

// Engine owns the relay state. All Handle* methods must be called from a
// single goroutine, normally Run.
type Engine struct {
	cfg       Config
	log       *logger.Logger
	out       network.PacketWriter
	backend   network.Link
	connected atomic.Bool
	recorder  events.Recorder
	sessions  *session.Tracker
	stats     *session.Stats
	filter    Filter
}

// NewEngine creates a relay between the external socket out and backend.
// A nil backend behaves like one that already disconnected.
func NewEngine(cfg Config, out network.PacketWriter, backend network.Link, log *logger.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	e := &Engine{
		cfg:      cfg,
		log:      log.WithComponent("relay"),
		out:      out,
		backend:  backend,
		recorder: events.Discard,
		sessions: session.NewTracker(),
		stats:    &session.Stats{},
	}
	e.connected.Store(backend != nil)
	return e
}

// WithRecorder sets where events go
func (e *Engine) WithRecorder(r events.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Stats returns the live counters
func (e *Engine) Stats() *session.Stats {
	return e.stats
}

// Sessions returns the session tracker
func (e *Engine) Sessions() *session.Tracker {
	return e.sessions
}

// Connected reports whether the backend link is still up
func (e *Engine) Connected() bool {
	return e.connected.Load()
}

// LastCommand returns the command code remembered by the noise filter
func (e *Engine) LastCommand() uint16 {
	return e.filter.LastCommand()
}

// Run is the control loop. It consumes external datagrams from in and
// backend data until ctx is cancelled or in is closed.
func (e *Engine) Run(ctx context.Context, in <-chan network.Datagram) error {
	var data <-chan []byte
	var done <-chan struct{}
	if e.backend != nil && e.Connected() {
		data = e.backend.Data()
		done = e.backend.Done()
	}

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.log.Info("Relay running",
		logger.Bool("backend_connected", e.Connected()),
		logger.Bool("verify_checksum", e.cfg.VerifyChecksum),
		logger.Bool("noise_filter", e.cfg.NoiseFilter))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case dg, ok := <-in:
			if !ok {
				return nil
			}
			e.HandleExternal(dg)

		case chunk := <-data:
			e.HandleBackend(chunk)

		case <-done:
			e.drainBackend(data)
			e.BackendClosed(e.backend.Err())
			data, done = nil, nil

		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

// drainBackend forwards what the backend sent before it went away
func (e *Engine) drainBackend(data <-chan []byte) {
	for {
		select {
		case chunk := <-data:
			e.HandleBackend(chunk)
		default:
			return
		}
	}
}

// HandleExternal processes one datagram from the external peer
func (e *Engine) HandleExternal(dg network.Datagram) {
	at := dg.At
	if at.IsZero() {
		at = time.Now()
	}

	sess, opened := e.sessions.Touch(dg.Addr, at)
	e.stats.BytesFromClient.Add(uint64(len(dg.Data)))
	e.stats.MessagesFromClient.Add(1)

	if opened {
		e.stats.SessionsOpened.Add(1)
		e.log.Info("Client connected",
			logger.String("peer", dg.Addr.String()),
			logger.String("session", sess.ID))
		e.record(events.NewConnection(events.ModeRelay, sess, at))
	}

	frames, consumed := mavlink.ParseAll(dg.Data)
	e.stats.FramesParsed.Add(uint64(len(frames)))
	if consumed < len(dg.Data) {
		e.stats.ParseStops.Add(1)
		e.log.Debug("Unparsed bytes in datagram",
			logger.String("peer", dg.Addr.String()),
			logger.Int("consumed", consumed),
			logger.Int("length", len(dg.Data)))
	}

	for _, f := range frames {
		e.inspect(f, sess, at)
	}

	e.forward(dg.Data)
}

func (e *Engine) inspect(f *mavlink.Frame, sess session.Session, at time.Time) {
	class := Classify(f.MsgID)
	if class == ClassSilent {
		return
	}

	if e.cfg.VerifyChecksum {
		if ok, known := f.Verify(); known && !ok {
			e.stats.ChecksumFailures.Add(1)
			e.log.Debug("Checksum mismatch",
				logger.Uint("msg_id", uint(f.MsgID)),
				logger.String("peer", sess.Addr.String()))
			return
		}
	}

	if class == ClassCommand && e.cfg.NoiseFilter && e.filter.Suppress(f) {
		e.stats.EventsSuppressed.Add(1)
		e.log.Debug("Suppressed routine command",
			logger.Uint("msg_id", uint(f.MsgID)),
			logger.Uint("command", uint(e.filter.LastCommand())))
		return
	}

	e.record(events.NewIntent(events.ModeRelay, sess, intent.Decode(f), at))
}

func (e *Engine) record(ev events.Event) {
	e.stats.EventsRecorded.Add(1)
	e.recorder.Record(ev)
}

func (e *Engine) forward(data []byte) {
	if e.backend == nil || !e.Connected() {
		return
	}
	n, err := e.backend.Write(data)
	if err != nil {
		e.log.Warn("Failed to forward to backend", logger.Error(err))
		e.BackendClosed(err)
		return
	}
	e.stats.BytesToBackend.Add(uint64(n))
	e.stats.MessagesToBackend.Add(1)
}

// HandleBackend sends backend data to the active session, or drops it when
// nobody is connected
func (e *Engine) HandleBackend(data []byte) {
	e.stats.BytesFromBackend.Add(uint64(len(data)))
	e.stats.MessagesFromBackend.Add(1)

	sess, ok := e.sessions.Current()
	if !ok {
		e.stats.BackendDropped.Add(1)
		return
	}

	n, err := e.out.WriteTo(data, sess.Addr)
	if err != nil {
		e.log.Warn("Failed to forward to client",
			logger.String("peer", sess.Addr.String()),
			logger.Error(err))
		return
	}
	e.stats.BytesToClient.Add(uint64(n))
	e.stats.MessagesToClient.Add(1)
}

// BackendClosed marks the backend as gone. Later writes are skipped and the
// link is never read again.
func (e *Engine) BackendClosed(err error) {
	if !e.connected.Swap(false) {
		return
	}
	e.log.Warn("Backend disconnected, relaying client traffic stops", logger.Error(err))
	if e.backend != nil {
		_ = e.backend.Close()
	}
}

func (e *Engine) tick(now time.Time) {
	if s, expired := e.sessions.Expire(now, e.cfg.SessionTimeout); expired {
		e.log.Info("Session expired",
			logger.String("session", s.ID),
			logger.String("peer", s.Addr.String()),
			logger.Uint64("datagrams", s.Datagrams))
	}

	snap := e.stats.Snapshot()
	e.log.Debug("Relay stats",
		logger.Uint64("from_client", snap.BytesFromClient),
		logger.Uint64("to_backend", snap.BytesToBackend),
		logger.Uint64("from_backend", snap.BytesFromBackend),
		logger.Uint64("to_client", snap.BytesToClient),
		logger.Uint64("events", snap.EventsRecorded),
		logger.Uint64("suppressed", snap.EventsSuppressed))
}
