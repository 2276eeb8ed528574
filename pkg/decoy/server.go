// Package decoy implements decoy mode: a simulated vehicle that answers
// parameter and command traffic, streams fixed telemetry to whoever talks to
// it and records everything the peer sends.
package decoy

import (
	"context"
	"time"

	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
	"github.com/dbehnke/mavtrap/pkg/network"
	"github.com/dbehnke/mavtrap/pkg/session"
	"github.com/dbehnke/mavtrap/pkg/vehicle"
)

// DefaultTickInterval matches the 100 ms wait of the decoy loop
const DefaultTickInterval = 100 * time.Millisecond

// Config describes the simulated vehicle and the loop pacing
type Config struct {
	SystemID          uint8
	ComponentID       uint8
	Vehicle           vehicle.Config
	Params            []vehicle.Param
	TelemetryInterval time.Duration
	TickInterval      time.Duration
	SessionTimeout    time.Duration
	VerifyChecksum    bool
}

// Server is the decoy control loop. Handle* methods must be called from a
// single goroutine, normally Run.
type Server struct {
	cfg      Config
	log      *logger.Logger
	out      network.PacketWriter
	enc      *mavlink.Encoder
	emitter  *vehicle.Emitter
	params   *vehicle.ParamTable
	recorder events.Recorder
	sessions *session.Tracker
	stats    *session.Stats
}

// NewServer creates a decoy answering through out
func NewServer(cfg Config, out network.PacketWriter, log *logger.Logger) *Server {
	if cfg.SystemID == 0 {
		cfg.SystemID = mavlink.DefaultSystemID
	}
	if cfg.ComponentID == 0 {
		cfg.ComponentID = mavlink.DefaultComponentID
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	enc := mavlink.NewEncoder(cfg.SystemID, cfg.ComponentID)
	emitter := vehicle.NewEmitter(vehicle.NewState(cfg.Vehicle), enc, time.Now())
	if cfg.TelemetryInterval > 0 {
		emitter.SetInterval(vehicle.FamilyHeartbeat, cfg.TelemetryInterval)
		emitter.SetInterval(vehicle.FamilyPosition, cfg.TelemetryInterval)
		emitter.SetInterval(vehicle.FamilyStatus, cfg.TelemetryInterval)
	}

	return &Server{
		cfg:      cfg,
		log:      log.WithComponent("decoy"),
		out:      out,
		enc:      enc,
		emitter:  emitter,
		params:   vehicle.NewParamTable(cfg.Params),
		recorder: events.Discard,
		sessions: session.NewTracker(),
		stats:    &session.Stats{},
	}
}

// WithRecorder sets where events go
func (s *Server) WithRecorder(r events.Recorder) *Server {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Stats returns the live counters
func (s *Server) Stats() *session.Stats {
	return s.stats
}

// Sessions returns the session tracker
func (s *Server) Sessions() *session.Tracker {
	return s.sessions
}

// Params returns the parameter table served to peers
func (s *Server) Params() *vehicle.ParamTable {
	return s.params
}

// Run consumes datagrams from in and emits telemetry on every tick until ctx
// is cancelled or in is closed.
func (s *Server) Run(ctx context.Context, in <-chan network.Datagram) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info("Decoy running",
		logger.Uint("system_id", uint(s.cfg.SystemID)),
		logger.Int("params", s.params.Len()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case dg, ok := <-in:
			if !ok {
				return nil
			}
			s.HandleDatagram(dg)

		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// HandleDatagram records every frame of dg, answers what needs an answer
// and then sends whatever telemetry is due
func (s *Server) HandleDatagram(dg network.Datagram) {
	at := dg.At
	if at.IsZero() {
		at = time.Now()
	}

	sess, opened := s.sessions.Touch(dg.Addr, at)
	s.stats.BytesFromClient.Add(uint64(len(dg.Data)))
	s.stats.MessagesFromClient.Add(1)

	if opened {
		s.stats.SessionsOpened.Add(1)
		s.log.Info("Client connected",
			logger.String("peer", dg.Addr.String()),
			logger.String("session", sess.ID))
		s.record(events.NewConnection(events.ModeDecoy, sess, at))
	}

	frames, consumed := mavlink.ParseAll(dg.Data)
	s.stats.FramesParsed.Add(uint64(len(frames)))
	if consumed < len(dg.Data) {
		s.stats.ParseStops.Add(1)
	}

	for _, f := range frames {
		if s.cfg.VerifyChecksum {
			if ok, known := f.Verify(); known && !ok {
				s.stats.ChecksumFailures.Add(1)
				continue
			}
		}
		s.record(events.NewIntent(events.ModeDecoy, sess, intent.Decode(f), at))
		s.reply(f, sess)
	}

	if len(frames) > 0 {
		s.emit(sess, at)
	}
}

// Tick sends due telemetry to the current session and expires it when idle
func (s *Server) Tick(now time.Time) {
	if expired, ok := s.sessions.Expire(now, s.cfg.SessionTimeout); ok {
		s.log.Info("Session expired",
			logger.String("session", expired.ID),
			logger.Uint64("datagrams", expired.Datagrams))
	}
	if sess, ok := s.sessions.Current(); ok {
		s.emit(sess, now)
	}
}

func (s *Server) reply(f *mavlink.Frame, sess session.Session) {
	switch f.MsgID {
	case mavlink.MsgIDParamRequestList:
		count := uint16(s.params.Len())
		for i, p := range s.params.All() {
			s.send(mavlink.MsgIDParamValue, mavlink.ParamValuePayload(p.ID, p.Value, uint16(i), count), sess)
		}

	case mavlink.MsgIDParamRequestRead:
		p, index, ok := s.lookupParam(f.Payload)
		if !ok {
			s.log.Debug("Unknown parameter requested",
				logger.String("param_id", mavlink.ParamID(f.Payload)),
				logger.String("peer", sess.Addr.String()))
			return
		}
		s.send(mavlink.MsgIDParamValue, mavlink.ParamValuePayload(p.ID, p.Value, uint16(index), uint16(s.params.Len())), sess)

	case mavlink.MsgIDCommandLong, mavlink.MsgIDCommandInt:
		v, err := mavlink.CommandLongLayout.Decode(f.Payload)
		if err != nil {
			return
		}
		s.send(mavlink.MsgIDCommandAck, mavlink.CommandAckPayload(uint16(v["command"]), mavlink.ResultAccepted), sess)
	}
}

// lookupParam resolves a PARAM_REQUEST_READ by index, or by name when the
// index is negative
func (s *Server) lookupParam(payload []byte) (vehicle.Param, int, bool) {
	v, err := mavlink.ParamRequestReadLayout.Decode(payload)
	if err != nil {
		return vehicle.Param{}, -1, false
	}
	if index := int(v["param_index"]); index >= 0 {
		p, ok := s.params.At(index)
		return p, index, ok
	}
	return s.params.Lookup(mavlink.ParamID(payload))
}

func (s *Server) emit(sess session.Session, now time.Time) {
	for _, frame := range s.emitter.Due(now) {
		s.write(frame, sess)
	}
}

func (s *Server) send(msgID uint8, payload []byte, sess session.Session) {
	frame := s.enc.Build(msgID, payload)
	if frame == nil {
		return
	}
	s.write(frame, sess)
}

func (s *Server) write(frame []byte, sess session.Session) {
	n, err := s.out.WriteTo(frame, sess.Addr)
	if err != nil {
		s.log.Warn("Failed to send to client",
			logger.String("peer", sess.Addr.String()),
			logger.Error(err))
		return
	}
	s.stats.BytesToClient.Add(uint64(n))
	s.stats.MessagesToClient.Add(1)
}

func (s *Server) record(ev events.Event) {
	s.stats.EventsRecorded.Add(1)
	s.recorder.Record(ev)
}
