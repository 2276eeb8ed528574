package events

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dbehnke/mavtrap/pkg/database"
	"github.com/dbehnke/mavtrap/pkg/logger"
)

// ConsoleSink writes one log line per event
type ConsoleSink struct {
	log *logger.Logger
}

// NewConsoleSink creates a console sink
func NewConsoleSink(log *logger.Logger) *ConsoleSink {
	return &ConsoleSink{log: log.WithComponent("intent")}
}

// Name implements Sink
func (s *ConsoleSink) Name() string { return "console" }

// Write implements Sink
func (s *ConsoleSink) Write(_ context.Context, ev Event) error {
	fields := []logger.Field{
		logger.String("mode", ev.Mode),
		logger.String("peer", ev.Peer()),
		logger.String("session", ev.SessionID),
	}
	if ev.Intent == nil {
		s.log.Info("New connection", fields...)
		return nil
	}
	s.log.Info(ev.Intent.String(), fields...)
	return nil
}

// FileConfig controls the JSON-lines event file
type FileConfig struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// FileSink appends events as JSON lines to a rotating file
type FileSink struct {
	out *lumberjack.Logger
}

// NewFileSink creates a file sink
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("event file path is required")
	}
	return &FileSink{out: &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}}, nil
}

// Name implements Sink
func (s *FileSink) Name() string { return "file" }

// Write implements Sink
func (s *FileSink) Write(_ context.Context, ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.out.Write(line); err != nil {
		return fmt.Errorf("failed to write event file: %w", err)
	}
	return nil
}

// Close implements Closer
func (s *FileSink) Close() error {
	return s.out.Close()
}

// EventStore persists event records
type EventStore interface {
	Create(ev *database.Event) error
}

// StoreSink writes events to the SQLite event table
type StoreSink struct {
	store EventStore
}

// NewStoreSink creates a sink over store
func NewStoreSink(store EventStore) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements Sink
func (s *StoreSink) Name() string { return "sqlite" }

// Write implements Sink
func (s *StoreSink) Write(_ context.Context, ev Event) error {
	return s.store.Create(ToRecord(ev))
}

// ToRecord flattens an event into its database row
func ToRecord(ev Event) *database.Event {
	rec := &database.Event{
		Time:      ev.Time,
		Type:      ev.Type,
		Mode:      ev.Mode,
		SessionID: ev.SessionID,
		PeerIP:    ev.PeerIP,
		PeerPort:  ev.PeerPort,
	}
	if in := ev.Intent; in != nil {
		rec.MessageID = in.MessageID
		rec.MessageName = in.MessageName
		rec.Group = in.Group
		rec.CommandID = in.CommandID
		rec.Command = in.Command
		rec.Params = in.Params
		rec.PayloadLen = in.PayloadLen
	}
	return rec
}

// Publisher publishes an event under a topic kind
type Publisher interface {
	PublishEvent(kind string, event interface{}) error
}

// MQTTSink publishes every event on <prefix>/events/<type>
type MQTTSink struct {
	pub Publisher
}

// NewMQTTSink creates an MQTT sink
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Name implements Sink
func (s *MQTTSink) Name() string { return "mqtt" }

// Write implements Sink
func (s *MQTTSink) Write(_ context.Context, ev Event) error {
	return s.pub.PublishEvent(ev.Type, ev)
}
