package session

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats are the traffic counters of one engine. They are written by the
// engine's control loop and read concurrently by the web API and metrics.
type Stats struct {
	BytesFromClient     atomic.Uint64
	MessagesFromClient  atomic.Uint64
	BytesToBackend      atomic.Uint64
	MessagesToBackend   atomic.Uint64
	BytesFromBackend    atomic.Uint64
	MessagesFromBackend atomic.Uint64
	BytesToClient       atomic.Uint64
	MessagesToClient    atomic.Uint64

	FramesParsed     atomic.Uint64
	ParseStops       atomic.Uint64
	EventsRecorded   atomic.Uint64
	EventsSuppressed atomic.Uint64
	ChecksumFailures atomic.Uint64
	SessionsOpened   atomic.Uint64
	BackendDropped   atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	BytesFromClient     uint64 `json:"bytes_from_client"`
	MessagesFromClient  uint64 `json:"messages_from_client"`
	BytesToBackend      uint64 `json:"bytes_to_backend"`
	MessagesToBackend   uint64 `json:"messages_to_backend"`
	BytesFromBackend    uint64 `json:"bytes_from_backend"`
	MessagesFromBackend uint64 `json:"messages_from_backend"`
	BytesToClient       uint64 `json:"bytes_to_client"`
	MessagesToClient    uint64 `json:"messages_to_client"`
	FramesParsed        uint64 `json:"frames_parsed"`
	ParseStops          uint64 `json:"parse_stops"`
	EventsRecorded      uint64 `json:"events_recorded"`
	EventsSuppressed    uint64 `json:"events_suppressed"`
	ChecksumFailures    uint64 `json:"checksum_failures"`
	SessionsOpened      uint64 `json:"sessions_opened"`
	BackendDropped      uint64 `json:"backend_dropped"`
}

// Snapshot copies the current counter values
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		BytesFromClient:     s.BytesFromClient.Load(),
		MessagesFromClient:  s.MessagesFromClient.Load(),
		BytesToBackend:      s.BytesToBackend.Load(),
		MessagesToBackend:   s.MessagesToBackend.Load(),
		BytesFromBackend:    s.BytesFromBackend.Load(),
		MessagesFromBackend: s.MessagesFromBackend.Load(),
		BytesToClient:       s.BytesToClient.Load(),
		MessagesToClient:    s.MessagesToClient.Load(),
		FramesParsed:        s.FramesParsed.Load(),
		ParseStops:          s.ParseStops.Load(),
		EventsRecorded:      s.EventsRecorded.Load(),
		EventsSuppressed:    s.EventsSuppressed.Load(),
		ChecksumFailures:    s.ChecksumFailures.Load(),
		SessionsOpened:      s.SessionsOpened.Load(),
		BackendDropped:      s.BackendDropped.Load(),
	}
}

// Human returns byte counters formatted for the shutdown report and the
// dashboard, e.g. "1.2 kB".
func (s Snapshot) Human() map[string]string {
	return map[string]string{
		"from_client":  humanize.Bytes(s.BytesFromClient),
		"to_backend":   humanize.Bytes(s.BytesToBackend),
		"from_backend": humanize.Bytes(s.BytesFromBackend),
		"to_client":    humanize.Bytes(s.BytesToClient),
	}
}
