// Package events carries recorded protocol events from the decoy and relay
// engines to their outputs (log, JSON-lines file, databases, MQTT,
// websocket clients) without blocking the engines.
package events

import (
	"fmt"
	"time"

	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/session"
)

// Operating modes stamped on every event
const (
	ModeDecoy = "decoy"
	ModeRelay = "relay"
)

// Event is one observation worth keeping: a new session or a decoded frame
type Event struct {
	Time       time.Time      `json:"time"`
	Type       string         `json:"type"`
	Mode       string         `json:"mode"`
	SessionID  string         `json:"session_id"`
	PeerIP     string         `json:"peer_ip"`
	PeerPort   int            `json:"peer_port"`
	Intent     *intent.Intent `json:"intent,omitempty"`
	Suppressed bool           `json:"suppressed,omitempty"`
}

// Recorder accepts events. Record must not block the caller.
type Recorder interface {
	Record(Event)
}

// RecorderFunc adapts a function to Recorder
type RecorderFunc func(Event)

// Record calls f(ev)
func (f RecorderFunc) Record(ev Event) { f(ev) }

// Discard drops every event
var Discard Recorder = RecorderFunc(func(Event) {})

// NewConnection builds the event recorded when a session opens
func NewConnection(mode string, s session.Session, at time.Time) Event {
	return Event{
		Time:      at,
		Type:      string(intent.CategoryConnection),
		Mode:      mode,
		SessionID: s.ID,
		PeerIP:    s.IP(),
		PeerPort:  s.Port(),
	}
}

// NewIntent builds the event recorded for a decoded frame
func NewIntent(mode string, s session.Session, in *intent.Intent, at time.Time) Event {
	ev := NewConnection(mode, s, at)
	ev.Type = string(in.Category)
	ev.Intent = in
	return ev
}

// Peer returns "ip:port"
func (e Event) Peer() string {
	return fmt.Sprintf("%s:%d", e.PeerIP, e.PeerPort)
}

// Summary renders the event as a single human readable line
func (e Event) Summary() string {
	if e.Intent == nil {
		return fmt.Sprintf("%s from %s session=%s", e.Type, e.Peer(), e.SessionID)
	}
	return fmt.Sprintf("%s from %s", e.Intent.String(), e.Peer())
}
