// Package session tracks the single external peer mavtrap talks to and the
// traffic counters of the running engine.
package session

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the external controller currently talking to us
type Session struct {
	ID        string    `json:"id"`
	Addr      net.Addr  `json:"-"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Datagrams uint64    `json:"datagrams"`
	Active    bool      `json:"active"`
}

// IP returns the host part of the peer address
func (s Session) IP() string {
	if s.Addr == nil {
		return ""
	}
	if udp, ok := s.Addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	host, _, err := net.SplitHostPort(s.Addr.String())
	if err != nil {
		return s.Addr.String()
	}
	return host
}

// Port returns the port of the peer address, 0 when unknown
func (s Session) Port() int {
	if s.Addr == nil {
		return 0
	}
	if udp, ok := s.Addr.(*net.UDPAddr); ok {
		return udp.Port
	}
	_, port, err := net.SplitHostPort(s.Addr.String())
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}

// Idle reports whether the session has been silent for longer than timeout
func (s Session) Idle(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 || s.LastSeen.IsZero() {
		return false
	}
	return now.Sub(s.LastSeen) > timeout
}

// Tracker holds at most one active session. Only the owning control loop
// mutates it; readers such as the web API load an immutable copy.
type Tracker struct {
	current atomic.Pointer[Session]
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Touch records a datagram from addr. A new session replaces the current one
// when there is none, it went inactive, or addr differs from the stored peer.
// The returned bool is true when a new session was opened.
func (t *Tracker) Touch(addr net.Addr, now time.Time) (Session, bool) {
	cur := t.current.Load()
	if cur != nil && cur.Active && sameAddr(cur.Addr, addr) {
		next := *cur
		next.LastSeen = now
		next.Datagrams++
		t.current.Store(&next)
		return next, false
	}

	s := &Session{
		ID:        uuid.NewString(),
		Addr:      addr,
		FirstSeen: now,
		LastSeen:  now,
		Datagrams: 1,
		Active:    true,
	}
	t.current.Store(s)
	return *s, true
}

// Current returns the active session
func (t *Tracker) Current() (Session, bool) {
	cur := t.current.Load()
	if cur == nil || !cur.Active {
		return Session{}, false
	}
	return *cur, true
}

// Snapshot returns the last known session, active or not
func (t *Tracker) Snapshot() (Session, bool) {
	cur := t.current.Load()
	if cur == nil {
		return Session{}, false
	}
	return *cur, true
}

// Expire deactivates the current session if it has been idle longer than
// timeout. It returns the expired session.
func (t *Tracker) Expire(now time.Time, timeout time.Duration) (Session, bool) {
	cur := t.current.Load()
	if cur == nil || !cur.Active || !cur.Idle(now, timeout) {
		return Session{}, false
	}
	next := *cur
	next.Active = false
	t.current.Store(&next)
	return next, true
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
