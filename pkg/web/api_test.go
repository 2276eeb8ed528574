package web

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/mavtrap/pkg/database"
	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/session"
)

type fakeEngine struct {
	stats     *session.Stats
	sessions  *session.Tracker
	connected bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{stats: &session.Stats{}, sessions: session.NewTracker(), connected: true}
}

func (e *fakeEngine) Stats() *session.Stats      { return e.stats }
func (e *fakeEngine) Sessions() *session.Tracker { return e.sessions }
func (e *fakeEngine) Connected() bool            { return e.connected }

// decoyEngine has no backing link
type decoyEngine struct {
	stats    *session.Stats
	sessions *session.Tracker
}

func (e decoyEngine) Stats() *session.Stats      { return e.stats }
func (e decoyEngine) Sessions() *session.Tracker { return e.sessions }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func getJSON(t *testing.T, handler http.HandlerFunc, target string, v interface{}) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	resp := w.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp
}

func newEventStore(t *testing.T) *database.EventRepository {
	t.Helper()
	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "web.db")}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db.Events()
}

func TestAPI_Status(t *testing.T) {
	api := NewAPI(testLogger())

	var result map[string]interface{}
	resp := getJSON(t, api.HandleStatus, "/api/status", &result)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if result["status"] != "running" || result["service"] != "mavtrap" {
		t.Errorf("Unexpected status %v", result)
	}
	if result["session"] != nil {
		t.Errorf("Expected null session without engine, got %v", result["session"])
	}
}

func TestAPI_StatusReportsVersion(t *testing.T) {
	prev := GetVersionInfo()
	defer SetVersionInfo(prev.Version, prev.Commit, prev.BuildTime)
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	status := NewAPI(testLogger()).Status()
	if status["version"] != "1.2.3" || status["commit"] != "abc123" || status["build_time"] != "2026-01-01" {
		t.Errorf("Unexpected version info %v", status)
	}
}

func TestAPI_StatusWithRelayEngine(t *testing.T) {
	engine := newFakeEngine()
	engine.sessions.Touch(&net.UDPAddr{IP: net.IPv4(203, 0, 113, 7), Port: 14550}, time.Now())
	engine.connected = false

	api := NewAPI(testLogger()).WithEngine(events.ModeRelay, engine)

	var result map[string]interface{}
	getJSON(t, api.HandleStatus, "/api/status", &result)

	if result["mode"] != "relay" {
		t.Errorf("Expected relay mode, got %v", result["mode"])
	}
	if result["backend_connected"] != false {
		t.Errorf("Expected backend_connected false, got %v", result["backend_connected"])
	}
	sess, ok := result["session"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected session object, got %v", result["session"])
	}
	if sess["peer_ip"] != "203.0.113.7" || sess["peer_port"] != float64(14550) || sess["active"] != true {
		t.Errorf("Unexpected session %v", sess)
	}
}

func TestAPI_StatusWithDecoyEngine(t *testing.T) {
	api := NewAPI(testLogger()).WithEngine(events.ModeDecoy, decoyEngine{stats: &session.Stats{}, sessions: session.NewTracker()})

	var result map[string]interface{}
	getJSON(t, api.HandleStatus, "/api/status", &result)

	if _, ok := result["backend_connected"]; ok {
		t.Error("Expected no backend_connected in decoy mode")
	}
}

func TestAPI_Stats(t *testing.T) {
	engine := newFakeEngine()
	engine.stats.BytesFromClient.Add(2048)
	api := NewAPI(testLogger()).
		WithEngine(events.ModeRelay, engine).
		WithDispatcher(func() events.DispatcherStats { return events.DispatcherStats{Written: 7} })

	var result struct {
		Traffic    session.Snapshot       `json:"traffic"`
		Human      map[string]string      `json:"human"`
		Dispatcher events.DispatcherStats `json:"dispatcher"`
	}
	getJSON(t, api.HandleStats, "/api/stats", &result)

	if result.Traffic.BytesFromClient != 2048 {
		t.Errorf("Expected 2048 bytes, got %d", result.Traffic.BytesFromClient)
	}
	if result.Human["from_client"] != "2.0 kB" {
		t.Errorf("Expected humanized 2.0 kB, got %q", result.Human["from_client"])
	}
	if result.Dispatcher.Written != 7 {
		t.Errorf("Expected 7 written, got %d", result.Dispatcher.Written)
	}
}

func TestAPI_Events(t *testing.T) {
	store := newEventStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		typ := "command"
		if i%2 == 0 {
			typ = "heartbeat"
		}
		if err := store.Create(&database.Event{Time: base.Add(time.Duration(i) * time.Minute), Type: typ, PeerIP: "10.0.0.1"}); err != nil {
			t.Fatal(err)
		}
	}
	api := NewAPI(testLogger()).WithEventStore(store)

	var page struct {
		Events  []database.Event `json:"events"`
		Total   int64            `json:"total"`
		Page    int              `json:"page"`
		PerPage int              `json:"per_page"`
	}
	getJSON(t, api.HandleEvents, "/api/events?per_page=2&page=2", &page)

	if page.Total != 5 || page.Page != 2 || page.PerPage != 2 {
		t.Errorf("Unexpected paging %+v", page)
	}
	if len(page.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(page.Events))
	}
	if !page.Events[0].Time.After(page.Events[1].Time) {
		t.Error("Expected newest first")
	}

	getJSON(t, api.HandleEvents, "/api/events?type=command", &page)
	if page.Total != 2 || page.PerPage != defaultPerPage {
		t.Errorf("Expected 2 command events with default page size, got %+v", page)
	}

	getJSON(t, api.HandleEvents, "/api/events?per_page=100000", &page)
	if page.PerPage != maxPerPage {
		t.Errorf("Expected per_page capped at %d, got %d", maxPerPage, page.PerPage)
	}
}

func TestAPI_EventSummary(t *testing.T) {
	store := newEventStore(t)
	for _, typ := range []string{"command", "command", "connection"} {
		if err := store.Create(&database.Event{Type: typ}); err != nil {
			t.Fatal(err)
		}
	}
	api := NewAPI(testLogger()).WithEventStore(store)

	var counts []database.TypeCount
	getJSON(t, api.HandleEventSummary, "/api/events/summary", &counts)

	got := map[string]int64{}
	for _, c := range counts {
		got[c.Type] = c.Count
	}
	if got["command"] != 2 || got["connection"] != 1 {
		t.Errorf("Unexpected counts %v", got)
	}
}

func TestAPI_EventsWithoutStore(t *testing.T) {
	api := NewAPI(testLogger())

	resp := getJSON(t, api.HandleEvents, "/api/events", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
	resp = getJSON(t, api.HandleEventSummary, "/api/events/summary", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	api := NewAPI(testLogger())

	handlers := map[string]http.HandlerFunc{
		"/api/status": api.HandleStatus,
		"/api/stats":  api.HandleStats,
		"/api/events": api.HandleEvents,
	}

	for path, handler := range handlers {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status 405, got %d", path, w.Code)
		}
	}
}
