package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dbehnke/mavtrap/pkg/database"
	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/logger"
	"github.com/dbehnke/mavtrap/pkg/session"
)

// Page size limits for /api/events
const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// Engine is the running decoy or relay as seen by the dashboard
type Engine interface {
	Stats() *session.Stats
	Sessions() *session.Tracker
}

// linkState is implemented by engines with a backing link
type linkState interface {
	Connected() bool
}

// EventStore is the persisted event history
type EventStore interface {
	GetRecentPaginated(eventType string, page, perPage int) ([]database.Event, int64, error)
	CountByType() ([]database.TypeCount, error)
}

// API handles REST API endpoints
type API struct {
	logger     *logger.Logger
	started    time.Time
	mode       string
	engine     Engine
	store      EventStore
	dispatcher func() events.DispatcherStats
}

// NewAPI creates a new API instance
func NewAPI(log *logger.Logger) *API {
	return &API{
		logger:  log,
		started: time.Now(),
	}
}

// WithEngine attaches the running engine and its mode
func (a *API) WithEngine(mode string, engine Engine) *API {
	a.mode = mode
	a.engine = engine
	return a
}

// WithEventStore attaches the persisted event history
func (a *API) WithEventStore(store EventStore) *API {
	a.store = store
	return a
}

// WithDispatcher attaches the event dispatcher counters
func (a *API) WithDispatcher(fn func() events.DispatcherStats) *API {
	a.dispatcher = fn
	return a
}

// Status returns the payload of /api/status
func (a *API) Status() map[string]interface{} {
	build := GetVersionInfo()
	status := map[string]interface{}{
		"status":     "running",
		"service":    "mavtrap",
		"version":    build.Version,
		"commit":     build.Commit,
		"build_time": build.BuildTime,
		"mode":       a.mode,
		"uptime":     time.Since(a.started).Round(time.Second).String(),
		"session":    nil,
	}
	if a.engine == nil {
		return status
	}
	if s, ok := a.engine.Sessions().Snapshot(); ok {
		status["session"] = map[string]interface{}{
			"id":         s.ID,
			"peer_ip":    s.IP(),
			"peer_port":  s.Port(),
			"first_seen": s.FirstSeen,
			"last_seen":  s.LastSeen,
			"datagrams":  s.Datagrams,
			"active":     s.Active,
		}
	}
	if l, ok := a.engine.(linkState); ok {
		status["backend_connected"] = l.Connected()
	}
	return status
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.writeJSON(w, http.StatusOK, a.Status())
}

// HandleStats handles the /api/stats endpoint
func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{}
	if a.engine != nil {
		snap := a.engine.Stats().Snapshot()
		response["traffic"] = snap
		response["human"] = snap.Human()
	}
	if a.dispatcher != nil {
		response["dispatcher"] = a.dispatcher()
	}
	a.writeJSON(w, http.StatusOK, response)
}

// HandleEvents handles the /api/events endpoint.
// Query: type, page (1-based), per_page.
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.store == nil {
		http.Error(w, "Event store disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	perPage := queryInt(q.Get("per_page"), defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	list, total, err := a.store.GetRecentPaginated(q.Get("type"), page, perPage)
	if err != nil {
		a.logger.Error("Failed to load events", logger.Error(err))
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []database.Event{}
	}

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":   list,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// HandleEventSummary handles the /api/events/summary endpoint
func (a *API) HandleEventSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.store == nil {
		http.Error(w, "Event store disabled", http.StatusServiceUnavailable)
		return
	}

	counts, err := a.store.CountByType()
	if err != nil {
		a.logger.Error("Failed to count events", logger.Error(err))
		http.Error(w, "Failed to count events", http.StatusInternalServerError)
		return
	}
	if counts == nil {
		counts = []database.TypeCount{}
	}
	a.writeJSON(w, http.StatusOK, counts)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
