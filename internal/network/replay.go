// Package network - replay.go
// Replay endpoints: JSON export of a session's event history, aggregate
// stats, the leaderboard and the end-of-session recap.
package network

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/infra/storage"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// CurrentSession reports the running session id.
type CurrentSession interface {
	SessionID() string
}

// ReplayHandler provides the replay API.
type ReplayHandler struct {
	events        storage.EventRepository
	sessions      storage.SessionRepository // nil without a database
	reconstructor *storage.Reconstructor
	current       CurrentSession
	logger        *logger.Logger
}

// NewReplayHandler creates a new replay handler. eventRepo may be the SQLite
// repository or a view over the in-memory log.
func NewReplayHandler(eventRepo storage.EventRepository, sessions storage.SessionRepository, current CurrentSession, log *logger.Logger) *ReplayHandler {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &ReplayHandler{
		events:        eventRepo,
		sessions:      sessions,
		reconstructor: storage.NewReconstructor(eventRepo),
		current:       current,
		logger:        log,
	}
}

// ReplayResponse is the API response for an event replay.
type ReplayResponse struct {
	SessionID   string          `json:"session_id"`
	TotalEvents int             `json:"total_events"`
	FilteredBy  string          `json:"filtered_by,omitempty"`
	GeneratedAt string          `json:"generated_at"`
	Events      []storage.Event `json:"events"`
}

// sessionParam falls back to the running session.
func (rh *ReplayHandler) sessionParam(r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	if rh.current != nil {
		return rh.current.SessionID()
	}
	return ""
}

// HandleReplay returns the event history of a session.
// GET /api/events/replay?session_id=XXX&type=ITEM_CONSUMED&day=N
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := rh.sessionParam(r)
	if sessionID == "" {
		jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	eventType := r.URL.Query().Get("type")
	dayStr := r.URL.Query().Get("day")

	var (
		found      []storage.Event
		err        error
		filterDesc string
	)
	switch {
	case eventType != "":
		found, err = rh.events.GetByEventType(r.Context(), sessionID, eventType)
		filterDesc = "Type " + eventType
	case dayStr != "":
		day, convErr := strconv.Atoi(dayStr)
		if convErr != nil {
			jsonError(w, "Invalid day", http.StatusBadRequest)
			return
		}
		found, err = rh.events.GetByGameDay(r.Context(), sessionID, day)
		filterDesc = "Day " + dayStr
	default:
		found, err = rh.events.GetBySessionID(r.Context(), sessionID)
	}
	if err != nil {
		rh.logger.Error("Replay query failed: " + err.Error())
		jsonError(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	if found == nil {
		found = []storage.Event{}
	}

	rh.logger.Event("EVENT_REPLAY", "SPECTATOR", "SessionID:"+sessionID+" Events:"+strconv.Itoa(len(found)))
	jsonSuccess(w, ReplayResponse{
		SessionID:   sessionID,
		TotalEvents: len(found),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      found,
	})
}

// HandleStats returns event counts by type.
// GET /api/events/stats?session_id=XXX
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := rh.sessionParam(r)
	if sessionID == "" {
		jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	counts, err := rh.events.CountByType(r.Context(), sessionID)
	if err != nil {
		jsonError(w, "Failed to count events", http.StatusInternalServerError)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	jsonSuccess(w, map[string]interface{}{
		"session_id":   sessionID,
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": total,
		"by_type":      counts,
	})
}

// HandleBest returns the leaderboard of failed sessions.
// GET /api/sessions/best?limit=N
func (rh *ReplayHandler) HandleBest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if rh.sessions == nil {
		jsonError(w, "Session history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	best, err := rh.sessions.Best(r.Context(), limit)
	if err != nil {
		rh.logger.Error("Leaderboard query failed: " + err.Error())
		jsonError(w, "Failed to load sessions", http.StatusInternalServerError)
		return
	}
	if best == nil {
		best = []storage.SessionRecord{}
	}
	jsonSuccess(w, map[string]interface{}{"sessions": best})
}

// HandleRecap returns the human-readable recap and summary of a session.
// GET /api/sessions/recap?session_id=XXX&since_day=N
func (rh *ReplayHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := rh.sessionParam(r)
	if sessionID == "" {
		jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	sinceDay := 0
	if s := r.URL.Query().Get("since_day"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, "Invalid since_day", http.StatusBadRequest)
			return
		}
		sinceDay = n
	}

	summary, err := rh.reconstructor.RebuildSession(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "Failed to rebuild session", http.StatusInternalServerError)
		return
	}

	recap, err := rh.reconstructor.GenerateRecap(r.Context(), sessionID, sinceDay)
	if err != nil {
		jsonError(w, "Failed to build recap", http.StatusInternalServerError)
		return
	}

	jsonSuccess(w, map[string]interface{}{
		"summary": summary,
		"recap":   recap,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/events/replay", rh.HandleReplay)
	mux.HandleFunc("/api/events/stats", rh.HandleStats)
	mux.HandleFunc("/api/sessions/best", rh.HandleBest)
	mux.HandleFunc("/api/sessions/recap", rh.HandleRecap)
}
