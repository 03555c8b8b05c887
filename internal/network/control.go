// Package network - control.go
// REST control surface for tools and spectators that do not hold a websocket.
package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/optimization"
)

// ControlAPI exposes snapshot, purchase and session lifecycle over HTTP.
type ControlAPI struct {
	sim    Simulation
	tuning *optimization.Config
	logger *logger.Logger
}

// NewControlAPI creates the REST control handler.
func NewControlAPI(sim Simulation, tuning *optimization.Config, log *logger.Logger) *ControlAPI {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &ControlAPI{sim: sim, tuning: tuning, logger: log}
}

// HandleSnapshot returns the current world.
// GET /api/snapshot
func (ca *ControlAPI) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, ca.sim.Snapshot())
}

// HandlePurchase runs one buy click.
// POST /api/purchase
func (ca *ControlAPI) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := ca.sim.Purchase()
	if errors.Is(err, engine.ErrNotPlaying) {
		jsonError(w, "No session is playing", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ca.logger.Event("REST_PURCHASE", "PLAYER", "spawned:"+strconv.Itoa(res.Spawned))
	jsonSuccess(w, map[string]interface{}{
		"success":  true,
		"purchase": res,
	})
}

// HandleStart leaves the start screen.
// POST /api/session/start
func (ca *ControlAPI) HandleStart(w http.ResponseWriter, r *http.Request) {
	ca.lifecycle(w, r, ca.sim.StartSession)
}

// HandleRestart throws the current session away and plays a new one.
// POST /api/session/restart
func (ca *ControlAPI) HandleRestart(w http.ResponseWriter, r *http.Request) {
	ca.lifecycle(w, r, ca.sim.Restart)
}

func (ca *ControlAPI) lifecycle(w http.ResponseWriter, r *http.Request, fn func() (string, error)) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := fn()
	if errors.Is(err, engine.ErrInvalidTransition) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	jsonSuccess(w, map[string]interface{}{
		"success":    true,
		"session_id": id,
		"state":      ca.sim.State(),
		"timestamp":  time.Now().Unix(),
	})
}

// HandleTuning returns the active tuning profile.
// GET /api/tuning
func (ca *ControlAPI) HandleTuning(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, ca.tuning)
}

// HandleRecommendations turns the live metrics into tuning advice.
// GET /api/tuning/recommendations
func (ca *ControlAPI) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec := optimization.Analyze(metrics.Get().Snapshot())
	jsonSuccess(w, map[string]interface{}{
		"current":         ca.tuning,
		"recommendations": rec,
		"suggested":       optimization.ApplyRecommendations(ca.tuning.Clone(), rec),
	})
}

// RegisterRoutes sets up the control API routes.
func (ca *ControlAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/snapshot", ca.HandleSnapshot)
	mux.HandleFunc("/api/purchase", ca.HandlePurchase)
	mux.HandleFunc("/api/session/start", ca.HandleStart)
	mux.HandleFunc("/api/session/restart", ca.HandleRestart)
	mux.HandleFunc("/api/tuning", ca.HandleTuning)
	mux.HandleFunc("/api/tuning/recommendations", ca.HandleRecommendations)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
