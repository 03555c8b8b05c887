// Package engine - stress_system.go
// Stress resource, the daily click-penalty timer and the failure evaluator.
package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/rules"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
)

// Stress change causes.
const (
	CauseConsume  = "CONSUME"
	CausePurchase = "PURCHASE"
	CauseDayEnd   = "DAY_END"
)

// StressChangePayload records an applied stress modification for popups and audit.
type StressChangePayload struct {
	Previous float64    `json:"previous"`
	Current  float64    `json:"current"`
	Delta    float64    `json:"delta"`
	Label    string     `json:"label"` // Signed popup text, e.g. "+5"
	Cause    string     `json:"cause"`
	Origin   item.Point `json:"origin"`
}

// DayEndedPayload is emitted every time the click-penalty timer fires.
type DayEndedPayload struct {
	Day          int     `json:"day"`
	ActedToday   bool    `json:"acted_today"`
	StackPenalty float64 `json:"stack_penalty"`
	Delta        float64 `json:"delta"`
}

// StressSystem owns every mutation of the stress level.
type StressSystem struct {
	system
}

// NewStressSystem creates the stress resource.
func NewStressSystem(eventLog *events.EventLog, log *logger.Logger) *StressSystem {
	return &StressSystem{system{eventLog: eventLog, logger: log}}
}

// ApplyDelta adds delta to the stress level. Decrements at or below zero are
// rejected; increments have no ceiling. Emits STRESS_CHANGE when applied.
func (ss *StressSystem) ApplyDelta(w *World, delta float64, cause string, origin item.Point) bool {
	previous := w.stress
	next, applied := rules.ApplyStress(previous, delta)
	if !applied {
		return false
	}
	w.stress = next

	ss.emit(w, events.EventTypeStressChange, ActorStress, w.sessionID, StressChangePayload{
		Previous: previous,
		Current:  next,
		Delta:    delta,
		Label:    fmt.Sprintf("%+.0f", delta),
		Cause:    cause,
		Origin:   origin,
	})
	return true
}

// TickDay advances the click-penalty timer and ends as many days as dt covers.
func (ss *StressSystem) TickDay(w *World, dt time.Duration) int {
	w.dayElapsed += dt
	ended := 0
	for w.dayElapsed >= w.cfg.DayLength {
		w.dayElapsed -= w.cfg.DayLength
		ss.endDay(w)
		ended++
	}
	return ended
}

func (ss *StressSystem) endDay(w *World) {
	delta := rules.DayPenalty(w.actedToday, w.stackPenalty)
	payload := DayEndedPayload{
		Day:          w.day,
		ActedToday:   w.actedToday,
		StackPenalty: w.stackPenalty,
		Delta:        delta,
	}

	ss.ApplyDelta(w, delta, CauseDayEnd, w.cfg.Layout.StressMeter)
	w.actedToday = false
	ss.emit(w, events.EventTypeDayEnded, ActorStress, w.sessionID, payload)
	ss.logger.Event(string(events.EventTypeDayEnded), ActorStress,
		fmt.Sprintf("day:%d acted:%t penalty:%.1f stress:%.1f", payload.Day, payload.ActedToday, delta, w.stress))
	w.day++
}

// CheckFailure moves a playing session to Failed once stress passes the threshold.
func (ss *StressSystem) CheckFailure(w *World) bool {
	if w.state != session.StatePlaying || !rules.IsFailed(w.stress) {
		return false
	}
	ss.logger.Warn(fmt.Sprintf("BREAKDOWN: stress %.1f exceeded %.0f", w.stress, rules.FailureThreshold))
	return ss.transition(w, session.StateFailed, "STRESS")
}
