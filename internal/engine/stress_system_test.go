package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
)

func TestApplyDeltaFloor(t *testing.T) {
	r := newRig(t, quietConfig())
	r.w.stress = 0

	assert.False(t, r.stress.ApplyDelta(r.w, -5, CauseConsume, item.Point{}))
	assert.Equal(t, 0.0, r.w.stress)
	assert.Equal(t, 0, r.count(events.EventTypeStressChange))
}

func TestNoCeilingThenFailure(t *testing.T) {
	r := newRig(t, quietConfig())
	r.w.stress = 98

	require.True(t, r.stress.ApplyDelta(r.w, 5, CauseDayEnd, item.Point{}))
	assert.Equal(t, 103.0, r.w.stress)

	change := r.el.GetByType(events.EventTypeStressChange)[0].Payload.(StressChangePayload)
	assert.Equal(t, "+5", change.Label)
	assert.Equal(t, 98.0, change.Previous)

	assert.True(t, r.stress.CheckFailure(r.w))
	assert.Equal(t, session.StateFailed, r.w.state)
	assert.False(t, r.stress.CheckFailure(r.w), "already failed")

	states := r.el.GetByType(events.EventTypeStateChanged)
	require.Len(t, states, 1)
	assert.Equal(t, session.StateFailed, states[0].Payload.(StateChangedPayload).To)
}

func TestThresholdItselfDoesNotFail(t *testing.T) {
	r := newRig(t, quietConfig())
	r.w.stress = 100
	assert.False(t, r.stress.CheckFailure(r.w))
	assert.Equal(t, session.StatePlaying, r.w.state)
}

func TestDayEndPenalty(t *testing.T) {
	cfg := quietConfig()
	cfg.DayLength = 5 * time.Second
	r := newRig(t, cfg)

	// Idle day
	assert.Equal(t, 0, r.stress.TickDay(r.w, 4*time.Second))
	assert.Equal(t, 1, r.stress.TickDay(r.w, time.Second))
	assert.Equal(t, 15.0, r.w.stress)
	assert.Equal(t, 2, r.w.day)

	// Acted day with two misplaced items
	r.w.actedToday = true
	r.place(t, item.CategoryBook, movieStack)
	r.place(t, item.CategoryBook, movieStack)
	r.stacks.RecomputePenalty(r.w)
	assert.Equal(t, 1, r.stress.TickDay(r.w, 5*time.Second))
	assert.Equal(t, 18.0, r.w.stress)
	assert.False(t, r.w.actedToday)

	days := r.el.GetByType(events.EventTypeDayEnded)
	require.Len(t, days, 2)
	assert.Equal(t, DayEndedPayload{Day: 1, ActedToday: false, StackPenalty: 0, Delta: 5}, days[0].Payload)
	assert.Equal(t, DayEndedPayload{Day: 2, ActedToday: true, StackPenalty: 1, Delta: 3}, days[1].Payload)
}

func TestLongTickEndsSeveralDays(t *testing.T) {
	cfg := quietConfig()
	cfg.DayLength = 5 * time.Second
	r := newRig(t, cfg)

	assert.Equal(t, 3, r.stress.TickDay(r.w, 16*time.Second))
	assert.Equal(t, 25.0, r.w.stress)
	assert.Equal(t, time.Second, r.w.dayElapsed)
}
