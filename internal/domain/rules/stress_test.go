package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyStressFloor(t *testing.T) {
	next, applied := ApplyStress(0, -5)
	assert.False(t, applied)
	assert.Equal(t, 0.0, next)

	next, applied = ApplyStress(0.5, -1)
	assert.True(t, applied)
	assert.Equal(t, -0.5, next)

	next, applied = ApplyStress(-0.5, -1)
	assert.False(t, applied)
	assert.Equal(t, -0.5, next)
}

func TestApplyStressNoCeiling(t *testing.T) {
	next, applied := ApplyStress(98, 5)
	assert.True(t, applied)
	assert.Equal(t, 103.0, next)
	assert.True(t, IsFailed(next))
	assert.False(t, IsFailed(FailureThreshold))
}

func TestDayPenalty(t *testing.T) {
	assert.Equal(t, 5.0, DayPenalty(false, 0))
	assert.Equal(t, 2.0, DayPenalty(true, 0))
	assert.Equal(t, 3.5, DayPenalty(true, StackPenalty(3)))
}
