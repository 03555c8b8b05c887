package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateStartScreen, StatePlaying))
	assert.False(t, CanTransition(StateStartScreen, StateFailed))
	assert.True(t, CanTransition(StatePlaying, StateFailed))
	assert.True(t, CanTransition(StatePlaying, StatePlaying))
	assert.True(t, CanTransition(StateFailed, StatePlaying))
	assert.False(t, CanTransition(StateFailed, StateStartScreen))
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StatePlaying.IsTerminal())
}
