package engine

import (
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// newRNG returns the single random source of a simulation context.
// The same seed always yields the same spawn sequence.
func newRNG(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.New(rand.NewChaCha8(key))
}

// resolveSeed returns seed, or a wall-clock seed when seed is zero.
func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}
