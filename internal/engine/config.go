package engine

import (
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
)

// Config holds the tunables of one simulation context.
type Config struct {
	// Seed feeds the ChaCha8 source. Zero picks a seed from the wall clock.
	Seed uint64

	MaxStackHeight float64 // A stack is full once its fill height exceeds this
	QueueCapacity  int

	DayLength     time.Duration // Click-penalty period
	SpawnInterval time.Duration // Periodic free spawn, 0 disables
	InitialItems  int           // Random spawns at session start

	BulkChance float64 // Probability a purchase turns into a bulk event; 0 disables them
	BulkMin    int     // Inclusive burst bounds
	BulkMax    int

	TickRate time.Duration

	Layout Layout
}

// Layout holds the world positions the renderer and popups rely on.
type Layout struct {
	StackOrigins     map[item.Category]item.Point // Base of each stack
	QueueOrigin      item.Point
	QueueFirstOffset item.Point // Slot 0 relative to QueueOrigin
	QueueSpacing     float64    // X step between queue slots
	ActiveSlot       item.Point
	StressMeter      item.Point // Origin for day-penalty popups
	BuyButton        item.Point // Origin for purchase popups
}

// DefaultConfig returns the settings the game ships with.
func DefaultConfig() Config {
	return Config{
		MaxStackHeight: 240,
		QueueCapacity:  2,
		DayLength:      5 * time.Second,
		SpawnInterval:  8 * time.Second,
		InitialItems:   6,
		BulkChance:     0.1,
		BulkMin:        4,
		BulkMax:        8,
		TickRate:       50 * time.Millisecond,
		Layout:         DefaultLayout(),
	}
}

// DefaultLayout mirrors the on-screen arrangement of the original scene.
func DefaultLayout() Layout {
	return Layout{
		StackOrigins: map[item.Category]item.Point{
			item.CategoryBook:  {X: -240, Y: -120},
			item.CategoryComic: {X: -160, Y: -120},
			item.CategoryGame:  {X: 160, Y: -120},
			item.CategoryMovie: {X: 240, Y: -120},
		},
		QueueOrigin:      item.Point{X: 0, Y: -300},
		QueueFirstOffset: item.Point{X: -125, Y: 0},
		QueueSpacing:     50,
		ActiveSlot:       item.Point{X: 0, Y: -200},
		StressMeter:      item.Point{X: -299, Y: 41},
		BuyButton:        item.Point{X: 290, Y: 149},
	}
}

// withDefaults fills zero values so a partially built Config still runs.
// BulkChance is only clamped to [0, 1] because zero is a valid "no bulk
// events" setting.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxStackHeight <= 0 {
		c.MaxStackHeight = def.MaxStackHeight
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.DayLength <= 0 {
		c.DayLength = def.DayLength
	}
	if c.SpawnInterval < 0 {
		c.SpawnInterval = 0
	}
	if c.InitialItems < 0 {
		c.InitialItems = 0
	}
	c.BulkChance = min(max(c.BulkChance, 0), 1)
	if c.BulkMin <= 0 {
		c.BulkMin = def.BulkMin
	}
	if c.BulkMax < c.BulkMin {
		c.BulkMax = c.BulkMin
	}
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.Layout.StackOrigins == nil {
		c.Layout = def.Layout
	}
	return c
}
