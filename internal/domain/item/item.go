// Package item defines the core domain entities for backlog items and their catalog.
// This package is PURE and must NOT import any infrastructure packages.
package item

import "time"

// Category represents the kind of item piling up in the backlog.
type Category string

const (
	CategoryBook  Category = "BOOK"
	CategoryComic Category = "COMIC"
	CategoryGame  Category = "GAME"
	CategoryMovie Category = "MOVIE"
)

// categoryOrder is the stable order used for stacks, tallies and snapshots.
var categoryOrder = []Category{CategoryBook, CategoryComic, CategoryGame, CategoryMovie}

// Categories returns every known category in stable order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// Size is the visual footprint of an item. Height is what fills a stack.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Definition provides metadata about a category.
type Definition struct {
	Category        Category
	Label           string
	Size            Size
	ConsumeDuration time.Duration
	Variants        int // Number of catalog skins; variant indexes are [0, Variants)
}

// ID identifies a single item instance for the lifetime of a session.
type ID uint64

// Location tags where an item currently lives.
type Location string

const (
	LocationLoose    Location = "LOOSE"    // Detached, waiting for restack
	LocationInStack  Location = "IN_STACK" // Owned by a stack
	LocationDragging Location = "DRAGGING" // Held by the player
	LocationInQueue  Location = "IN_QUEUE" // Waiting for the active slot
	LocationActive   Location = "ACTIVE"   // Being consumed
	LocationConsumed Location = "CONSUMED" // Finished, about to be destroyed
)

// Point is a 2D position used for layout and popup origins.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Item is a single purchased thing in the backlog.
type Item struct {
	ID       ID
	Category Category
	Variant  int
	Location Location
	StackID  int // Valid only while Location == LocationInStack
	Position Point
}
