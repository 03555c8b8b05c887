package item

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Catalog is the static lookup table of category definitions.
type Catalog struct {
	defs map[Category]Definition
}

// DefaultCatalog returns the built-in catalog the game ships with.
func DefaultCatalog() *Catalog {
	return &Catalog{defs: map[Category]Definition{
		CategoryBook: {
			Category:        CategoryBook,
			Label:           "Book",
			Size:            Size{Width: 40, Height: 17},
			ConsumeDuration: 5 * time.Second,
			Variants:        6,
		},
		CategoryComic: {
			Category:        CategoryComic,
			Label:           "Comic",
			Size:            Size{Width: 36, Height: 9},
			ConsumeDuration: 3 * time.Second,
			Variants:        4,
		},
		CategoryGame: {
			Category:        CategoryGame,
			Label:           "Game",
			Size:            Size{Width: 34, Height: 12},
			ConsumeDuration: 8 * time.Second,
			Variants:        5,
		},
		CategoryMovie: {
			Category:        CategoryMovie,
			Label:           "Movie",
			Size:            Size{Width: 34, Height: 10},
			ConsumeDuration: 4 * time.Second,
			Variants:        5,
		},
	}}
}

// Get returns the definition for a category.
func (c *Catalog) Get(cat Category) (Definition, bool) {
	def, ok := c.defs[cat]
	return def, ok
}

// ConsumeDuration returns how long an item of the category takes to consume.
func (c *Catalog) ConsumeDuration(cat Category) time.Duration {
	return c.defs[cat].ConsumeDuration
}

// DisplayLabel returns the human-facing label of a category.
func (c *Catalog) DisplayLabel(cat Category) string {
	return c.defs[cat].Label
}

// SizeOf returns the visual size hint of a category.
func (c *Catalog) SizeOf(cat Category) Size {
	return c.defs[cat].Size
}

// VariantCount returns how many skins a category has.
func (c *Catalog) VariantCount(cat Category) int {
	return c.defs[cat].Variants
}

// FileEntry is one designer-authored category in a catalog file.
type FileEntry struct {
	Category       Category `json:"category" jsonschema:"title=Category,enum=BOOK,enum=COMIC,enum=GAME,enum=MOVIE,required"`
	Label          string   `json:"label" jsonschema:"title=Label,description=Display label shown to players,minLength=1,required"`
	Width          float64  `json:"width" jsonschema:"title=Width,exclusiveMinimum=0"`
	Height         float64  `json:"height" jsonschema:"title=Height,description=Height added to a stack by one item,exclusiveMinimum=0,required"`
	ConsumeSeconds float64  `json:"consume_seconds" jsonschema:"title=Consume seconds,exclusiveMinimum=0,required"`
	Variants       int      `json:"variants" jsonschema:"title=Variants,description=Number of skins available for the category,minimum=1,required"`
}

// FileDefinitions is the root document of a catalog file.
type FileDefinitions struct {
	Categories []FileEntry `json:"categories" jsonschema:"title=Categories,minItems=4,required"`
}

// LoadCatalog parses a JSON catalog document. Every category must be present exactly once.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc FileDefinitions
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	defs := make(map[Category]Definition, len(doc.Categories))
	for i, e := range doc.Categories {
		if !e.Category.Valid() {
			return nil, fmt.Errorf("catalog entry %d: unknown category %q", i, e.Category)
		}
		if _, dup := defs[e.Category]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate category %s", i, e.Category)
		}
		if e.Height <= 0 || e.ConsumeSeconds <= 0 || e.Variants < 1 {
			return nil, fmt.Errorf("catalog entry %d (%s): height, consume_seconds and variants must be positive", i, e.Category)
		}
		label := e.Label
		if label == "" {
			label = string(e.Category)
		}
		defs[e.Category] = Definition{
			Category:        e.Category,
			Label:           label,
			Size:            Size{Width: e.Width, Height: e.Height},
			ConsumeDuration: time.Duration(e.ConsumeSeconds * float64(time.Second)),
			Variants:        e.Variants,
		}
	}

	for _, cat := range categoryOrder {
		if _, ok := defs[cat]; !ok {
			return nil, fmt.Errorf("catalog is missing category %s", cat)
		}
	}

	return &Catalog{defs: defs}, nil
}

// LoadCatalogFile reads a catalog document from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f)
}
