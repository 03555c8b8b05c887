package engine

import "github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"

// VariantCount is one histogram bucket.
type VariantCount struct {
	Variant int `json:"variant"`
	Count   int `json:"count"`
}

// histogram counts variants and remembers the order they were first seen.
type histogram struct {
	order  []int
	counts map[int]int
}

// Tally counts consumed items.
type Tally struct {
	Total  int
	Books  int
	Comics int
	Movies int
	Games  int

	variants map[item.Category]*histogram
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{variants: make(map[item.Category]*histogram)}
}

// Record counts one consumed item.
func (t *Tally) Record(cat item.Category, variant int) {
	t.Total++
	switch cat {
	case item.CategoryBook:
		t.Books++
	case item.CategoryComic:
		t.Comics++
	case item.CategoryMovie:
		t.Movies++
	case item.CategoryGame:
		t.Games++
	}

	h, ok := t.variants[cat]
	if !ok {
		h = &histogram{counts: make(map[int]int)}
		t.variants[cat] = h
	}
	if _, seen := h.counts[variant]; !seen {
		h.order = append(h.order, variant)
	}
	h.counts[variant]++
}

// CategoryTotal returns how many items of cat were consumed.
func (t *Tally) CategoryTotal(cat item.Category) int {
	switch cat {
	case item.CategoryBook:
		return t.Books
	case item.CategoryComic:
		return t.Comics
	case item.CategoryMovie:
		return t.Movies
	case item.CategoryGame:
		return t.Games
	}
	return 0
}

// Favorite returns the most consumed variant of cat. Ties go to the variant
// seen first.
func (t *Tally) Favorite(cat item.Category) (VariantCount, bool) {
	h, ok := t.variants[cat]
	if !ok || len(h.order) == 0 {
		return VariantCount{}, false
	}
	best := VariantCount{Variant: h.order[0], Count: h.counts[h.order[0]]}
	for _, v := range h.order[1:] {
		if c := h.counts[v]; c > best.Count {
			best = VariantCount{Variant: v, Count: c}
		}
	}
	return best, true
}

// Histogram returns the buckets of cat in first-seen order.
func (t *Tally) Histogram(cat item.Category) []VariantCount {
	h, ok := t.variants[cat]
	if !ok {
		return nil
	}
	out := make([]VariantCount, 0, len(h.order))
	for _, v := range h.order {
		out = append(out, VariantCount{Variant: v, Count: h.counts[v]})
	}
	return out
}
