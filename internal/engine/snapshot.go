package engine

import (
	"sort"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/session"
)

// ItemView is the renderer's view of one item.
type ItemView struct {
	ID       item.ID       `json:"id"`
	Category item.Category `json:"category"`
	Variant  int           `json:"variant"`
	Location item.Location `json:"location"`
	Position item.Point    `json:"position"`
}

// StackView is the renderer's view of one stack.
type StackView struct {
	ID         int           `json:"id"`
	Category   item.Category `json:"category"`
	Items      []ItemView    `json:"items"`
	Height     float64       `json:"height"`
	Full       bool          `json:"full"`
	Mismatched bool          `json:"mismatched"`
}

// ActiveView describes the consumption in progress.
type ActiveView struct {
	Item              ItemView `json:"item"`
	FractionRemaining float64  `json:"fraction_remaining"`
}

// CategoryTally is the per-category part of a tally view.
type CategoryTally struct {
	Category  item.Category  `json:"category"`
	Label     string         `json:"label"`
	Total     int            `json:"total"`
	Favorite  *VariantCount  `json:"favorite,omitempty"`
	Histogram []VariantCount `json:"histogram,omitempty"`
}

// TallyView is the consumption summary shown on the HUD and fail screen.
type TallyView struct {
	Total      int             `json:"total"`
	Books      int             `json:"books"`
	Comics     int             `json:"comics"`
	Movies     int             `json:"movies"`
	Games      int             `json:"games"`
	Categories []CategoryTally `json:"categories"`
}

// Snapshot is a read-only copy of the world for renderers and spectators.
type Snapshot struct {
	State        session.State `json:"state"`
	SessionID    string        `json:"session_id"`
	Seed         uint64        `json:"seed"`
	Day          int           `json:"day"`
	DayFraction  float64       `json:"day_fraction"` // Elapsed share of the current day
	Stress       float64       `json:"stress"`
	StackPenalty float64       `json:"stack_penalty"`
	ActedToday   bool          `json:"acted_today"`
	Stacks       []StackView   `json:"stacks"`
	Queue        []ItemView    `json:"queue"`
	Active       *ActiveView   `json:"active,omitempty"`
	Dragging     []ItemView    `json:"dragging,omitempty"`
	Tally        TallyView     `json:"tally"`
	Dialog       string        `json:"dialog,omitempty"`
	ElapsedSec   float64       `json:"elapsed_seconds"`
}

func viewOf(it *item.Item) ItemView {
	return ItemView{
		ID:       it.ID,
		Category: it.Category,
		Variant:  it.Variant,
		Location: it.Location,
		Position: it.Position,
	}
}

// buildSnapshot copies w into a Snapshot. Caller holds the engine lock.
func buildSnapshot(w *World, active *ActiveSystem) Snapshot {
	snap := Snapshot{
		State:        w.state,
		SessionID:    w.sessionID,
		Seed:         w.seed,
		Day:          w.day,
		Stress:       w.stress,
		StackPenalty: w.stackPenalty,
		ActedToday:   w.actedToday,
		Dialog:       w.dialog,
		ElapsedSec:   w.elapsed.Seconds(),
		Queue:        []ItemView{},
		Tally:        tallyView(w),
	}
	if w.cfg.DayLength > 0 {
		snap.DayFraction = float64(w.dayElapsed) / float64(w.cfg.DayLength)
	}

	for _, st := range w.stacks {
		view := StackView{
			ID:         st.ID,
			Category:   st.Category,
			Items:      make([]ItemView, 0, len(st.Items)),
			Height:     st.FillHeight,
			Full:       st.FillHeight > w.cfg.MaxStackHeight,
			Mismatched: st.Mismatched > 0,
		}
		for _, id := range st.Items {
			if it, ok := w.items[id]; ok {
				view.Items = append(view.Items, viewOf(it))
			}
		}
		snap.Stacks = append(snap.Stacks, view)
	}

	for _, id := range w.queue {
		if it, ok := w.items[id]; ok {
			snap.Queue = append(snap.Queue, viewOf(it))
		}
	}

	if id, ok := active.Resident(w); ok {
		if it, found := w.items[id]; found {
			snap.Active = &ActiveView{Item: viewOf(it), FractionRemaining: active.FractionRemaining(w)}
		}
	}

	for _, it := range w.items {
		if it.Location == item.LocationDragging {
			snap.Dragging = append(snap.Dragging, viewOf(it))
		}
	}
	sort.Slice(snap.Dragging, func(i, j int) bool { return snap.Dragging[i].ID < snap.Dragging[j].ID })
	return snap
}

func tallyView(w *World) TallyView {
	t := w.tally
	view := TallyView{
		Total:  t.Total,
		Books:  t.Books,
		Comics: t.Comics,
		Movies: t.Movies,
		Games:  t.Games,
	}
	for _, cat := range item.Categories() {
		ct := CategoryTally{
			Category:  cat,
			Label:     w.catalog.DisplayLabel(cat),
			Total:     t.CategoryTotal(cat),
			Histogram: t.Histogram(cat),
		}
		if fav, ok := t.Favorite(cat); ok {
			ct.Favorite = &fav
		}
		view.Categories = append(view.Categories, ct)
	}
	return view
}
