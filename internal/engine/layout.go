package engine

import "github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"

// syncLayout places every item where the renderer should draw it: stacked
// bottom-up from the stack origin, queue slots spaced along X, the active
// item on its slot. Dragged items keep their last position.
func syncLayout(w *World) {
	for _, st := range w.stacks {
		y := st.Origin.Y
		for _, id := range st.Items {
			it, ok := w.items[id]
			if !ok {
				continue
			}
			h := w.catalog.SizeOf(it.Category).Height
			it.Position = item.Point{X: st.Origin.X, Y: y + h/2}
			y += h
		}
	}

	l := w.cfg.Layout
	for i, id := range w.queue {
		if it, ok := w.items[id]; ok {
			it.Position = item.Point{
				X: l.QueueOrigin.X + l.QueueFirstOffset.X + float64(i)*l.QueueSpacing,
				Y: l.QueueOrigin.Y + l.QueueFirstOffset.Y,
			}
		}
	}

	if w.active.occupied {
		if it, ok := w.items[w.active.itemID]; ok {
			it.Position = l.ActiveSlot
		}
	}
}
