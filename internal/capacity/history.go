package capacity

// DefaultHistoryLimit is the default bounded undo/redo depth.
const DefaultHistoryLimit = 50

// History is a bounded, local-to-session undo/redo stack of workbook
// snapshots. It is not itself persisted; only a committed Save advances the
// server-side Version.
type History struct {
	limit int
	past  []*Workbook
	future []*Workbook
}

// NewHistory builds a History with the given bound; limit <= 0 uses
// DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records current as the new undo point before a mutation is applied,
// clearing any redo stack (a fresh edit invalidates previously undone state).
func (h *History) Push(current *Workbook) {
	h.past = append(h.past, current.Clone())
	if len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
}

// Undo returns the previous snapshot, pushing current onto the redo stack.
// ok is false when there is nothing to undo.
func (h *History) Undo(current *Workbook) (prev *Workbook, ok bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	last := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current.Clone())
	if len(h.future) > h.limit {
		h.future = h.future[len(h.future)-h.limit:]
	}
	return last, true
}

// Redo returns the next snapshot, pushing current back onto the undo stack.
// ok is false when there is nothing to redo.
func (h *History) Redo(current *Workbook) (next *Workbook, ok bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	last := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current.Clone())
	if len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	return last, true
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return len(h.future) > 0 }
