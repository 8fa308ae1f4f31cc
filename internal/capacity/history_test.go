package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryUndoRedoRoundTrips(t *testing.T) {
	h := NewHistory(5)
	w := &Workbook{ClientID: "CL1", Orders: []Order{{OrderID: "O1"}}}

	h.Push(w)
	w2 := w.Clone()
	w2.Orders = append(w2.Orders, Order{OrderID: "O2"})

	prev, ok := h.Undo(w2)
	require.True(t, ok)
	assert.Len(t, prev.Orders, 1)
	assert.True(t, h.CanRedo())

	next, ok := h.Redo(prev)
	require.True(t, ok)
	assert.Len(t, next.Orders, 2)
}

func TestHistoryBoundedAtLimit(t *testing.T) {
	h := NewHistory(2)
	w := &Workbook{}
	for i := 0; i < 5; i++ {
		h.Push(w)
	}
	assert.Len(t, h.past, 2)
}

func TestHistoryPushClearsRedoStack(t *testing.T) {
	h := NewHistory(5)
	w := &Workbook{Orders: []Order{{OrderID: "O1"}}}
	h.Push(w)
	w2 := w.Clone()
	_, ok := h.Undo(w2)
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Push(w2)
	assert.False(t, h.CanRedo())
}

func TestHistoryUndoOnEmptyReturnsFalse(t *testing.T) {
	h := NewHistory(5)
	_, ok := h.Undo(&Workbook{})
	assert.False(t, ok)
}
