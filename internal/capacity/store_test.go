package capacity

import (
	"testing"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveIsNoOpWhenClean(t *testing.T) {
	s := NewStore(0)
	w := s.Get("CL1")
	saved, err := s.Save("CL1", w, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Version)
}

func TestStoreSaveAdvancesVersionOnDirtyChange(t *testing.T) {
	s := NewStore(0)
	w := s.Get("CL1")
	dirty := w.Clone()
	dirty.Orders = append(dirty.Orders, Order{OrderID: "O1"})

	saved, err := s.Save("CL1", dirty, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Len(t, saved.Orders, 1)
}

func TestStoreSaveRejectsStaleExpectedVersion(t *testing.T) {
	s := NewStore(0)
	w := s.Get("CL1")
	dirty := w.Clone()
	dirty.Orders = append(dirty.Orders, Order{OrderID: "O1"})

	_, err := s.Save("CL1", dirty, 7)
	require.Error(t, err)
	se, ok := apperrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindStale, se.Kind)
}

func TestStoreUndoRedoRoundTrip(t *testing.T) {
	s := NewStore(5)
	w := s.Get("CL1")
	dirty := w.Clone()
	dirty.Orders = append(dirty.Orders, Order{OrderID: "O1"})
	saved, err := s.Save("CL1", dirty, 0)
	require.NoError(t, err)
	require.Len(t, saved.Orders, 1)

	reverted, ok := s.Undo("CL1")
	require.True(t, ok)
	assert.Len(t, reverted.Orders, 0)
	assert.Equal(t, 2, reverted.Version)

	redone, ok := s.Redo("CL1")
	require.True(t, ok)
	assert.Len(t, redone.Orders, 1)
	assert.Equal(t, 3, redone.Version)
}

func TestStoreUndoOnEmptyReturnsFalse(t *testing.T) {
	s := NewStore(5)
	_, ok := s.Undo("CL1")
	assert.False(t, ok)
}
