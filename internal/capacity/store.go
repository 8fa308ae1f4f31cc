package capacity

import (
	"sync"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// Store holds one committed Workbook per tenant and enforces the
// idempotent-save / optimistic-concurrency rule: saving a
// clean worksheet is a no-op, saving a dirty one requires expectedVersion
// to match the server's current Version, else ERR_STALE_SNAPSHOT. It also
// keeps a bounded, in-session undo/redo History per tenant.
type Store struct {
	mu           sync.Mutex
	workbooks    map[string]*Workbook
	histories    map[string]*History
	historyLimit int
}

// NewStore returns an empty per-tenant workbook store. historyLimit bounds
// each tenant's undo/redo depth; <= 0 uses DefaultHistoryLimit.
func NewStore(historyLimit int) *Store {
	return &Store{
		workbooks:    make(map[string]*Workbook),
		histories:    make(map[string]*History),
		historyLimit: historyLimit,
	}
}

func (s *Store) historyFor(clientID string) *History {
	h, ok := s.histories[clientID]
	if !ok {
		h = NewHistory(s.historyLimit)
		s.histories[clientID] = h
	}
	return h
}

// Get returns the tenant's workbook, creating a fresh empty one (Version 0)
// on first access.
func (s *Store) Get(clientID string) *Workbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workbooks[clientID]
	if !ok {
		w = &Workbook{ClientID: clientID, Version: 0}
		s.workbooks[clientID] = w
	}
	return w
}

// Save persists dirty as the tenant's new committed workbook. dirty is
// considered clean (a no-op) when its Version already matches the stored
// version and no field differs in row count across every worksheet;
// otherwise expectedVersion must match the stored Version or the save is
// rejected with apperrors.Stale (ERR_STALE_SNAPSHOT).
func (s *Store) Save(clientID string, dirty *Workbook, expectedVersion int) (*Workbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.workbooks[clientID]
	if !ok {
		current = &Workbook{ClientID: clientID, Version: 0}
	}

	if isClean(current, dirty) {
		return current, nil
	}

	if expectedVersion != current.Version {
		return nil, apperrors.Stale("capacity_workbook", clientID)
	}

	s.historyFor(clientID).Push(current)

	saved := dirty.Clone()
	saved.ClientID = clientID
	saved.Version = current.Version + 1
	s.workbooks[clientID] = saved
	return saved, nil
}

// Undo reverts the tenant's workbook to the previous committed snapshot in
// its undo/redo History, bumping Version so concurrent Saves see it as
// changed. ok is false when there is nothing to undo.
func (s *Store) Undo(clientID string) (w *Workbook, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.workbooks[clientID]
	if !exists {
		current = &Workbook{ClientID: clientID, Version: 0}
	}
	prev, ok := s.historyFor(clientID).Undo(current)
	if !ok {
		return nil, false
	}
	prev.ClientID = clientID
	prev.Version = current.Version + 1
	s.workbooks[clientID] = prev
	return prev, true
}

// Redo reapplies the tenant's most recently undone snapshot, bumping
// Version. ok is false when there is nothing to redo.
func (s *Store) Redo(clientID string) (w *Workbook, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.workbooks[clientID]
	if !exists {
		current = &Workbook{ClientID: clientID, Version: 0}
	}
	next, ok := s.historyFor(clientID).Redo(current)
	if !ok {
		return nil, false
	}
	next.ClientID = clientID
	next.Version = current.Version + 1
	s.workbooks[clientID] = next
	return next, true
}

// isClean reports whether dirty carries no worksheet changes relative to
// current — a coarse row-count/version comparison sufficient to make a
// repeated save of an unmodified workbook a genuine no-op.
func isClean(current, dirty *Workbook) bool {
	if dirty.Version != current.Version {
		return false
	}
	return len(current.Orders) == len(dirty.Orders) &&
		len(current.MasterCalendar) == len(dirty.MasterCalendar) &&
		len(current.ProductionLines) == len(dirty.ProductionLines) &&
		len(current.ProductionStandards) == len(dirty.ProductionStandards) &&
		len(current.BOM) == len(dirty.BOM) &&
		len(current.StockSnapshot) == len(dirty.StockSnapshot) &&
		len(current.ProductionSchedule) == len(dirty.ProductionSchedule) &&
		len(current.WhatIfScenarios) == len(dirty.WhatIfScenarios) &&
		len(current.KPITracking) == len(dirty.KPITracking) &&
		len(current.Instructions) == len(dirty.Instructions)
}
