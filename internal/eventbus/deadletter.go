package eventbus

import (
	"sync"
	"time"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/metrics"
)

// DeadLetterEntry records handler failures for one event, accumulating a
// failure count so repeated failures on the same event_id are
// distinguishable from a single transient error. The count is cumulative:
// a successful handling does not reset it unless ClearSuccess is called.
type DeadLetterEntry struct {
	Event        domain.DomainEvent
	LastError    string
	FailureCount int
	LastFailedAt time.Time
}

// deadLetterThreshold is the number of recorded handler failures on the
// same event_id before it is surfaced as dead-lettered.
const deadLetterThreshold = 3

// DeadLetterList is a single-writer/multiple-reader structure tracking
// events whose handlers have failed repeatedly.
type DeadLetterList struct {
	mu      sync.RWMutex
	entries map[string]*DeadLetterEntry
	max     int
}

// NewDeadLetterList builds a dead-letter tracker capped at max distinct
// event_ids (default 1000, oldest evicted on overflow).
func NewDeadLetterList(max int) *DeadLetterList {
	if max <= 0 {
		max = 1000
	}
	return &DeadLetterList{entries: make(map[string]*DeadLetterEntry), max: max}
}

// RecordFailure registers a handler failure for evt. Once an event_id
// reaches deadLetterThreshold recorded failures it is reported via
// metrics as dead-lettered.
func (d *DeadLetterList) RecordFailure(evt domain.DomainEvent, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[evt.EventID]
	if !ok {
		if len(d.entries) >= d.max {
			d.evictOldestLocked()
		}
		entry = &DeadLetterEntry{Event: evt}
		d.entries[evt.EventID] = entry
	}
	entry.FailureCount++
	entry.LastError = err.Error()
	entry.LastFailedAt = time.Now()

	if entry.FailureCount == deadLetterThreshold {
		metrics.ObserveDeadLetter(string(evt.EventType))
	}
}

// ClearSuccess removes an event from tracking after a subsequent successful
// handling, so transient failures do not permanently mark it.
func (d *DeadLetterList) ClearSuccess(eventID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, eventID)
}

func (d *DeadLetterList) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	for id, e := range d.entries {
		if oldestID == "" || e.LastFailedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = e.LastFailedAt
		}
	}
	if oldestID != "" {
		delete(d.entries, oldestID)
	}
}

// Entries returns a snapshot of events that have crossed the dead-letter
// threshold, for inspection tooling.
func (d *DeadLetterList) Entries() []DeadLetterEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]DeadLetterEntry, 0, len(d.entries))
	for _, e := range d.entries {
		if e.FailureCount >= deadLetterThreshold {
			out = append(out, *e)
		}
	}
	return out
}
