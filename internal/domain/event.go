package domain

import "time"

// EventType enumerates the domain event taxonomy.
type EventType string

const (
	EventWorkOrderStatusChanged   EventType = "WorkOrderStatusChanged"
	EventProductionEntryCreated  EventType = "ProductionEntryCreated"
	EventDowntimeClosed          EventType = "DowntimeClosed"
	EventQualityInspectionRecorded EventType = "QualityInspectionRecorded"
	EventHoldCreated              EventType = "HoldCreated"
	EventHoldResumed             EventType = "HoldResumed"
	EventKPIThresholdViolated    EventType = "KPIThresholdViolated"
	EventTenantBypassUsed        EventType = "TenantBypassUsed"
)

// DomainEvent is the append-only envelope persisted to EVENT_STORE. Payload
// carries type-specific data as opaque JSON (decoded by handlers that know
// the shape for EventType).
type DomainEvent struct {
	EventID       string    `db:"event_id"`
	EventType     EventType `db:"event_type"`
	AggregateType string    `db:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id"`
	ClientID      *string   `db:"client_id"` // nil for system-wide events
	OccurredAt    time.Time `db:"occurred_at"`
	TriggeredBy   *string   `db:"triggered_by"` // user_id, nil for system-originated events
	Payload       []byte    `db:"payload"`      // opaque JSON
}

func (e *DomainEvent) GetID() string { return e.EventID }
func (e *DomainEvent) GetClientID() string {
	if e.ClientID == nil {
		return ""
	}
	return *e.ClientID
}
func (e *DomainEvent) SetCreatedAt(time.Time) {} // events are immutable once occurred
func (e *DomainEvent) SetUpdatedAt(time.Time) {}
