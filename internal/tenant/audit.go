package tenant

import (
	"sync"
	"time"

	"github.com/manufab-platform/kpi-core/pkg/version"
)

// BypassAuditEntry records one instance of an ADMIN/POWER_USER actor
// exercising full-visibility access across the tenant boundary. Supplements
// the isolation predicate with an inspectable trail.
type BypassAuditEntry struct {
	At          time.Time
	UserID      string
	Role        string
	Operation   string
	ClientID    string
	ClientAgent string // identifies the serving build, e.g. "manufabctl/0.1.0"
}

// BypassAudit is a bounded ring buffer of recent bypass events.
type BypassAudit struct {
	mu      sync.Mutex
	entries []BypassAuditEntry
	max     int
}

// NewBypassAudit builds an audit trail capped at max entries (default 500).
func NewBypassAudit(max int) *BypassAudit {
	if max <= 0 {
		max = 500
	}
	return &BypassAudit{max: max}
}

// Record appends an entry, evicting the oldest if at capacity.
func (a *BypassAudit) Record(entry BypassAuditEntry) {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	if len(a.entries) > a.max {
		a.entries = a.entries[len(a.entries)-a.max:]
	}
}

// RecordIfBypass records an entry only when ctx's actor used full-visibility
// access to reach a row owned by a different client than requested.
func (a *BypassAudit) RecordIfBypass(ctx Context, operation, rowClientID string) {
	if !ctx.Actor.HasFullVisibility() {
		return
	}
	if ctx.RequestedClientID != "" && ctx.RequestedClientID == rowClientID {
		return
	}
	a.Record(BypassAuditEntry{
		UserID:      ctx.Actor.UserID,
		Role:        string(ctx.Actor.Role),
		Operation:   operation,
		ClientID:    rowClientID,
		ClientAgent: version.ClientID(),
	})
}

// Recent returns a snapshot of the recorded entries, oldest first.
func (a *BypassAudit) Recent() []BypassAuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]BypassAuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}
