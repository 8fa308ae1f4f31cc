package tenant

import (
	"testing"

	"github.com/manufab-platform/kpi-core/internal/domain"
)

func TestRecordIfBypassSkipsScopedAccess(t *testing.T) {
	audit := NewBypassAudit(10)
	ctx, err := Resolve(Actor{UserID: "u1", Role: domain.RoleOperator, AllowedClientIDs: []string{"client-a"}}, "client-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	audit.RecordIfBypass(ctx, "query_kpi", "client-a")
	if len(audit.Recent()) != 0 {
		t.Fatalf("expected no bypass entry for same-client access, got %d", len(audit.Recent()))
	}
}

func TestRecordIfBypassRecordsFullVisibilityCrossClientRead(t *testing.T) {
	audit := NewBypassAudit(10)
	ctx, err := Resolve(Actor{UserID: "u1", Role: domain.RoleAdmin}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	audit.RecordIfBypass(ctx, "query_kpi", "client-b")

	entries := audit.Recent()
	if len(entries) != 1 {
		t.Fatalf("expected one bypass entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.ClientID != "client-b" || entry.Operation != "query_kpi" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ClientAgent == "" {
		t.Fatal("expected ClientAgent to be stamped with the build's client ID")
	}
}

func TestBypassAuditEvictsOldestPastCapacity(t *testing.T) {
	audit := NewBypassAudit(2)
	ctx, err := Resolve(Actor{UserID: "u1", Role: domain.RoleAdmin}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	audit.RecordIfBypass(ctx, "op", "c1")
	audit.RecordIfBypass(ctx, "op", "c2")
	audit.RecordIfBypass(ctx, "op", "c3")

	entries := audit.Recent()
	if len(entries) != 2 {
		t.Fatalf("expected capped at 2 entries, got %d", len(entries))
	}
	if entries[0].ClientID != "c2" || entries[1].ClientID != "c3" {
		t.Fatalf("expected oldest entry evicted, got %+v", entries)
	}
}
