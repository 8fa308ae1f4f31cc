package tenant

import (
	"testing"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

func TestResolveForbidsUnassignedClient(t *testing.T) {
	actor := Actor{UserID: "u1", Role: domain.RoleOperator, AllowedClientIDs: []string{"client-a"}}
	_, err := Resolve(actor, "client-b")
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	se, ok := apperrors.Of(err)
	if !ok || se.Kind != apperrors.KindForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAllowsFullVisibilityForAdmin(t *testing.T) {
	ctx, err := Resolve(Actor{UserID: "u1", Role: domain.RoleAdmin}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ctx.Allows("any-client") {
		t.Fatal("expected admin to see all clients")
	}
}

func TestAllowsScopedRoleRequiresMembership(t *testing.T) {
	actor := Actor{UserID: "u1", Role: domain.RoleLeader, AllowedClientIDs: []string{"client-a"}}
	ctx, err := Resolve(actor, "client-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ctx.Allows("client-a") {
		t.Fatal("expected access to own client")
	}
	if ctx.Allows("client-b") {
		t.Fatal("expected no access to foreign client")
	}
}

func TestCheckWriteTargetMismatch(t *testing.T) {
	actor := Actor{UserID: "u1", Role: domain.RoleOperator, AllowedClientIDs: []string{"client-a"}}
	ctx, err := Resolve(actor, "client-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	err = ctx.CheckWriteTarget("client-b")
	se, ok := apperrors.Of(err)
	if !ok || se.Kind != apperrors.KindConflict {
		t.Fatalf("expected CONFLICT tenant mismatch, got %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword("s3cret!", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, err=%v ok=%v", err, ok)
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, err=%v ok=%v", err, ok)
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)
	actor := Actor{UserID: "u1", Role: domain.RolePowerUser, AllowedClientIDs: []string{"client-a", "client-b"}}
	token, err := issuer.Issue(actor)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.UserID != actor.UserID || got.Role != actor.Role || len(got.AllowedClientIDs) != 2 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}
