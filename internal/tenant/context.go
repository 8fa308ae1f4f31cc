// Package tenant implements identity and tenant-context resolution:
// the isolation predicate every repository call attaches, JWT claims
// issuance/validation, and password hashing.
package tenant

import (
	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// Actor is the authenticated identity behind an inbound call.
type Actor struct {
	UserID          string
	Role            domain.Role
	AllowedClientIDs []string
}

func (a Actor) hasAccessTo(clientID string) bool {
	for _, id := range a.AllowedClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// HasFullVisibility reports whether the actor's role bypasses per-row
// client scoping on reads (ADMIN, POWER_USER).
func (a Actor) HasFullVisibility() bool {
	return a.Role == domain.RoleAdmin || a.Role == domain.RolePowerUser
}

// Context binds an actor to the target client of the current operation.
// It is the only type from which an isolation predicate may be obtained.
type Context struct {
	Actor             Actor
	RequestedClientID string // "" means "no specific target" (full-visibility reads only)
}

// Resolve builds a Context for the given actor and target client, failing
// with FORBIDDEN if the actor has no access to the requested client.
func Resolve(actor Actor, targetClientID string) (Context, error) {
	if targetClientID != "" && !actor.HasFullVisibility() && !actor.hasAccessTo(targetClientID) {
		return Context{}, apperrors.Forbidden("actor has no access to the requested client").
			WithDetails("client_id", targetClientID)
	}
	return Context{Actor: actor, RequestedClientID: targetClientID}, nil
}

// TargetClientID resolves the client_id writes must stamp: the requested
// client if set, otherwise the actor's single allowed client. Returns an
// error if the target is ambiguous (full-visibility actor, no explicit
// target, more than one or zero allowed clients).
func (c Context) TargetClientID() (string, error) {
	if c.RequestedClientID != "" {
		return c.RequestedClientID, nil
	}
	if len(c.Actor.AllowedClientIDs) == 1 {
		return c.Actor.AllowedClientIDs[0], nil
	}
	return "", apperrors.Validation("client_id", "ambiguous target client; specify one explicitly")
}

// Allows reports whether the context's isolation predicate admits a
// row owned by rowClientID:
//   ADMIN, POWER_USER -> true (full visibility on reads)
//   LEADER, OPERATOR, VIEWER -> row.client_id in allowed_client_ids AND
//     (requested_client_id == row.client_id OR requested_client_id == "")
func (c Context) Allows(rowClientID string) bool {
	if c.Actor.HasFullVisibility() {
		return true
	}
	if !c.Actor.hasAccessTo(rowClientID) {
		return false
	}
	return c.RequestedClientID == "" || c.RequestedClientID == rowClientID
}

// CheckWriteTarget verifies a row about to be created carries the client_id
// the context is scoped to, returning ERR_TENANT_MISMATCH otherwise.
func (c Context) CheckWriteTarget(rowClientID string) error {
	target, err := c.TargetClientID()
	if err != nil {
		return err
	}
	if rowClientID != target {
		return apperrors.TenantMismatch(target, rowClientID)
	}
	return nil
}
