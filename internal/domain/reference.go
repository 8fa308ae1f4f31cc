// Package domain holds the manufacturing KPI platform's entity types:
// the reference data every tenant shares a schema for (clients, users,
// products, shifts, employees), the transactional entities shop-floor
// observations populate, and the append-only domain event envelope.
package domain

import "time"

// Role is a user's authorization level within the platform.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RolePowerUser  Role = "POWER_USER"
	RoleLeader     Role = "LEADER"
	RoleOperator   Role = "OPERATOR"
	RoleViewer     Role = "VIEWER"
)

// Client is a manufacturing site (tenant). Never hard-deleted, only
// deactivated.
type Client struct {
	ClientID    string    `db:"client_id"`
	DisplayName string    `db:"display_name"`
	Timezone    string    `db:"timezone"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (c *Client) GetID() string            { return c.ClientID }
func (c *Client) GetClientID() string      { return c.ClientID }
func (c *Client) SetCreatedAt(t time.Time) { c.CreatedAt = t }
func (c *Client) SetUpdatedAt(t time.Time) { c.UpdatedAt = t }

// User is an authenticated actor, scoped to one or more clients via
// AssignedClientIDs.
type User struct {
	UserID           string    `db:"user_id"`
	DisplayName      string    `db:"display_name"`
	PasswordHash     string    `db:"password_hash"`
	Role             Role      `db:"role"`
	AssignedClientIDs []string `db:"assigned_client_ids"`
	Active           bool      `db:"active"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (u *User) GetID() string            { return u.UserID }
func (u *User) GetClientID() string      { return "" } // users are not client-owned rows
func (u *User) SetCreatedAt(t time.Time) { u.CreatedAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.UpdatedAt = t }

// HasAssignedClient reports whether the user is assigned to clientID.
func (u *User) HasAssignedClient(clientID string) bool {
	for _, id := range u.AssignedClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// Product is a style/SKU manufactured at a client. Unique per
// (ClientID, Code).
type Product struct {
	ProductID               string    `db:"product_id"`
	ClientID                string    `db:"client_id"`
	Code                    string    `db:"code"`
	Description             string    `db:"description"`
	IdealCycleTimeMinutes   *float64  `db:"ideal_cycle_time_minutes"`
	LeadTimeDays            int       `db:"lead_time_days"` // used by TRUE-OTD's computed(lead_time + created_at) fallback
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

func (p *Product) GetID() string            { return p.ProductID }
func (p *Product) GetClientID() string      { return p.ClientID }
func (p *Product) SetCreatedAt(t time.Time) { p.CreatedAt = t }
func (p *Product) SetUpdatedAt(t time.Time) { p.UpdatedAt = t }

// Shift defines a scheduled work period at a client.
type Shift struct {
	ShiftID               string    `db:"shift_id"`
	ClientID              string    `db:"client_id"`
	Name                  string    `db:"name"`
	StartLocal            string    `db:"start_local"` // HH:MM local time-of-day
	EndLocal              string    `db:"end_local"`
	ScheduledBreakMinutes int       `db:"scheduled_break_minutes"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (s *Shift) GetID() string            { return s.ShiftID }
func (s *Shift) GetClientID() string      { return s.ClientID }
func (s *Shift) SetCreatedAt(t time.Time) { s.CreatedAt = t }
func (s *Shift) SetUpdatedAt(t time.Time) { s.UpdatedAt = t }

// Employee is a shop-floor worker. A floating-pool employee has no fixed
// ClientID; its availability at a given client is governed by an active
// EmployeeAssignment instead.
type Employee struct {
	EmployeeID     string    `db:"employee_id"`
	ClientID       *string   `db:"client_id"`
	Code           string    `db:"code"`
	Name           string    `db:"name"`
	Active         bool      `db:"active"`
	IsFloatingPool bool      `db:"is_floating_pool"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (e *Employee) GetID() string { return e.EmployeeID }
func (e *Employee) GetClientID() string {
	if e.ClientID == nil {
		return ""
	}
	return *e.ClientID
}
func (e *Employee) SetCreatedAt(t time.Time) { e.CreatedAt = t }
func (e *Employee) SetUpdatedAt(t time.Time) { e.UpdatedAt = t }

// EmployeeAssignment scopes a floating-pool employee to a client for a
// bounded window, per Open Question #4 (see DESIGN.md).
type EmployeeAssignment struct {
	AssignmentID string     `db:"assignment_id"`
	EmployeeID   string     `db:"employee_id"`
	ClientID     string     `db:"client_id"`
	ValidFrom    time.Time  `db:"valid_from"`
	ValidUntil   *time.Time `db:"valid_until"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (a *EmployeeAssignment) GetID() string            { return a.AssignmentID }
func (a *EmployeeAssignment) GetClientID() string      { return a.ClientID }
func (a *EmployeeAssignment) SetCreatedAt(t time.Time) { a.CreatedAt = t }
func (a *EmployeeAssignment) SetUpdatedAt(t time.Time) { a.UpdatedAt = t }

// ActiveAt reports whether the assignment covers instant t.
func (a *EmployeeAssignment) ActiveAt(t time.Time) bool {
	if t.Before(a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && t.After(*a.ValidUntil) {
		return false
	}
	return true
}

// DefectType is a catalog entry for quality inspection defects. A nil
// ClientID marks a global (cross-tenant) catalog entry.
type DefectType struct {
	DefectTypeID    string    `db:"defect_type_id"`
	ClientID        *string   `db:"client_id"`
	Name            string    `db:"name"`
	Category        string    `db:"category"`
	DefaultSeverity string    `db:"default_severity"`
	Active          bool      `db:"active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (d *DefectType) GetID() string { return d.DefectTypeID }
func (d *DefectType) GetClientID() string {
	if d.ClientID == nil {
		return ""
	}
	return *d.ClientID
}
func (d *DefectType) SetCreatedAt(t time.Time) { d.CreatedAt = t }
func (d *DefectType) SetUpdatedAt(t time.Time) { d.UpdatedAt = t }

// PartOpportunities records the defect opportunities per unit used by the
// DPMO calculation. Unique per (ClientID, ProductID).
type PartOpportunities struct {
	ProductID          string    `db:"product_id"`
	ClientID           string    `db:"client_id"`
	OpportunitiesPerUnit float64 `db:"opportunities_per_unit"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (p *PartOpportunities) GetID() string            { return p.ProductID }
func (p *PartOpportunities) GetClientID() string      { return p.ClientID }
func (p *PartOpportunities) SetCreatedAt(t time.Time) { p.CreatedAt = t }
func (p *PartOpportunities) SetUpdatedAt(t time.Time) { p.UpdatedAt = t }
