// Package roles resolves the authorization role of a user through a layered
// fallback chain: in-memory cache, database profile lookup, durable fallback
// record, hardcoded default.
package roles

// Role is the coarse-grained authorization unit attached to a profile.
type Role string

// Known roles. A resolved role is always one of these or empty (unassigned).
const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"

	// RoleNone marks a user whose profile carries no role assignment.
	RoleNone Role = ""
)

// DefaultRole is returned when every higher-priority source has failed.
// Business policy inherited from the original portal: an unreachable
// backend grants the least-privileged role rather than denying access.
const DefaultRole = RoleStudent

// Valid reports whether r is one of the known role values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent:
		return true
	}
	return false
}

// Source records where a resolution came from so callers can decide how far
// to trust it.
type Source string

const (
	SourceDatabase Source = "database"
	SourceLocal    Source = "localStorage"
	SourceDefault  Source = "default"
	SourceError    Source = "error"
)

// Resolution is the outcome of a role lookup. Resolve always returns a
// well-formed Resolution, never an error.
type Resolution struct {
	Role      Role   `json:"role"`
	Source    Source `json:"source"`
	FromCache bool   `json:"from_cache"`
}

// HasRole reports whether the resolution carries an assigned role.
func (r Resolution) HasRole() bool {
	return r.Role != RoleNone
}
