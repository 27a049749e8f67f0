package domain

import "github.com/google/uuid"

// Role is the platform role of a connected user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a stored role name to a Role. Unknown names yield "".
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s)
	default:
		return ""
	}
}

// IsStaff reports whether the role may attend help requests.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Viewer is the resolved identity of a session. It is immutable; a change
// of role or team means fetching a new Viewer.
type Viewer struct {
	UserID uuid.UUID
	Role   Role
	TeamID *uuid.UUID
}

// Anonymous returns the empty viewer used when no identity is present.
func Anonymous() Viewer {
	return Viewer{}
}

// IsAnonymous reports whether no authenticated identity backs the viewer.
func (v Viewer) IsAnonymous() bool {
	return v.UserID == uuid.Nil
}

// HasTeam reports whether the viewer belongs to a team.
func (v Viewer) HasTeam() bool {
	return v.TeamID != nil && *v.TeamID != uuid.Nil
}

// Team returns the viewer's team or uuid.Nil.
func (v Viewer) Team() uuid.UUID {
	if !v.HasTeam() {
		return uuid.Nil
	}
	return *v.TeamID
}

// Equal compares two viewers by value.
func (v Viewer) Equal(other Viewer) bool {
	return v.UserID == other.UserID && v.Role == other.Role && v.Team() == other.Team()
}
