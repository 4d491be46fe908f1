package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanModerate reports whether the role may perform moderator-gated actions
// (complete, approve, reject, uncomplete, retire dependencies).
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Actor identifies the authenticated user behind a request. It is threaded
// explicitly into every core call; the core never reads identity from
// ambient state.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}
