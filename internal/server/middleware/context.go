package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

type contextKey string

const (
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserRole contextKey = "role"
)

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(domain.Role)
	return v, ok
}

// ActorFromContext assembles the request actor from context values set by the
// Auth middleware. The core trusts this as already authenticated.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return domain.Actor{}, false
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: userID, Role: role}, true
}
