package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

type contextKey string

const ctxActor contextKey = "actor"

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}

// WithActor injects the authenticated caller into the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(Actor)
	if !ok || actor.UserID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Role
	}
	return ""
}
