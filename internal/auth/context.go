package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

type ctxKey struct{}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
