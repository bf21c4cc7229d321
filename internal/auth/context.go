package auth

import (
	"context"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserContextKey is the key for storing the resolved user in request context
	UserContextKey ContextKey = "authUser"
)

// WithUser returns a context carrying the resolved user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext extracts the resolved user from the request context. The
// second return value is false when the request carried no valid identity.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*model.User)
	return user, ok && user != nil
}
