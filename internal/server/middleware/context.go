package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	nameKey   = contextKey{"name"}
	roleKey   = contextKey{"role"}
)

// WithIdentity returns a context with the caller's user_id, name, and role
// set. Handlers and rbac helpers read these via GetUserID, GetName, GetRole.
func WithIdentity(ctx context.Context, userID, name, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, nameKey, name)
	ctx = context.WithValue(ctx, roleKey, role)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetName returns the account name from context and true if set; otherwise "", false.
func GetName(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(nameKey).(string)
	return v, ok
}

// GetRole returns the role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(roleKey).(string)
	return v, ok
}
