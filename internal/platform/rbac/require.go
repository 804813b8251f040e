// Package rbac gates protected operations on the caller's role via the
// access-policy engine.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"rms-auth-service/internal/policy/engine"
	"rms-auth-service/internal/server/middleware"
)

var (
	// ErrUnauthenticated is returned when no caller identity is present in
	// the context.
	ErrUnauthenticated = errors.New("caller identity required")
	// ErrPermissionDenied is returned when the access policy denies the
	// operation for the caller's role.
	ErrPermissionDenied = errors.New("permission denied")
)

// Caller is the authenticated identity resolved from the request context.
type Caller struct {
	ID   string
	Name string
	Role string
}

// RequireAccess ensures the caller in ctx is authenticated and permitted by
// the access policy to perform operation on targetID (empty for non-targeted
// operations). Returns the caller on success; ErrUnauthenticated or
// ErrPermissionDenied on failure.
func RequireAccess(ctx context.Context, eval engine.Evaluator, operation, targetID string) (Caller, error) {
	userID, okUser := middleware.GetUserID(ctx)
	role, okRole := middleware.GetRole(ctx)
	if !okUser || userID == "" || !okRole || role == "" {
		return Caller{}, ErrUnauthenticated
	}
	name, _ := middleware.GetName(ctx)

	allowed, err := eval.Allow(ctx, engine.AccessInput{
		Operation:  operation,
		CallerID:   userID,
		CallerRole: role,
		TargetID:   targetID,
	})
	if err != nil {
		return Caller{}, fmt.Errorf("evaluate access policy: %w", err)
	}
	if !allowed {
		return Caller{}, ErrPermissionDenied
	}
	return Caller{ID: userID, Name: name, Role: role}, nil
}
