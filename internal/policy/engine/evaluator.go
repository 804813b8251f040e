// Package engine evaluates role-based access policies for protected operations.
package engine

import "context"

// Operation names evaluated by the access policy.
const (
	OpListAccounts       = "accounts.list"
	OpCreateAccount      = "accounts.create"
	OpUpdateAccount      = "accounts.update"
	OpDeleteAccount      = "accounts.delete"
	OpResetAdminPassword = "admin.reset_password"
)

// AccessInput describes an access decision: who (caller id and role) wants to
// perform which operation on which target account (empty for non-targeted
// operations like list).
type AccessInput struct {
	Operation  string
	CallerID   string
	CallerRole string
	TargetID   string
}

// Evaluator decides whether a caller may perform an operation.
type Evaluator interface {
	Allow(ctx context.Context, input AccessInput) (bool, error)
}
