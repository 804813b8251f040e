package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

const accessQuery = "data.rms.access.allow"

// Default Rego access policy. Encodes the access rules for account
// operations in one place instead of scattered role checks:
//   - admins may do everything;
//   - any authenticated caller may list accounts;
//   - a caller may update their own account;
//   - create, delete, and admin password reset are admin-only.
const defaultRegoPolicy = `package rms.access

default allow = false

allow if {
	input.caller.role == "admin"
}

allow if {
	input.operation == "accounts.list"
}

allow if {
	input.operation == "accounts.update"
	input.caller.id == input.target_id
}
`

// OPAEvaluator evaluates access policies using OPA Rego. The policy is
// compiled once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the default access policy and returns an evaluator.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	q, err := rego.New(
		rego.Query(accessQuery),
		rego.Module("access.rego", defaultRegoPolicy),
	).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// Allow evaluates the access policy for input. A missing or non-boolean
// result denies access.
func (e *OPAEvaluator) Allow(ctx context.Context, input AccessInput) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"operation": input.Operation,
		"caller": map[string]interface{}{
			"id":   input.CallerID,
			"role": input.CallerRole,
		},
		"target_id": input.TargetID,
	}))
	if err != nil {
		return false, fmt.Errorf("eval access policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, nil
	}
	return allowed, nil
}

// HealthCheck verifies that the compiled policy evaluates. Returns nil on
// success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Allow(ctx, AccessInput{Operation: OpListAccounts, CallerID: "health", CallerRole: "user"})
	return err
}
