package security

import "time"

// Test signing secret for unit tests only. Do not use in production.
const testSecret = "unit-test-signing-secret"

// NewTestTokenProvider returns a TokenProvider using an embedded test secret.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider([]byte(testSecret), "test-issuer", 15*time.Minute)
}
