package middleware

import (
	"errors"
	"net/http"
	"strings"

	"rms-auth-service/internal/httputil"
	"rms-auth-service/internal/security"
)

// Authenticate returns middleware that validates the Bearer session token
// from the Authorization header and sets the caller's identity in the request
// context. No wrapped handler runs before this gate. Only the strict
// "Bearer <token>" scheme is accepted; anything else is rejected.
//
// Failure modes, all 401: no header or bad scheme → token_missing; valid
// signature past expiry → token_expired; everything else → token_invalid.
func Authenticate(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearer(r)
			if !ok {
				httputil.WriteError(w, http.StatusUnauthorized, "token_missing", "Token missing")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					httputil.WriteError(w, http.StatusUnauthorized, "token_expired", "Token expired")
					return
				}
				httputil.WriteError(w, http.StatusUnauthorized, "token_invalid", "Invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), claims.Subject, claims.Name, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or
// ok=false if the header is missing or does not match the Bearer scheme.
func extractBearer(r *http.Request) (token string, ok bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
