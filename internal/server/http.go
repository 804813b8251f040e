// Package server assembles the HTTP router, middleware chain, and public
// endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rms-auth-service/internal/auth/handler"
	"rms-auth-service/internal/httputil"
	"rms-auth-service/internal/security"
	"rms-auth-service/internal/server/middleware"
)

// Pinger reports datastore reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports access-policy engine health; the OPA evaluator
// satisfies it.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies wired into the router.
type Deps struct {
	Auth   *handler.AuthHandlers
	Tokens *security.TokenProvider
	Log    *logrus.Logger
	// DB is used by /healthz readiness. If nil, the DB ping is skipped.
	DB Pinger
	// Policy is used by /healthz readiness. If nil, the policy check is skipped.
	Policy PolicyChecker
}

// NewRouter assembles the HTTP handler: recovery and request logging wrap
// every route, auth routes register under /api/v1 with the Bearer gate on
// protected paths, and the whole router is wrapped for trace propagation.
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.Recovery(deps.Log)))
	r.Use(mux.MiddlewareFunc(middleware.Logging(deps.Log)))

	r.HandleFunc("/", home).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz(deps)).Methods(http.MethodGet)

	deps.Auth.RegisterRoutes(r, middleware.Authenticate(deps.Tokens))

	return otelhttp.NewHandler(r, "rms-auth-service")
}

// home handles GET /.
func home(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Restaurant Management System Application",
	})
}

// healthz reports readiness: the datastore must be reachable and the access
// policy must evaluate.
func healthz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				deps.Log.WithError(err).Error("healthz: database unreachable")
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
				return
			}
		}
		if deps.Policy != nil {
			if err := deps.Policy.HealthCheck(ctx); err != nil {
				deps.Log.WithError(err).Error("healthz: policy engine failed")
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "policy engine unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
