// Package handler exposes the auth service over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"rms-auth-service/internal/account/domain"
	"rms-auth-service/internal/account/repository"
	"rms-auth-service/internal/auth/service"
	"rms-auth-service/internal/httputil"
	"rms-auth-service/internal/platform/rbac"
	"rms-auth-service/internal/policy/engine"
)

// AuthHandlers handles authentication and account management HTTP requests.
type AuthHandlers struct {
	svc    *service.AuthService
	policy engine.Evaluator
	log    *logrus.Logger
}

// NewAuthHandlers returns handlers backed by the given service and access
// policy.
func NewAuthHandlers(svc *service.AuthService, policy engine.Evaluator, log *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{svc: svc, policy: policy, log: log}
}

// RegisterRoutes registers auth routes under /api/v1. authenticate wraps
// every protected route; login stays public.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, authenticate func(http.Handler) http.Handler) {
	router.HandleFunc("/api/v1/auth/login", h.login).Methods(http.MethodPost)
	router.Handle("/api/v1/auth/register", authenticate(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	router.Handle("/api/v1/auth/users", authenticate(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	router.Handle("/api/v1/auth/update/{id}", authenticate(http.HandlerFunc(h.updateUser))).Methods(http.MethodPut)
	router.Handle("/api/v1/auth/delete/{id}", authenticate(http.HandlerFunc(h.deleteUser))).Methods(http.MethodDelete)
	router.Handle("/api/v1/auth/reset-admin-password", authenticate(http.HandlerFunc(h.resetAdminPassword))).Methods(http.MethodPut)
}

type accountResponse struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Role    string    `json:"role"`
	Mobile  string    `json:"mobile"`
	Status  int       `json:"status"`
	Created time.Time `json:"created"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:      a.ID,
		Name:    a.Name,
		Role:    a.Role,
		Mobile:  a.Mobile,
		Status:  a.Status,
		Created: a.CreatedAt,
	}
}

// login handles POST /api/v1/auth/login.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   res.Token,
		"message": "Login successful",
		"user": map[string]interface{}{
			"id":   res.Account.ID,
			"name": res.Account.Name,
			"role": res.Account.Role,
		},
	})
}

// register handles POST /api/v1/auth/register (admin only). The account is
// created with the fixed default password.
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	if _, err := rbac.RequireAccess(r.Context(), h.policy, engine.OpCreateAccount, ""); err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Name   string `json:"name"`
		Role   string `json:"role"`
		Mobile string `json:"mobile"`
		Status *int   `json:"status"`
	}
	if !httputil.ParseJSON(w, r, &req) {
		return
	}

	a, err := h.svc.Register(r.Context(), req.Name, req.Role, req.Mobile, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User " + a.Name + " created successfully with default password",
	})
}

// listUsers handles GET /api/v1/auth/users. Administrative accounts are
// excluded from the listing.
func (h *AuthHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := rbac.RequireAccess(r.Context(), h.policy, engine.OpListAccounts, ""); err != nil {
		h.writeError(w, r, err)
		return
	}

	accounts, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		data = append(data, toAccountResponse(&accounts[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Users fetched successfully",
		"count":   len(data),
		"data":    data,
	})
}

// updateUser handles PUT /api/v1/auth/update/{id}. Admins may update any
// account; other callers only their own.
func (h *AuthHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := rbac.RequireAccess(r.Context(), h.policy, engine.OpUpdateAccount, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	var req struct {
		Name   *string `json:"name"`
		Mobile *string `json:"mobile"`
		Role   *string `json:"role"`
		Status *int    `json:"status"`
	}
	if !httputil.ParseJSON(w, r, &req) {
		return
	}

	fields := domain.UpdateFields{Name: req.Name, Mobile: req.Mobile, Role: req.Role, Status: req.Status}
	if err := h.svc.Update(r.Context(), id, fields); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User updated successfully",
	})
}

// deleteUser handles DELETE /api/v1/auth/delete/{id} (admin only). Hard
// delete; succeeds even when the id no longer exists.
func (h *AuthHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := rbac.RequireAccess(r.Context(), h.policy, engine.OpDeleteAccount, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User deleted",
	})
}

// resetAdminPassword handles PUT /api/v1/auth/reset-admin-password (admin
// only). Resets every admin account's password to the fixed default.
func (h *AuthHandlers) resetAdminPassword(w http.ResponseWriter, r *http.Request) {
	if _, err := rbac.RequireAccess(r.Context(), h.policy, engine.OpResetAdminPassword, ""); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.svc.ResetAdminPasswords(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin passwords reset to default successfully",
	})
}

// writeError maps service, repository, and rbac errors to the HTTP error
// taxonomy. Unrecognized errors are logged with full detail and surface as a
// generic 500; internal error text never reaches the client.
func (h *AuthHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		httputil.WriteError(w, http.StatusBadRequest, "missing_credentials", "Username and password are required")
	case errors.Is(err, service.ErrMissingName):
		httputil.WriteError(w, http.StatusBadRequest, "missing_name", "Name field is required")
	case errors.Is(err, repository.ErrNoFields):
		httputil.WriteError(w, http.StatusBadRequest, "no_fields", "No valid data to update")
	case errors.Is(err, service.ErrAccountNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "User not found. Please register first")
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect password")
	case errors.Is(err, rbac.ErrUnauthenticated):
		httputil.WriteError(w, http.StatusUnauthorized, "token_missing", "Token missing")
	case errors.Is(err, rbac.ErrPermissionDenied):
		httputil.WriteError(w, http.StatusForbidden, "forbidden", "Access denied")
	case errors.Is(err, repository.ErrDuplicateName):
		httputil.WriteError(w, http.StatusConflict, "duplicate_name", "User with that name already exists")
	default:
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
