package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"rms-auth-service/internal/account/domain"
	"rms-auth-service/internal/account/repository"
	"rms-auth-service/internal/auth/service"
	"rms-auth-service/internal/policy/engine"
	"rms-auth-service/internal/security"
	"rms-auth-service/internal/server/middleware"
)

type memAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: map[string]*domain.Account{}}
}

func (r *memAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAccountRepo) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Name == a.Name {
			return repository.ErrDuplicateName
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccountRepo) Update(ctx context.Context, id string, fields domain.UpdateFields) error {
	if fields.Empty() {
		return repository.ErrNoFields
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil
	}
	if fields.Name != nil {
		for otherID, other := range r.byID {
			if otherID != id && other.Name == *fields.Name {
				return repository.ErrDuplicateName
			}
		}
		a.Name = *fields.Name
	}
	if fields.Mobile != nil {
		a.Mobile = *fields.Mobile
	}
	if fields.Role != nil {
		a.Role = *fields.Role
	}
	if fields.Status != nil {
		a.Status = *fields.Status
	}
	return nil
}

func (r *memAccountRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *memAccountRepo) List(ctx context.Context, excludeRole string) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Account{}
	for _, a := range r.byID {
		if a.Role == excludeRole {
			continue
		}
		cp := *a
		cp.PasswordHash = ""
		out = append(out, cp)
	}
	return out, nil
}

func (r *memAccountRepo) ResetPasswordByRole(ctx context.Context, role, passwordHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.byID {
		if a.Role == role {
			a.PasswordHash = passwordHash
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	router   *mux.Router
	repo     *memAccountRepo
	tokens   *security.TokenProvider
	hasher   *security.Hasher
	adminID  string
	memberID string
}

// newTestEnv wires the full HTTP stack over an in-memory repository, seeded
// with one admin ("boss") and one regular user ("alice"), both with password
// "secret".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	policy, err := engine.NewOPAEvaluator()
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := newMemAccountRepo()
	hasher := security.NewHasher(4)
	svc := service.NewAuthService(repo, hasher, tokens)

	router := mux.NewRouter()
	NewAuthHandlers(svc, policy, log).RegisterRoutes(router, middleware.Authenticate(tokens))

	env := &testEnv{router: router, repo: repo, tokens: tokens, hasher: hasher}
	env.adminID = env.seed(t, "boss", domain.RoleAdmin, "secret")
	env.memberID = env.seed(t, "alice", domain.RoleUser, "secret")
	return env
}

func (e *testEnv) seed(t *testing.T, name, role, password string) string {
	t.Helper()
	hash, err := e.hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := &domain.Account{Name: name, PasswordHash: hash, Role: role, Status: domain.StatusEnabled}
	if err := e.repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return a.ID
}

func (e *testEnv) tokenFor(t *testing.T, id, name, role string) string {
	t.Helper()
	token, _, err := e.tokens.Issue(id, name, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func assertErrorReason(t *testing.T, rec *httptest.ResponseRecorder, status int, reason string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["error"] != reason {
		t.Errorf("error = %v, want %q", body["error"], reason)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"alice","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("response has no token")
	}
	user, _ := body["user"].(map[string]interface{})
	if user == nil || user["name"] != "alice" || user["role"] != domain.RoleUser {
		t.Errorf("user = %v, want alice/user", body["user"])
	}

	claims, err := env.tokens.Validate(token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != env.memberID {
		t.Errorf("token subject = %q, want %q", claims.Subject, env.memberID)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{"missing password", `{"name":"alice"}`, http.StatusBadRequest, "missing_credentials"},
		{"missing name", `{"password":"secret"}`, http.StatusBadRequest, "missing_credentials"},
		{"unknown user", `{"name":"nobody","password":"secret"}`, http.StatusNotFound, "not_found"},
		{"wrong password", `{"name":"alice","password":"wrong"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"invalid json", `{"name":`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", tc.body)
			assertErrorReason(t, rec, tc.status, tc.reason)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/users", "", "")
	assertErrorReason(t, rec, http.StatusUnauthorized, "token_missing")

	rec = env.do(t, http.MethodGet, "/api/v1/auth/users", "not-a-token", "")
	assertErrorReason(t, rec, http.StatusUnauthorized, "token_invalid")
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", adminToken, `{"name":"carol","mobile":"555-0100"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	// The new account can log in with the default password.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"carol","password":"`+service.DefaultPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestRegisterDeniedForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", memberToken, `{"name":"carol"}`)
	assertErrorReason(t, rec, http.StatusForbidden, "forbidden")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", adminToken, `{"name":"   "}`)
	assertErrorReason(t, rec, http.StatusBadRequest, "missing_name")

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", adminToken, `{"name":"alice"}`)
	assertErrorReason(t, rec, http.StatusConflict, "duplicate_name")
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/users", memberToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1 (admins excluded)", body["count"])
	}
	data, _ := body["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("data has %d entries, want 1", len(data))
	}
	entry, _ := data[0].(map[string]interface{})
	if entry["name"] != "alice" {
		t.Errorf("data[0].name = %v, want alice", entry["name"])
	}
	if _, ok := entry["password_hash"]; ok {
		t.Error("listing must not expose password hashes")
	}
}

func TestUpdateSelf(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/update/"+env.memberID, memberToken, `{"mobile":"555-0199"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	a, err := env.repo.GetByID(context.Background(), env.memberID)
	if err != nil || a == nil {
		t.Fatalf("GetByID: %v, %v", a, err)
	}
	if a.Mobile != "555-0199" {
		t.Errorf("mobile = %q, want 555-0199", a.Mobile)
	}
}

func TestUpdateOtherDeniedForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/update/"+env.adminID, memberToken, `{"mobile":"555-0000"}`)
	assertErrorReason(t, rec, http.StatusForbidden, "forbidden")
}

func TestUpdateOtherAllowedForAdmin(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/update/"+env.memberID, adminToken, `{"status":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	a, _ := env.repo.GetByID(context.Background(), env.memberID)
	if a.Status != domain.StatusDisabled {
		t.Errorf("status = %d, want %d", a.Status, domain.StatusDisabled)
	}
}

func TestUpdateRejectsEmptyFieldSet(t *testing.T) {
	env := newTestEnv(t)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/update/"+env.memberID, memberToken, `{}`)
	assertErrorReason(t, rec, http.StatusBadRequest, "no_fields")
}

func TestUpdateRenameConflict(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/update/"+env.memberID, adminToken, `{"name":"boss"}`)
	assertErrorReason(t, rec, http.StatusConflict, "duplicate_name")
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodDelete, "/api/v1/auth/delete/"+env.adminID, memberToken, "")
	assertErrorReason(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodDelete, "/api/v1/auth/delete/"+env.memberID, adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	// Deleting again still succeeds; the end state holds either way.
	rec = env.do(t, http.MethodDelete, "/api/v1/auth/delete/"+env.memberID, adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat delete status = %d, want 200", rec.Code)
	}

	// The deleted account can no longer log in.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"alice","password":"secret"}`)
	assertErrorReason(t, rec, http.StatusNotFound, "not_found")
}

func TestResetAdminPassword(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, env.adminID, "boss", domain.RoleAdmin)
	memberToken := env.tokenFor(t, env.memberID, "alice", domain.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/v1/auth/reset-admin-password", memberToken, "")
	assertErrorReason(t, rec, http.StatusForbidden, "forbidden")

	rec = env.do(t, http.MethodPut, "/api/v1/auth/reset-admin-password", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	// Old admin password no longer works; the default does.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"boss","password":"secret"}`)
	assertErrorReason(t, rec, http.StatusUnauthorized, "invalid_credentials")

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"boss","password":"`+service.DefaultPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login with default password status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}
