package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/auth"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/reconcile"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

const testHookToken = "hook-secret"

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.New()
	handler := NewHandler(store, auth.NewSessionManager(time.Hour))
	handler.Engine = reconcile.NewEngine(store, reconcile.WithLogger(logger), reconcile.WithRecorder(recorder))
	handler.HookToken = testHookToken
	handler.Logger = logger
	handler.Recorder = recorder
	return handler, store
}

func signupUser(t *testing.T, handler *Handler, email string) (models.User, string) {
	t.Helper()
	body := `{"displayName":"Alice","email":"` + email + `","password":"hunter22"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Signup(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	var token string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			token = cookie.Value
		}
	}
	if token == "" {
		t.Fatalf("expected session cookie on signup")
	}
	user, ok := handler.Store.GetUser(resp.User.ID)
	if !ok {
		t.Fatalf("signed-up user not found in store")
	}
	return user, token
}

func authedRequest(method, target, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSignupProvisionsStream(t *testing.T) {
	handler, store := newTestHandler(t)
	user, _ := signupUser(t, handler, "alice@example.com")

	stream, ok := store.GetStreamForUser(user.ID)
	if !ok {
		t.Fatalf("expected stream provisioned at signup")
	}
	if stream.IngestKey == "" || stream.IsLive {
		t.Fatalf("expected keyed offline stream, got %+v", stream)
	}
}

func TestSignupValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"displayName":"A","email":"a@example.com","password":"short"}`))
	rec := httptest.NewRecorder()
	handler.Signup(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"unexpected":true}`))
	rec = httptest.NewRecorder()
	handler.Signup(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
	}
}

func TestLoginAndSession(t *testing.T) {
	handler, _ := newTestHandler(t)
	user, _ := signupUser(t, handler, "alice@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"hunter22"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, resp.User.ID)
	}

	rec = httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)
	user, token := signupUser(t, handler, "alice@example.com")

	rec := httptest.NewRecorder()
	handler.Session(rec, authedRequest(http.MethodGet, "/api/auth/session", "", token))
	if rec.Code != http.StatusOK {
		t.Fatalf("session returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, resp.User.ID)
	}

	rec = httptest.NewRecorder()
	handler.Logout(rec, authedRequest(http.MethodPost, "/api/auth/logout", "", token))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Session(rec, authedRequest(http.MethodGet, "/api/auth/session", "", token))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

func TestDashboardReturnsStreamAndRecordings(t *testing.T) {
	handler, _ := newTestHandler(t)
	_, token := signupUser(t, handler, "alice@example.com")

	rec := httptest.NewRecorder()
	handler.Dashboard(rec, authedRequest(http.MethodGet, "/api/dashboard", "", token))
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode dashboard response: %v", err)
	}
	if resp.Stream.IngestKey == "" {
		t.Fatalf("expected ingest key on dashboard, got %+v", resp.Stream)
	}
	if resp.Stream.IsLive {
		t.Fatalf("expected offline stream, got %+v", resp.Stream)
	}
	if len(resp.Recordings) != 0 {
		t.Fatalf("expected no recordings, got %d", len(resp.Recordings))
	}
}

func TestDashboardUpdatesTitle(t *testing.T) {
	handler, _ := newTestHandler(t)
	_, token := signupUser(t, handler, "alice@example.com")

	rec := httptest.NewRecorder()
	handler.Dashboard(rec, authedRequest(http.MethodPatch, "/api/dashboard", `{"title":"Friday Show"}`, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp streamResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if resp.Title != "Friday Show" {
		t.Fatalf("expected updated title, got %q", resp.Title)
	}

	rec = httptest.NewRecorder()
	handler.Dashboard(rec, authedRequest(http.MethodPatch, "/api/dashboard", `{}`, token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", rec.Code)
	}
}

func TestResetKeyIssuesFreshKey(t *testing.T) {
	handler, store := newTestHandler(t)
	user, token := signupUser(t, handler, "alice@example.com")
	original, _ := store.GetStreamForUser(user.ID)

	rec := httptest.NewRecorder()
	handler.ResetKey(rec, authedRequest(http.MethodPost, "/api/dashboard/reset-key", "", token))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-key returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp streamResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode reset response: %v", err)
	}
	if resp.IngestKey == "" || resp.IngestKey == original.IngestKey {
		t.Fatalf("expected a fresh ingest key, got %q", resp.IngestKey)
	}
	stored, _ := store.GetStreamForUser(user.ID)
	if stored.IngestKey != resp.IngestKey {
		t.Fatalf("expected stored key %q, got %q", resp.IngestKey, stored.IngestKey)
	}
}
