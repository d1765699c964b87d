package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSecret = "test-secret"

func authed(t *testing.T, secret, subject, role string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	token, err := SignToken(secret, subject, role)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	var got Principal
	var found bool
	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = PrincipalFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), authed(t, testSecret, "org-1", RoleOrganization))
	if !found {
		t.Fatal("no principal attached")
	}
	if got.Subject != "org-1" || got.Role != RoleOrganization {
		t.Errorf("principal = %+v", got)
	}
}

func TestAuthenticatePassesAnonymousThrough(t *testing.T) {
	var found bool
	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if found {
		t.Error("anonymous request carried a principal")
	}
}

func TestAuthenticateIgnoresForgedToken(t *testing.T) {
	var found bool
	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = PrincipalFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), authed(t, "wrong-secret", "org-1", RoleOrganization))
	if found {
		t.Error("forged token produced a principal")
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Authenticate(testSecret)(RequireRole(RoleOrganization)(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(t, testSecret, "org-1", RoleOrganization))
	if rec.Code != http.StatusNoContent {
		t.Errorf("matching role: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authed(t, testSecret, "donor-1", RoleDonor))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong role: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}
}

func TestRequireAdminPinsSubject(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Authenticate(testSecret)(RequireAdmin("admin-1")(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(t, testSecret, "admin-1", RoleAdmin))
	if rec.Code != http.StatusNoContent {
		t.Errorf("designated admin: status = %d, want 204", rec.Code)
	}

	// Admin role alone is not enough; the subject must match.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authed(t, testSecret, "admin-2", RoleAdmin))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("other admin: status = %d, want 401", rec.Code)
	}
}

func TestRequireStaticToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireStaticToken("sweep-token")(ok)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer sweep-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("valid token: status = %d, want 204", rec.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	// An empty configured token locks the route entirely.
	rec = httptest.NewRecorder()
	RequireStaticToken("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unconfigured token: status = %d, want 401", rec.Code)
	}
}
