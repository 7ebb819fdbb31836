package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reviewcash/backend/internal/token"
)

type stubVerifier struct {
	identity *token.Identity
	err      error
}

func (s stubVerifier) Verify(string) (*token.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func protected(t *testing.T, verifier TokenVerifier) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if AdminFromCtx(r.Context()) == nil {
			t.Error("identity missing from context inside protected handler")
		}
		w.WriteHeader(http.StatusOK)
	})
	return AdminAuth(verifier)(next), &reached
}

func TestAdminAuthMissingToken(t *testing.T) {
	h, reached := protected(t, stubVerifier{identity: &token.Identity{ID: 777}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/topups", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
	if *reached {
		t.Error("handler must not run without a token")
	}
}

func TestAdminAuthQueryToken(t *testing.T) {
	h, reached := protected(t, stubVerifier{identity: &token.Identity{ID: 777, Handle: "RapiHappy"}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/topups?token=abc", nil))
	if rec.Code != http.StatusOK || !*reached {
		t.Errorf("query token: status %d, reached %v", rec.Code, *reached)
	}
}

func TestAdminAuthBearerToken(t *testing.T) {
	h, reached := protected(t, stubVerifier{identity: &token.Identity{ID: 777}})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/topups", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !*reached {
		t.Errorf("bearer token: status %d, reached %v", rec.Code, *reached)
	}
}

func TestAdminAuthExpiredDistinctFromForbidden(t *testing.T) {
	// Expired: 401 with a machine-readable reason.
	h, _ := protected(t, stubVerifier{err: token.ErrExpired})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/topups?token=stale", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expired: status got %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token_expired") {
		t.Errorf("expired: body should carry token_expired, got %q", rec.Body.String())
	}

	// Invalid signature or unknown subject: 403.
	for _, err := range []error{token.ErrInvalid, token.ErrUnknownSubject} {
		h, _ := protected(t, stubVerifier{err: err})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/topups?token=bad", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("%v: status got %d, want 403", err, rec.Code)
		}
	}
}
