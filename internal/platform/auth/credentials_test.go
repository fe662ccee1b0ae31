package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/croix-presskit/presskit/internal/platform/requestctx"
)

func TestCredentialsVerifyPlain(t *testing.T) {
	creds, err := NewCredentials("Admin@Croix.com", "croix2024", "", "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	if err := creds.Verify("admin@croix.com ", "croix2024"); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	if err := creds.Verify("admin@croix.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialsVerifyHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds, err := NewCredentials("admin@croix.com", "ignored", string(hash), "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	if err := creds.Verify("admin@croix.com", "s3cret"); err != nil {
		t.Fatalf("expected hash match, got %v", err)
	}
	if err := creds.Verify("admin@croix.com", "ignored"); err == nil {
		t.Fatalf("plain password must not be accepted when a hash is configured")
	}
	if _, err := NewCredentials("admin@croix.com", "", "not-a-hash", ""); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestRequireAdmin(t *testing.T) {
	creds, _ := NewCredentials("admin@croix.com", "croix2024", "", "")
	var seen string
	handler := creds.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestctx.Admin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin@croix.com", "croix2024")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen != "admin@croix.com" {
		t.Fatalf("expected admin on context, got %q", seen)
	}
}
