package models_test

import (
	"os"
	"testing"
	"time"

	"listpad/models"
)

// setupTokenTestDB gives SetSessionToken a store to persist into.
func setupTokenTestDB(t *testing.T) func() {
	t.Helper()

	os.Remove("./test_token.ddb")
	os.Remove("./test_token.ddb.wal")

	if err := models.InitTestDB("./test_token.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	return func() {
		models.CloseDB()
		os.Remove("./test_token.ddb")
		os.Remove("./test_token.ddb.wal")
	}
}

// TestTokenExpired covers JWT expiry detection and the opaque-token rule.
func TestTokenExpired(t *testing.T) {
	if !models.TokenExpired(signedToken(t, time.Now().Add(-time.Minute))) {
		t.Error("expected past-expiry token to read as expired")
	}
	if models.TokenExpired(signedToken(t, time.Now().Add(time.Hour))) {
		t.Error("expected live token to read as not expired")
	}
	// Opaque tokens cannot be judged locally — treat as not expired and let
	// the server decide
	if models.TokenExpired("opaque-session-token-xyz") {
		t.Error("opaque token must not read as expired")
	}
	if models.TokenExpired("") {
		t.Error("empty token must not read as expired")
	}
}

// TestRefreshAuthHeader verifies substitution only happens for an expired
// captured token with a live replacement available.
func TestRefreshAuthHeader(t *testing.T) {
	cleanup := setupTokenTestDB(t)
	defer cleanup()

	expired := signedToken(t, time.Now().Add(-time.Hour))
	live := signedToken(t, time.Now().Add(time.Hour))

	if err := models.SetSessionToken("http://test", live); err != nil {
		t.Fatalf("failed to set session token: %v", err)
	}
	defer models.SetSessionToken("http://test", "")

	// Expired captured token: substituted
	captured := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + expired,
	}
	got := models.RefreshAuthHeader(captured)
	if got["Authorization"] != "Bearer "+live {
		t.Errorf("expected live token substituted, got %q", got["Authorization"])
	}
	if got["Content-Type"] != "application/json" {
		t.Error("other headers must pass through")
	}
	if captured["Authorization"] != "Bearer "+expired {
		t.Error("the captured map must not be mutated")
	}

	// Live captured token: untouched
	captured = map[string]string{"Authorization": "Bearer " + live}
	got = models.RefreshAuthHeader(captured)
	if got["Authorization"] != "Bearer "+live {
		t.Errorf("live captured token must pass through, got %q", got["Authorization"])
	}

	// No Authorization header at all: untouched
	captured = map[string]string{"Content-Type": "application/json"}
	got = models.RefreshAuthHeader(captured)
	if _, ok := got["Authorization"]; ok {
		t.Error("must not invent an Authorization header")
	}
}
