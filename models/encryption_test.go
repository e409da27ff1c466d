package models_test

import (
	"os"
	"testing"

	"listpad/models"
)

const testEncryptionKey = "12345678901234567890123456789012"

// TestEncryptDecrypt verifies roundtrips across content shapes.
func TestEncryptDecrypt(t *testing.T) {
	models.ResetEncryption()
	if err := models.InitEncryption(testEncryptionKey); err != nil {
		t.Fatalf("failed to initialize encryption: %v", err)
	}
	defer models.ResetEncryption()

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"jwt-like token", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ0ZXN0In0.sig"},
		{"simple text", "Hello, World!"},
		{"unicode content", "日本語テスト 🎉"},
		{"special characters", "!@#$%^&*()_+-=[]{}|;':\",./<>?"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, iv, err := models.Encrypt(tc.plaintext)
			if err != nil {
				t.Fatalf("encryption failed: %v", err)
			}
			if ciphertext == tc.plaintext {
				t.Error("ciphertext must differ from plaintext")
			}
			if iv == "" {
				t.Error("expected a non-empty IV")
			}

			decrypted, err := models.Decrypt(ciphertext, iv)
			if err != nil {
				t.Fatalf("decryption failed: %v", err)
			}
			if decrypted != tc.plaintext {
				t.Errorf("roundtrip mismatch: got %q, want %q", decrypted, tc.plaintext)
			}
		})
	}
}

// TestEncryptionUniquePerCall verifies two encryptions of the same plaintext
// differ (fresh IV per call).
func TestEncryptionUniquePerCall(t *testing.T) {
	models.ResetEncryption()
	if err := models.InitEncryption(testEncryptionKey); err != nil {
		t.Fatalf("failed to initialize encryption: %v", err)
	}
	defer models.ResetEncryption()

	c1, iv1, err := models.Encrypt("same token")
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}
	c2, iv2, err := models.Encrypt("same token")
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}
	if c1 == c2 || iv1 == iv2 {
		t.Error("expected distinct ciphertext and IV per call")
	}
}

// TestInitEncryptionKeyLength verifies key validation.
func TestInitEncryptionKeyLength(t *testing.T) {
	defer models.ResetEncryption()

	if err := models.InitEncryption("too short"); err == nil {
		t.Error("expected short key to be rejected")
	}
	if err := models.InitEncryption(""); err != nil {
		t.Errorf("empty key disables encryption, must not error: %v", err)
	}
	if models.IsEncryptionEnabled() {
		t.Error("encryption must be disabled with an empty key")
	}
	if err := models.InitEncryption(testEncryptionKey); err != nil {
		t.Errorf("32-char key must be accepted: %v", err)
	}
	if !models.IsEncryptionEnabled() {
		t.Error("encryption must be enabled after installing a key")
	}
}

// TestStoredTokenEncryptedAtRest verifies the persisted session token is not
// readable in the clear when a key is installed.
func TestStoredTokenEncryptedAtRest(t *testing.T) {
	models.ResetEncryption()
	if err := models.InitEncryption(testEncryptionKey); err != nil {
		t.Fatalf("failed to initialize encryption: %v", err)
	}
	defer models.ResetEncryption()

	os.Remove("./test_token_rest.ddb")
	os.Remove("./test_token_rest.ddb.wal")
	defer os.Remove("./test_token_rest.ddb")
	defer os.Remove("./test_token_rest.ddb.wal")

	if err := models.InitTestDB("./test_token_rest.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	defer models.CloseDB()

	state, err := models.GetOrCreateClientState("http://test-backend")
	if err != nil {
		t.Fatalf("failed to create client state: %v", err)
	}
	if state.ClientID == "" {
		t.Fatal("expected a generated client id")
	}

	secret := "super-secret-session-token"
	if err := models.SetSessionToken("http://test-backend", secret); err != nil {
		t.Fatalf("failed to set session token: %v", err)
	}
	defer models.SetSessionToken("http://test-backend", "")

	reloaded, err := models.GetOrCreateClientState("http://test-backend")
	if err != nil {
		t.Fatalf("failed to reload client state: %v", err)
	}
	if !reloaded.AuthToken.Valid || reloaded.AuthToken.String == "" {
		t.Fatal("expected a stored token")
	}
	if reloaded.AuthToken.String == secret {
		t.Error("token must not be stored in the clear when a key is installed")
	}
	if !reloaded.TokenIV.Valid || reloaded.TokenIV.String == "" {
		t.Error("expected a stored IV alongside the encrypted token")
	}

	// And the in-memory restore path decrypts it back
	if models.CurrentToken() != secret {
		t.Errorf("expected restored token %q, got %q", secret, models.CurrentToken())
	}
}

// TestClientIDStableAcrossRestarts verifies the client identity persists.
func TestClientIDStableAcrossRestarts(t *testing.T) {
	models.ResetEncryption()

	os.Remove("./test_client_id.ddb")
	os.Remove("./test_client_id.ddb.wal")
	defer os.Remove("./test_client_id.ddb")
	defer os.Remove("./test_client_id.ddb.wal")

	if err := models.InitTestDB("./test_client_id.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	first, err := models.GetOrCreateClientState("http://stable-backend")
	if err != nil {
		t.Fatalf("failed to create client state: %v", err)
	}

	models.CloseDB()
	if err := models.InitTestDB("./test_client_id.ddb"); err != nil {
		t.Fatalf("failed to reopen test database: %v", err)
	}
	defer models.CloseDB()

	second, err := models.GetOrCreateClientState("http://stable-backend")
	if err != nil {
		t.Fatalf("failed to reload client state: %v", err)
	}
	if first.ClientID != second.ClientID {
		t.Errorf("client id changed across restart: %s vs %s", first.ClientID, second.ClientID)
	}
}
