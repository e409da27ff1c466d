package models

import (
	"os"
	"strconv"

	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Configuration
//
// Loads client settings from environment variables to keep deployment
// configuration external to the binary. The shell (PWA/desktop wrapper)
// injects the session token at startup; everything else has workable
// defaults for local development.
// ============================================================================

// Config holds the runtime configuration for the client core.
type Config struct {
	APIURL        string // Base URL of the remote backend (LISTPAD_API_URL)
	DBPath        string // Local store path (LISTPAD_DB_PATH)
	HTTPAddr      string // Local UI-facing listen address (LISTPAD_HTTP_ADDR)
	AuthToken     string // Initial session token (LISTPAD_AUTH_TOKEN)
	Username      string // Display name stamped on item edits (LISTPAD_USERNAME)
	SyncEnabled   bool   // Whether queue draining is active (LISTPAD_SYNC_ENABLED)
	EncryptionKey string // 32-byte key for token-at-rest encryption (LISTPAD_ENCRYPTION_KEY)
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBPath:      "./data/listpad.ddb",
		HTTPAddr:    ":8000",
		SyncEnabled: true,
	}

	cfg.APIURL = os.Getenv("LISTPAD_API_URL")
	cfg.AuthToken = os.Getenv("LISTPAD_AUTH_TOKEN")
	cfg.Username = os.Getenv("LISTPAD_USERNAME")
	cfg.EncryptionKey = os.Getenv("LISTPAD_ENCRYPTION_KEY")

	if path := os.Getenv("LISTPAD_DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if addr := os.Getenv("LISTPAD_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	// Parse enabled flag — defaults to true (the whole point of the client)
	if enabledStr := os.Getenv("LISTPAD_SYNC_ENABLED"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid LISTPAD_SYNC_ENABLED value, expected true/false")
		}
		cfg.SyncEnabled = enabled
	}

	return cfg, nil
}

// Validate fails fast on misconfiguration rather than discovering a missing
// backend URL mid-drain.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return serr.New("LISTPAD_API_URL is required")
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		return serr.New("LISTPAD_ENCRYPTION_KEY must be exactly 32 characters for AES-256")
	}
	return nil
}
