package models

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Client State
//
// Persists the stable client identity and the current session token across
// restarts, keyed by API URL. The client id must remain stable so the server
// can attribute replayed mutations to the same device. The token is stored
// AES-encrypted when an encryption key is configured.
// ============================================================================

// ClientState is a row in the client_state table.
type ClientState struct {
	APIURL     string
	ClientID   string
	AuthToken  sql.NullString
	TokenIV    sql.NullString
	LastSyncAt sql.NullTime
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// sessionToken is the in-memory copy of the current session token.
// The API client's tokenFn reads it; SetSessionToken updates it (login,
// token refresh) and persists it.
var (
	sessionToken   string
	sessionTokenMu sync.RWMutex
)

// currentUser is the display name stamped onto items this client edits.
var (
	currentUser   string
	currentUserMu sync.RWMutex
)

// CurrentUser returns the configured display name for item attribution.
func CurrentUser() string {
	currentUserMu.RLock()
	defer currentUserMu.RUnlock()
	return currentUser
}

// SetCurrentUser sets the display name used for item attribution.
func SetCurrentUser(name string) {
	currentUserMu.Lock()
	currentUser = name
	currentUserMu.Unlock()
}

// CurrentToken returns the in-memory session token.
func CurrentToken() string {
	sessionTokenMu.RLock()
	defer sessionTokenMu.RUnlock()
	return sessionToken
}

// SetSessionToken updates the in-memory token and persists it for the
// given API URL.
func SetSessionToken(apiURL, token string) error {
	sessionTokenMu.Lock()
	sessionToken = token
	sessionTokenMu.Unlock()

	return storeAuthToken(apiURL, token)
}

// GetOrCreateClientState loads the client state for an API URL, creating a
// row with a fresh client id if none exists. Restores the persisted session
// token into memory as a side effect.
func GetOrCreateClientState(apiURL string) (*ClientState, error) {
	state := &ClientState{}
	err := QueryRowFromCache(
		`SELECT api_url, client_id, auth_token, token_iv, last_sync_at, created_at, updated_at
		 FROM client_state WHERE api_url = ?`, apiURL,
	).Scan(&state.APIURL, &state.ClientID, &state.AuthToken, &state.TokenIV,
		&state.LastSyncAt, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		// First run against this backend — mint a new client id
		state.APIURL = apiURL
		state.ClientID = uuid.New().String()
		state.CreatedAt = time.Now()
		state.UpdatedAt = time.Now()

		err = WriteThrough(
			`INSERT INTO client_state (api_url, client_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			state.APIURL, state.ClientID, state.CreatedAt, state.UpdatedAt,
		)
		if err != nil {
			return nil, serr.Wrap(err, "failed to insert client state")
		}

		logger.Info("Created new client state", "api_url", apiURL, "client_id", state.ClientID)
		return state, nil
	}

	if err != nil {
		return nil, serr.Wrap(err, "failed to query client state")
	}

	// Restore the persisted token so the session survives restarts
	if state.AuthToken.Valid && state.AuthToken.String != "" {
		token := state.AuthToken.String
		if state.TokenIV.Valid && state.TokenIV.String != "" {
			if !IsEncryptionEnabled() {
				logger.Info("Stored token is encrypted but no key is configured, ignoring")
				return state, nil
			}
			token, err = Decrypt(state.AuthToken.String, state.TokenIV.String)
			if err != nil {
				logger.LogErr(err, "failed to decrypt stored token, ignoring")
				return state, nil
			}
		}
		sessionTokenMu.Lock()
		sessionToken = token
		sessionTokenMu.Unlock()
	}

	return state, nil
}

// storeAuthToken persists the session token, encrypted when a key is set.
func storeAuthToken(apiURL, token string) error {
	stored := token
	iv := ""

	if token != "" && IsEncryptionEnabled() {
		var err error
		stored, iv, err = Encrypt(token)
		if err != nil {
			return serr.Wrap(err, "failed to encrypt session token")
		}
	}

	err := WriteThrough(
		`UPDATE client_state SET auth_token = ?, token_iv = ?, updated_at = ? WHERE api_url = ?`,
		stored, iv, time.Now(), apiURL,
	)
	if err != nil {
		return serr.Wrap(err, "failed to persist session token")
	}
	return nil
}

// UpdateLastSyncAt records when the last successful drain completed.
func UpdateLastSyncAt(apiURL string) error {
	err := WriteThrough(
		`UPDATE client_state SET last_sync_at = ?, updated_at = ? WHERE api_url = ?`,
		time.Now(), time.Now(), apiURL,
	)
	if err != nil {
		return serr.Wrap(err, "failed to update last sync time")
	}
	return nil
}
