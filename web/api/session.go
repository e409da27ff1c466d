package api

import (
	"encoding/json"
	"net/http"

	"listpad/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Session API Handlers
//
// The shell owns authentication against the remote backend; the client core
// only needs the resulting session token. These endpoints let the shell hand
// the token over after login and wipe local state on logout.
// ============================================================================

// SetToken handles POST /api/v1/session/token
// Installs a fresh session token, persisting it for the configured backend.
// Request body: {"token": "<jwt>", "username": "alice"}
func SetToken(ctx rweb.Context) error {
	api := models.GetAPIClient()
	if api == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "backend is not configured")
	}

	var req struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return writeError(ctx, http.StatusBadRequest, "token is required")
	}

	if err := models.SetSessionToken(api.BaseURL(), req.Token); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to store session token"), "session error")
		return writeError(ctx, http.StatusInternalServerError, "failed to store session token")
	}
	if req.Username != "" {
		models.SetCurrentUser(req.Username)
	}

	logger.Info("Session token installed", "username", req.Username)
	return writeSuccess(ctx, http.StatusOK, nil)
}

// Logout handles POST /api/v1/session/logout
// Clears all local data: lists, categories, queued mutations, and the stored
// token. Queued mutations belong to the departing session and must not
// replay under a future account.
func Logout(ctx rweb.Context) error {
	if err := models.ClearAllData(); err != nil {
		logger.LogErr(serr.Wrap(err, "failed to clear local data"), "logout error")
		return writeError(ctx, http.StatusInternalServerError, "failed to clear local data")
	}

	api := models.GetAPIClient()
	if api != nil {
		if err := models.SetSessionToken(api.BaseURL(), ""); err != nil {
			logger.LogErr(serr.Wrap(err, "failed to clear session token"), "logout error")
		}
	}
	models.SetCurrentUser("")

	logger.Info("Logged out, local data cleared")
	return writeSuccess(ctx, http.StatusOK, nil)
}
