package api

import (
	"context"
	"encoding/json"
	"net/http"

	"listpad/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// ============================================================================
// Sync Control API Handlers
//
// These endpoints power the UI controls for sync: a status indicator, an
// enable/disable toggle, a "Sync Now" button, and the connectivity signal
// the shell posts when the platform reports a network change.
// ============================================================================

// SyncStatus handles GET /api/v1/sync/status
// Returns the connectivity and queue state for the UI status indicator.
// If the monitor is not configured, returns a disabled state rather than an
// error so the UI can render gracefully.
func SyncStatus(ctx rweb.Context) error {
	mon := models.GetMonitor()
	if mon == nil {
		return writeSuccess(ctx, http.StatusOK, models.ConnectivityStatus{
			Online:      false,
			SyncEnabled: false,
			Pending:     models.PendingUnknown,
		})
	}
	return writeSuccess(ctx, http.StatusOK, mon.Status())
}

// SyncToggle handles POST /api/v1/sync/toggle
// Enables or disables queue draining at runtime.
// Request body: {"enabled": true} or {"enabled": false}
func SyncToggle(ctx rweb.Context) error {
	mon := models.GetMonitor()
	if mon == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	mon.SetEnabled(req.Enabled)

	return writeSuccess(ctx, http.StatusOK, mon.Status())
}

// SyncNow handles POST /api/v1/sync/now
// Triggers an immediate queue drain. Returns 409 Conflict if a drain is
// already running so the UI does not stack passes.
func SyncNow(ctx rweb.Context) error {
	mon := models.GetMonitor()
	if mon == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}
	if models.GetSyncEngine() != nil && models.GetSyncEngine().InProgress() {
		return writeError(ctx, http.StatusConflict, "sync already in progress")
	}

	pending := mon.SyncNow(context.Background())
	logger.Info("Manual sync completed", "pending", pending)

	return writeSuccess(ctx, http.StatusOK, mon.Status())
}

// ConnectivitySignal handles POST /api/v1/connectivity
// The shell posts here when the platform's network state changes.
// Request body: {"online": true} or {"online": false}
// An offline-to-online transition kicks off a background drain.
func ConnectivitySignal(ctx rweb.Context) error {
	mon := models.GetMonitor()
	if mon == nil {
		return writeError(ctx, http.StatusServiceUnavailable, "sync is not configured")
	}

	var req struct {
		Online bool `json:"online"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	mon.SetOnline(req.Online)
	logger.Info("Connectivity signal", "online", req.Online)

	return writeSuccess(ctx, http.StatusOK, mon.Status())
}
