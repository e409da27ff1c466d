package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"listpad/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
)

// APIResponse provides a consistent JSON response structure for all API endpoints.
// Success responses include data, error responses include an error message.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeSuccess sends a successful JSON response with data.
func writeSuccess(ctx rweb.Context, status int, data interface{}) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: true, Data: data})
}

// writeError sends an error JSON response.
func writeError(ctx rweb.Context, status int, message string) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: false, Error: message})
}

// writeFacadeError maps a façade error onto the local API boundary.
// A server rejection keeps its upstream status; everything else is a local
// store problem. Transport errors never reach here — the façade absorbs
// them into the offline path.
func writeFacadeError(ctx rweb.Context, err error, msg string) error {
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		logger.Info("Upstream rejected request", "status", statusErr.StatusCode, "detail", msg)
		return writeError(ctx, statusErr.StatusCode, msg)
	}
	logger.LogErr(serr.Wrap(err, msg), "local store error")
	return writeError(ctx, http.StatusInternalServerError, msg)
}

// parseEntityID parses a path parameter into an EntityID. Negative values
// are legal — they address entities created offline that the server has not
// assigned an id to yet.
func parseEntityID(ctx rweb.Context, param string) (models.EntityID, error) {
	raw := ctx.Request().Param(param)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, serr.Wrap(err, "invalid id parameter", "param", param, "value", raw)
	}
	return models.EntityID(n), nil
}

// ListLists handles GET /api/v1/lists
// Returns all lists, fresh from the server when reachable, otherwise the
// local snapshot.
func ListLists(ctx rweb.Context) error {
	lists, err := models.FetchLists(context.Background())
	if err != nil {
		return writeFacadeError(ctx, err, "failed to fetch lists")
	}
	return writeSuccess(ctx, http.StatusOK, lists)
}

// GetList handles GET /api/v1/lists/:id
// Single-list reads are always served from the local store.
func GetList(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	l, err := models.GetList(id)
	if err != nil {
		return writeError(ctx, http.StatusNotFound, "list not found")
	}
	return writeSuccess(ctx, http.StatusOK, l)
}

// CreateList handles POST /api/v1/lists
func CreateList(ctx rweb.Context) error {
	var input models.ListInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	l, err := models.CreateList(context.Background(), input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to create list")
	}

	logger.Info("List created", "id", int64(l.ID), "name", l.Name, "pending", l.ID.IsPending())
	return writeSuccess(ctx, http.StatusCreated, l)
}

// UpdateList handles PUT /api/v1/lists/:id
func UpdateList(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	var input models.ListInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	l, err := models.UpdateList(context.Background(), id, input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to update list")
	}
	return writeSuccess(ctx, http.StatusOK, l)
}

// ArchiveList handles POST /api/v1/lists/:id/archive
// Request body: {"is_archived": true} or {"is_archived": false}
func ArchiveList(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	var req struct {
		IsArchived bool `json:"is_archived"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	l, err := models.ArchiveList(context.Background(), id, req.IsArchived)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to archive list")
	}
	return writeSuccess(ctx, http.StatusOK, l)
}

// AssignListCategory handles POST /api/v1/lists/:id/category
// Request body: {"category_id": 7} or {"category_id": null} to clear.
func AssignListCategory(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	var req struct {
		CategoryID *models.EntityID `json:"category_id"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}

	l, err := models.AssignListCategory(context.Background(), id, req.CategoryID)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to assign category")
	}
	return writeSuccess(ctx, http.StatusOK, l)
}

// ShareList handles POST /api/v1/lists/:id/share
// Request body: {"username": "alice"}
func ShareList(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(ctx.Request().Body(), &req); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if req.Username == "" {
		return writeError(ctx, http.StatusBadRequest, "username is required")
	}

	l, err := models.ShareList(context.Background(), id, req.Username)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to share list")
	}
	return writeSuccess(ctx, http.StatusOK, l)
}

// DeleteList handles DELETE /api/v1/lists/:id
func DeleteList(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	if err := models.DeleteList(context.Background(), id); err != nil {
		return writeFacadeError(ctx, err, "failed to delete list")
	}

	logger.Info("List deleted", "id", int64(id))
	return writeSuccess(ctx, http.StatusOK, nil)
}
