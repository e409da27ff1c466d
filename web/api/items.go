package api

import (
	"context"
	"encoding/json"
	"net/http"

	"listpad/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// AddItem handles POST /api/v1/lists/:id/todos
func AddItem(ctx rweb.Context) error {
	listID, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}

	var input models.ItemInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := models.AddItem(context.Background(), listID, input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to add item")
	}

	logger.Info("Item added", "list_id", int64(listID), "item_id", int64(item.ID))
	return writeSuccess(ctx, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/lists/:id/todos/:todo_id
func UpdateItem(ctx rweb.Context) error {
	listID, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}
	itemID, err := parseEntityID(ctx, "todo_id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid item id")
	}

	var input models.ItemInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := models.UpdateItem(context.Background(), listID, itemID, input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to update item")
	}
	return writeSuccess(ctx, http.StatusOK, item)
}

// ToggleItem handles POST /api/v1/lists/:id/todos/:todo_id/toggle
func ToggleItem(ctx rweb.Context) error {
	listID, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}
	itemID, err := parseEntityID(ctx, "todo_id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid item id")
	}

	item, err := models.ToggleItem(context.Background(), listID, itemID)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to toggle item")
	}
	return writeSuccess(ctx, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/lists/:id/todos/:todo_id
func DeleteItem(ctx rweb.Context) error {
	listID, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid list id")
	}
	itemID, err := parseEntityID(ctx, "todo_id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid item id")
	}

	if err := models.DeleteItem(context.Background(), listID, itemID); err != nil {
		return writeFacadeError(ctx, err, "failed to delete item")
	}

	logger.Info("Item deleted", "list_id", int64(listID), "item_id", int64(itemID))
	return writeSuccess(ctx, http.StatusOK, nil)
}
