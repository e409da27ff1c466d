package api

import (
	"context"
	"encoding/json"
	"net/http"

	"listpad/models"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// ListCategories handles GET /api/v1/categories
func ListCategories(ctx rweb.Context) error {
	categories, err := models.FetchCategories(context.Background())
	if err != nil {
		return writeFacadeError(ctx, err, "failed to fetch categories")
	}
	return writeSuccess(ctx, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories
func CreateCategory(ctx rweb.Context) error {
	var input models.CategoryInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	c, err := models.CreateCategory(context.Background(), input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to create category")
	}

	logger.Info("Category created", "id", int64(c.ID), "name", c.Name, "pending", c.ID.IsPending())
	return writeSuccess(ctx, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/v1/categories/:id
func UpdateCategory(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid category id")
	}

	var input models.CategoryInput
	if err := json.Unmarshal(ctx.Request().Body(), &input); err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid JSON body")
	}
	if err := input.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	c, err := models.UpdateCategory(context.Background(), id, input)
	if err != nil {
		return writeFacadeError(ctx, err, "failed to update category")
	}
	return writeSuccess(ctx, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/v1/categories/:id
// Lists referencing the category survive with the reference cleared.
func DeleteCategory(ctx rweb.Context) error {
	id, err := parseEntityID(ctx, "id")
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid category id")
	}

	if err := models.DeleteCategory(context.Background(), id); err != nil {
		return writeFacadeError(ctx, err, "failed to delete category")
	}

	logger.Info("Category deleted", "id", int64(id))
	return writeSuccess(ctx, http.StatusOK, nil)
}
