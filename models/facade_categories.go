package models

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Offline-First Façade — Categories
//
// Same shape as the list façade: reads fall back to the local snapshot,
// writes go online-first and degrade to local-apply-plus-enqueue on
// transport failure.
// ============================================================================

// CategoryInput carries the caller-settable fields of a category.
type CategoryInput struct {
	Name string `json:"name"`
}

// Validate checks the input before any network or store activity.
func (in CategoryInput) Validate() error {
	if in.Name == "" {
		return serr.New("category name is required")
	}
	return nil
}

// FetchCategories returns all categories, preferring fresh server state.
func FetchCategories(ctx context.Context) ([]Category, error) {
	cached, cacheErr := GetLocalCategories()
	if cacheErr != nil {
		logger.LogErr(cacheErr, "failed to read cached categories")
	}

	mon := GetMonitor()
	if mon != nil && !mon.Online() {
		return cached, nil
	}

	var fresh []Category
	err := GetAPIClient().GetJSON(ctx, "/categories", &fresh)
	if err != nil {
		if IsTransportErr(err) {
			if mon != nil {
				mon.ReportOffline()
			}
			return cached, nil
		}
		return nil, err // *StatusError propagates as-is
	}
	if mon != nil {
		mon.ReportOnline()
	}

	if err := SaveCategoriesToLocal(fresh); err != nil {
		logger.LogErr(err, "failed to refresh cached categories")
	}
	return fresh, nil
}

// CreateCategory creates a category, online when possible, otherwise locally
// with a pending id and a queued CREATE_CATEGORY mutation.
func CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	mon := GetMonitor()
	api := GetAPIClient()

	if mon == nil || mon.Online() {
		var created Category
		err := api.SendJSON(ctx, http.MethodPost, "/categories", input, &created)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			if err := PutLocalCategory(&created); err != nil {
				logger.LogErr(err, "failed to cache created category")
			}
			return &created, nil
		}
		if !IsTransportErr(err) {
			return nil, err // *StatusError propagates as-is
		}
		if mon != nil {
			mon.ReportOffline()
		}
	}

	c := &Category{
		ID:      NewPendingID(),
		Name:    input.Name,
		IsOwner: true,
	}
	if err := PutLocalCategory(c); err != nil {
		return nil, serr.Wrap(err, "failed to store category locally")
	}

	if err := enqueueFor(ActionCreateCategory, http.MethodPost, "/categories", input, c.ID, 0); err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateCategory renames a category.
func UpdateCategory(ctx context.Context, id EntityID, input CategoryInput) (*Category, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	c, err := GetLocalCategory(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, serr.New("category not found")
	}

	mon := GetMonitor()
	api := GetAPIClient()
	endpoint := fmt.Sprintf("/categories/%d", int64(id))

	if !id.IsPending() && (mon == nil || mon.Online()) {
		var updated Category
		err := api.SendJSON(ctx, http.MethodPut, endpoint, input, &updated)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			if err := PutLocalCategory(&updated); err != nil {
				logger.LogErr(err, "failed to cache updated category")
			}
			return &updated, nil
		}
		if !IsTransportErr(err) {
			return nil, err // *StatusError propagates as-is
		}
		if mon != nil {
			mon.ReportOffline()
		}
	}

	c.Name = input.Name
	if err := PutLocalCategory(c); err != nil {
		return nil, serr.Wrap(err, "failed to store category locally")
	}

	if err := enqueueFor(ActionUpdateCategory, http.MethodPut, endpoint, input, id, 0); err != nil {
		return nil, err
	}

	return c, nil
}

// DeleteCategory removes a category. Lists referencing it keep existing with
// the reference cleared. A pending category is deleted locally only and its
// queued mutations are purged.
func DeleteCategory(ctx context.Context, id EntityID) error {
	c, err := GetLocalCategory(id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil // Already gone — deletes are idempotent
	}

	mon := GetMonitor()
	api := GetAPIClient()
	endpoint := fmt.Sprintf("/categories/%d", int64(id))

	if !id.IsPending() && (mon == nil || mon.Online()) {
		err := api.SendJSON(ctx, http.MethodDelete, endpoint, nil, nil)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			return DeleteLocalCategory(id)
		}
		if !IsTransportErr(err) {
			return err // *StatusError propagates as-is
		}
		if mon != nil {
			mon.ReportOffline()
		}
	}

	if err := DeleteLocalCategory(id); err != nil {
		return err
	}

	if id.IsPending() {
		return DeleteMutationsForTarget(id)
	}

	return enqueueFor(ActionDeleteCategory, http.MethodDelete, endpoint, nil, id, 0)
}
