package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Offline-First Façade — Lists
//
// Every operation here decides, per call, whether to go over the network,
// fall back to the cache, or write locally and enqueue a mutation.
//
// Reads: local snapshot first; offline or transport failure returns the
// snapshot silently (stale beats broken); an HTTP error response propagates,
// because a server-acknowledged rejection is not absence of connectivity.
//
// Writes: online-first; a non-2xx propagates without touching the local
// store or the queue; a transport failure falls through to the offline path —
// optimistic local apply plus a queued mutation — and reports success. The
// UI is never blocked waiting for connectivity.
// ============================================================================

// ListInput carries the caller-settable fields of a list.
type ListInput struct {
	Name       string    `json:"name"`
	Color      ListColor `json:"color"`
	CategoryID *EntityID `json:"category_id,omitempty"`
	SortOrder  string    `json:"sort_order,omitempty"`
}

// Validate checks the input before any network or store activity.
func (in ListInput) Validate() error {
	if in.Name == "" {
		return serr.New("list name is required")
	}
	if !in.Color.Valid() {
		return serr.New("invalid list color")
	}
	return nil
}

// FetchLists returns all lists, preferring fresh server state.
// The cached snapshot is held first and returned as the silent fallback for
// offline and transport-failure paths.
func FetchLists(ctx context.Context) ([]List, error) {
	cached, cacheErr := GetLocalLists()
	if cacheErr != nil {
		logger.LogErr(cacheErr, "failed to read cached lists")
	}

	mon := GetMonitor()
	if mon != nil && !mon.Online() {
		return cached, nil
	}

	var fresh []List
	err := GetAPIClient().GetJSON(ctx, "/lists", &fresh)
	if err != nil {
		if IsTransportErr(err) {
			if mon != nil {
				mon.ReportOffline()
			}
			return cached, nil
		}
		// Server-acknowledged rejection (e.g. auth expired) — propagate
		return nil, err // *StatusError propagates as-is
	}
	if mon != nil {
		mon.ReportOnline()
	}

	if err := SaveListsToLocal(fresh); err != nil {
		logger.LogErr(err, "failed to refresh cached lists")
	}
	return fresh, nil
}

// GetList returns a single list from the local store. Single-entity reads
// are always served locally — FetchLists is the refresh path.
func GetList(id EntityID) (*List, error) {
	l, err := GetLocalList(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, serr.New("list not found")
	}
	return l, nil
}

// CreateList creates a list, online when possible, otherwise locally with a
// pending id and a queued CREATE_LIST mutation.
func CreateList(ctx context.Context, input ListInput) (*List, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	mon := GetMonitor()
	api := GetAPIClient()

	if mon == nil || mon.Online() {
		var created List
		err := api.SendJSON(ctx, http.MethodPost, "/lists", input, &created)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			if err := PutLocalList(&created); err != nil {
				logger.LogErr(err, "failed to cache created list")
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

	// Offline path: optimistic local create under a pending id
	l := &List{
		ID:         NewPendingID(),
		Name:       input.Name,
		Color:      input.Color,
		CategoryID: input.CategoryID,
		SortOrder:  input.SortOrder,
		IsOwner:    true,
		CanEdit:    true,
		CreatedAt:  time.Now(),
		Items:      []Item{},
	}
	if err := PutLocalList(l); err != nil {
		return nil, serr.Wrap(err, "failed to store list locally")
	}

	if err := enqueueFor(ActionCreateList, http.MethodPost, "/lists", input, l.ID, 0); err != nil {
		return nil, err
	}

	return l, nil
}

// UpdateList edits a list's caller-settable fields.
func UpdateList(ctx context.Context, id EntityID, input ListInput) (*List, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return updateListOp(ctx, id, ActionUpdateList, http.MethodPut,
		fmt.Sprintf("/lists/%d", int64(id)), input, func(l *List) {
			l.Name = input.Name
			l.Color = input.Color
			l.CategoryID = input.CategoryID
			l.SortOrder = input.SortOrder
		})
}

// ArchiveList sets or clears the archived flag.
func ArchiveList(ctx context.Context, id EntityID, archived bool) (*List, error) {
	payload := map[string]bool{"is_archived": archived}
	return updateListOp(ctx, id, ActionUpdateList, http.MethodPatch,
		fmt.Sprintf("/lists/%d", int64(id)), payload, func(l *List) {
			l.IsArchived = archived
		})
}

// AssignListCategory points a list at a category (or clears the reference
// when categoryID is nil).
func AssignListCategory(ctx context.Context, id EntityID, categoryID *EntityID) (*List, error) {
	payload := map[string]*EntityID{"category_id": categoryID}
	return updateListOp(ctx, id, ActionUpdateList, http.MethodPatch,
		fmt.Sprintf("/lists/%d", int64(id)), payload, func(l *List) {
			l.CategoryID = categoryID
		})
}

// ShareList grants another user access to a list.
func ShareList(ctx context.Context, id EntityID, username string) (*List, error) {
	if username == "" {
		return nil, serr.New("username is required")
	}
	payload := map[string]string{"username": username}
	return updateListOp(ctx, id, ActionShareList, http.MethodPost,
		fmt.Sprintf("/lists/%d/share", int64(id)), payload, func(l *List) {
			l.IsShared = true
		})
}

// DeleteList removes a list. A list the server never saw (pending id) is
// deleted locally only, and any queued mutations for it are purged — there
// is nothing to delete remotely and its create must never replay.
func DeleteList(ctx context.Context, id EntityID) error {
	l, err := GetLocalList(id)
	if err != nil {
		return err
	}
	if l == nil {
		return nil // Already gone — deletes are idempotent
	}

	mon := GetMonitor()
	api := GetAPIClient()
	endpoint := fmt.Sprintf("/lists/%d", int64(id))

	if !id.IsPending() && (mon == nil || mon.Online()) {
		err := api.SendJSON(ctx, http.MethodDelete, endpoint, nil, nil)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			return DeleteLocalList(id)
		}
		if !IsTransportErr(err) {
			return err // *StatusError propagates as-is
		}
		if mon != nil {
			mon.ReportOffline()
		}
	}

	if err := DeleteLocalList(id); err != nil {
		return err
	}

	if id.IsPending() {
		return DeleteMutationsForTarget(id)
	}

	return enqueueFor(ActionDeleteList, http.MethodDelete, endpoint, nil, id, 0)
}

// updateListOp is the shared write path for list-level edits:
// read-modify-write against the local store, online-synchronous-first.
func updateListOp(ctx context.Context, id EntityID, action, method, endpoint string,
	payload interface{}, mutate func(*List)) (*List, error) {

	l, err := GetLocalList(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, serr.New("list not found")
	}
	if !l.CanEdit {
		return nil, serr.New("list is read-only for this user")
	}

	mon := GetMonitor()
	api := GetAPIClient()

	if !id.IsPending() && (mon == nil || mon.Online()) {
		var updated List
		err := api.SendJSON(ctx, method, endpoint, payload, &updated)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			if err := PutLocalList(&updated); err != nil {
				logger.LogErr(err, "failed to cache updated list")
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

	// Offline path: apply locally, then queue the captured request
	mutate(l)
	if err := PutLocalList(l); err != nil {
		return nil, serr.Wrap(err, "failed to store list locally")
	}

	if err := enqueueFor(action, method, endpoint, payload, id, 0); err != nil {
		return nil, err
	}

	return l, nil
}

// enqueueFor captures the request that would have been sent and appends it
// to the mutation queue.
func enqueueFor(action, method, endpoint string, payload interface{}, targetID, listID EntityID) error {
	var body string
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return serr.Wrap(err, "failed to capture request body")
		}
		body = string(data)
	}

	return EnqueueMutation(&Mutation{
		Action:   action,
		Endpoint: endpoint,
		Method:   method,
		Body:     body,
		Headers:  GetAPIClient().CapturedHeaders(),
		TargetID: targetID,
		ListID:   listID,
	})
}
