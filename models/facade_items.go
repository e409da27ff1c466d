package models

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Offline-First Façade — Items
//
// Items live embedded in their list, so every item write is a list-level
// read-modify-write: fetch the owning list, mutate the item slice, write the
// whole list back. Same online-first / enqueue-on-transport-failure policy
// as list operations.
// ============================================================================

// ItemInput carries the caller-settable fields of a to-do entry.
type ItemInput struct {
	Title    string  `json:"title"`
	Quantity *int    `json:"quantity,omitempty"`
	Unit     *string `json:"unit,omitempty"`
}

// Validate checks the input, including the quantity/unit pairing invariant.
func (in ItemInput) Validate() error {
	if in.Title == "" {
		return serr.New("item title is required")
	}
	return Item{Quantity: in.Quantity, Unit: in.Unit}.ValidateQuantity()
}

// AddItem appends a to-do entry to a list.
func AddItem(ctx context.Context, listID EntityID, input ItemInput) (*Item, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	l, err := GetLocalList(listID)
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
	endpoint := fmt.Sprintf("/lists/%d/todos", int64(listID))

	if !listID.IsPending() && (mon == nil || mon.Online()) {
		var created Item
		err := api.SendJSON(ctx, http.MethodPost, endpoint, input, &created)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			l.Items = append(l.Items, created)
			if err := PutLocalList(l); err != nil {
				logger.LogErr(err, "failed to cache created item")
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

	// Offline path: embed under a pending id, rewrite the owning list
	item := Item{
		ID:         NewPendingID(),
		Title:      input.Title,
		Quantity:   input.Quantity,
		Unit:       input.Unit,
		CreatedBy:  CurrentUser(),
		ModifiedBy: CurrentUser(),
	}
	l.Items = append(l.Items, item)
	if err := PutLocalList(l); err != nil {
		return nil, serr.Wrap(err, "failed to store item locally")
	}

	if err := enqueueFor(ActionCreateTodo, http.MethodPost, endpoint, input, item.ID, listID); err != nil {
		return nil, err
	}

	return &item, nil
}

// ToggleItem flips an item's completed flag.
func ToggleItem(ctx context.Context, listID, itemID EntityID) (*Item, error) {
	endpoint := fmt.Sprintf("/lists/%d/todos/%d/toggle", int64(listID), int64(itemID))
	return updateItemOp(ctx, listID, itemID, ActionToggleTodo, http.MethodPatch,
		endpoint, nil, func(it *Item) {
			it.Done = !it.Done
		})
}

// UpdateItem edits an item's title, quantity and unit.
func UpdateItem(ctx context.Context, listID, itemID EntityID, input ItemInput) (*Item, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("/lists/%d/todos/%d", int64(listID), int64(itemID))
	return updateItemOp(ctx, listID, itemID, ActionUpdateTodo, http.MethodPut,
		endpoint, input, func(it *Item) {
			it.Title = input.Title
			it.Quantity = input.Quantity
			it.Unit = input.Unit
		})
}

// DeleteItem removes an item from its list. An item created offline and
// never synced (pending id) is removed locally only, and queued mutations
// for it are purged.
func DeleteItem(ctx context.Context, listID, itemID EntityID) error {
	l, err := GetLocalList(listID)
	if err != nil {
		return err
	}
	if l == nil {
		return serr.New("list not found")
	}

	idx := l.indexOfItem(itemID)
	if idx < 0 {
		return nil // Already gone — deletes are idempotent
	}

	mon := GetMonitor()
	api := GetAPIClient()
	endpoint := fmt.Sprintf("/lists/%d/todos/%d", int64(listID), int64(itemID))

	if !itemID.IsPending() && !listID.IsPending() && (mon == nil || mon.Online()) {
		err := api.SendJSON(ctx, http.MethodDelete, endpoint, nil, nil)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
			return PutLocalList(l)
		}
		if !IsTransportErr(err) {
			return err // *StatusError propagates as-is
		}
		if mon != nil {
			mon.ReportOffline()
		}
	}

	l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
	if err := PutLocalList(l); err != nil {
		return err
	}

	if itemID.IsPending() {
		return DeleteMutationsForTarget(itemID)
	}

	return enqueueFor(ActionDeleteTodo, http.MethodDelete, endpoint, nil, itemID, listID)
}

// updateItemOp is the shared write path for item-level edits.
func updateItemOp(ctx context.Context, listID, itemID EntityID, action, method, endpoint string,
	payload interface{}, mutate func(*Item)) (*Item, error) {

	l, err := GetLocalList(listID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, serr.New("list not found")
	}
	if !l.CanEdit {
		return nil, serr.New("list is read-only for this user")
	}

	idx := l.indexOfItem(itemID)
	if idx < 0 {
		return nil, serr.New("item not found")
	}

	mon := GetMonitor()
	api := GetAPIClient()

	if !itemID.IsPending() && !listID.IsPending() && (mon == nil || mon.Online()) {
		var updated Item
		err := api.SendJSON(ctx, method, endpoint, payload, &updated)
		if err == nil {
			if mon != nil {
				mon.ReportOnline()
			}
			l.Items[idx] = updated
			if err := PutLocalList(l); err != nil {
				logger.LogErr(err, "failed to cache updated item")
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

	// Offline path: mutate the embedded item, rewrite the owning list
	mutate(&l.Items[idx])
	l.Items[idx].ModifiedBy = CurrentUser()
	if err := PutLocalList(l); err != nil {
		return nil, serr.Wrap(err, "failed to store item locally")
	}

	if err := enqueueFor(action, method, endpoint, payload, itemID, listID); err != nil {
		return nil, err
	}

	item := l.Items[idx]
	return &item, nil
}
