package models_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"listpad/models"
)

// setupFacadeTest initializes a clean database, a fake backend, and the
// client/engine/monitor singletons wired to it. The monitor is created with
// sync disabled so no background drain races the test; tests drive the
// engine explicitly.
func setupFacadeTest(t *testing.T, handler http.Handler) (*httptest.Server, func()) {
	t.Helper()

	os.Remove("./test_facade.ddb")
	os.Remove("./test_facade.ddb.wal")

	if err := models.InitTestDB("./test_facade.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	srv := httptest.NewServer(handler)

	api := models.NewAPIClient(srv.URL, models.CurrentToken)
	engine := models.NewSyncEngine(api)
	models.NewMonitor(engine, false)

	return srv, func() {
		srv.Close()
		models.CloseDB()
		os.Remove("./test_facade.ddb")
		os.Remove("./test_facade.ddb.wal")
	}
}

// jsonHandler responds to every request with the given status and payload.
func jsonHandler(status int, payload interface{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(payload)
	})
}

// TestFetchListsRefreshesCache verifies an online fetch returns server state
// and installs it as the new local snapshot.
func TestFetchListsRefreshesCache(t *testing.T) {
	server := []models.List{
		{ID: 1, Name: "From Server", Color: models.ColorBlue, CanEdit: true,
			Items: []models.Item{{ID: 11, Title: "sync me"}}},
	}
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, server))
	defer cleanup()
	_ = srv

	lists, err := models.FetchLists(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "From Server" {
		t.Fatalf("unexpected lists: %+v", lists)
	}

	cached, err := models.GetLocalList(1)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if cached == nil || len(cached.Items) != 1 || cached.Items[0].Title != "sync me" {
		t.Errorf("expected server snapshot cached with items, got %+v", cached)
	}
}

// TestFetchListsFallsBackToCache verifies an unreachable backend yields the
// local snapshot with no error, and flips the monitor offline.
func TestFetchListsFallsBackToCache(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	if err := models.PutLocalList(&models.List{
		ID: 3, Name: "Cached", Color: models.ColorRed, CanEdit: true,
	}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	srv.Close() // backend goes away

	lists, err := models.FetchLists(context.Background())
	if err != nil {
		t.Fatalf("expected silent fallback, got error: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Cached" {
		t.Fatalf("expected cached snapshot, got %+v", lists)
	}

	if models.GetMonitor().Online() {
		t.Error("transport failure must flip the monitor offline")
	}
}

// TestFetchListsPropagatesRejection verifies a server error response (not a
// transport failure) surfaces to the caller rather than being masked by the
// cache.
func TestFetchListsPropagatesRejection(t *testing.T) {
	_, cleanup := setupFacadeTest(t, jsonHandler(http.StatusUnauthorized, map[string]string{"error": "expired"}))
	defer cleanup()

	_, err := models.FetchLists(context.Background())
	if err == nil {
		t.Fatal("expected error from server rejection")
	}

	var statusErr *models.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", statusErr.StatusCode)
	}

	// An HTTP response proves reachability
	if !models.GetMonitor().Online() {
		t.Error("a server rejection must not flip the monitor offline")
	}
}

// TestCreateListOnline verifies an online create stores the server-assigned
// id and queues nothing.
func TestCreateListOnline(t *testing.T) {
	created := models.List{ID: 90, Name: "Server Made", Color: models.ColorGreen, IsOwner: true, CanEdit: true}
	_, cleanup := setupFacadeTest(t, jsonHandler(http.StatusCreated, created))
	defer cleanup()

	l, err := models.CreateList(context.Background(), models.ListInput{Name: "Server Made", Color: models.ColorGreen})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if l.ID != 90 {
		t.Errorf("expected server id 90, got %d", l.ID)
	}
	if l.ID.IsPending() {
		t.Error("online create must not produce a pending id")
	}

	count, _ := models.CountQueuedMutations()
	if count != 0 {
		t.Errorf("online create must not enqueue, queue has %d", count)
	}
}

// TestCreateListOffline verifies the offline path: pending id, local row,
// one queued CREATE_LIST carrying the request.
func TestCreateListOffline(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()
	srv.Close()

	l, err := models.CreateList(context.Background(), models.ListInput{Name: "Offline Made", Color: models.ColorPurple})
	if err != nil {
		t.Fatalf("offline create must succeed locally: %v", err)
	}
	if !l.ID.IsPending() {
		t.Errorf("expected pending id, got %d", l.ID)
	}
	if !l.IsOwner || !l.CanEdit {
		t.Error("locally created list must be owned and editable")
	}

	cached, err := models.GetLocalList(l.ID)
	if err != nil || cached == nil {
		t.Fatalf("expected local row for offline create: %v", err)
	}

	entries, err := models.QueuedMutations()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 queued mutation, got %d", len(entries))
	}
	m := entries[0]
	if m.Action != models.ActionCreateList || m.Method != "POST" || m.Endpoint != "/lists" {
		t.Errorf("unexpected queue entry: %+v", m)
	}
	if m.TargetID != l.ID {
		t.Errorf("queue entry target %d does not match pending id %d", m.TargetID, l.ID)
	}
}

// TestCreateListRejectionDoesNotEnqueue verifies a server-acknowledged
// rejection neither stores locally nor queues — only transport failures take
// the offline path.
func TestCreateListRejectionDoesNotEnqueue(t *testing.T) {
	_, cleanup := setupFacadeTest(t, jsonHandler(http.StatusBadRequest, map[string]string{"error": "bad name"}))
	defer cleanup()

	_, err := models.CreateList(context.Background(), models.ListInput{Name: "Nope", Color: models.ColorBlue})
	if err == nil {
		t.Fatal("expected rejection to propagate")
	}

	lists, _ := models.GetLocalLists()
	if len(lists) != 0 {
		t.Error("rejected create must not store locally")
	}
	count, _ := models.CountQueuedMutations()
	if count != 0 {
		t.Error("rejected create must not enqueue")
	}
}

// TestUpdateListOfflineQueuesCapture verifies an offline edit applies
// locally and captures the request for replay.
func TestUpdateListOfflineQueuesCapture(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	seed := &models.List{ID: 5, Name: "Before", Color: models.ColorBlue, IsOwner: true, CanEdit: true}
	if err := models.PutLocalList(seed); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	srv.Close()

	l, err := models.UpdateList(context.Background(), 5, models.ListInput{Name: "After", Color: models.ColorRed})
	if err != nil {
		t.Fatalf("offline update must succeed locally: %v", err)
	}
	if l.Name != "After" || l.Color != models.ColorRed {
		t.Errorf("optimistic apply missing: %+v", l)
	}

	entries, _ := models.QueuedMutations()
	if len(entries) != 1 {
		t.Fatalf("expected 1 queued mutation, got %d", len(entries))
	}
	if entries[0].Action != models.ActionUpdateList || entries[0].Endpoint != "/lists/5" {
		t.Errorf("unexpected queue entry: %+v", entries[0])
	}
}

// TestUpdateReadOnlyListRefused verifies shared lists without edit rights
// reject local writes outright.
func TestUpdateReadOnlyListRefused(t *testing.T) {
	_, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	shared := &models.List{ID: 6, Name: "Theirs", Color: models.ColorBlue, IsShared: true, CanEdit: false}
	if err := models.PutLocalList(shared); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	_, err := models.UpdateList(context.Background(), 6, models.ListInput{Name: "Mine Now", Color: models.ColorRed})
	if err == nil {
		t.Fatal("expected edit of read-only list to fail")
	}
	count, _ := models.CountQueuedMutations()
	if count != 0 {
		t.Error("refused edit must not enqueue")
	}
}

// TestDeletePendingListLeavesNoGhost verifies deleting a never-synced list
// removes it and purges its queued mutations — nothing may replay later.
func TestDeletePendingListLeavesNoGhost(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()
	srv.Close()

	l, err := models.CreateList(context.Background(), models.ListInput{Name: "Ephemeral", Color: models.ColorYellow})
	if err != nil {
		t.Fatalf("offline create failed: %v", err)
	}
	if _, err := models.UpdateList(context.Background(), l.ID, models.ListInput{Name: "Renamed", Color: models.ColorYellow}); err != nil {
		t.Fatalf("offline update failed: %v", err)
	}

	count, _ := models.CountQueuedMutations()
	if count != 2 {
		t.Fatalf("expected 2 queued mutations before delete, got %d", count)
	}

	if err := models.DeleteList(context.Background(), l.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	gone, _ := models.GetLocalList(l.ID)
	if gone != nil {
		t.Error("expected local row removed")
	}
	count, _ = models.CountQueuedMutations()
	if count != 0 {
		t.Errorf("expected queue purged for pending entity, got %d entries", count)
	}
}

// TestAddItemOffline verifies an item added offline lands inside its list
// with a pending id, stamped with the current user, and queues CREATE_TODO.
func TestAddItemOffline(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	seed := &models.List{ID: 8, Name: "Shopping", Color: models.ColorGreen, IsOwner: true, CanEdit: true}
	if err := models.PutLocalList(seed); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	models.SetCurrentUser("carol")
	defer models.SetCurrentUser("")

	srv.Close()

	item, err := models.AddItem(context.Background(), 8, models.ItemInput{
		Title: "Flour", Quantity: intPtr(1), Unit: strPtr("kg"),
	})
	if err != nil {
		t.Fatalf("offline add must succeed locally: %v", err)
	}
	if !item.ID.IsPending() {
		t.Errorf("expected pending item id, got %d", item.ID)
	}
	if item.CreatedBy != "carol" || item.ModifiedBy != "carol" {
		t.Errorf("expected user stamps, got %+v", item)
	}

	got, _ := models.GetLocalList(8)
	if got == nil || len(got.Items) != 1 || got.Items[0].Title != "Flour" {
		t.Fatalf("expected item embedded in list, got %+v", got)
	}

	entries, _ := models.QueuedMutations()
	if len(entries) != 1 {
		t.Fatalf("expected 1 queued mutation, got %d", len(entries))
	}
	m := entries[0]
	if m.Action != models.ActionCreateTodo || m.Endpoint != "/lists/8/todos" {
		t.Errorf("unexpected queue entry: %+v", m)
	}
	if m.TargetID != item.ID || m.ListID != 8 {
		t.Errorf("queue entry ids mismatch: %+v", m)
	}
}

// TestAddItemValidatesQuantityPairing verifies the façade rejects quantity
// without unit before touching store or network.
func TestAddItemValidatesQuantityPairing(t *testing.T) {
	_, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	seed := &models.List{ID: 9, Name: "Pantry", Color: models.ColorBlue, IsOwner: true, CanEdit: true}
	if err := models.PutLocalList(seed); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	_, err := models.AddItem(context.Background(), 9, models.ItemInput{Title: "Sugar", Quantity: intPtr(2)})
	if err == nil {
		t.Fatal("expected quantity-without-unit to be rejected")
	}
	count, _ := models.CountQueuedMutations()
	if count != 0 {
		t.Error("invalid input must not enqueue")
	}
}

// TestToggleItemOffline verifies the toggle flips locally and queues.
func TestToggleItemOffline(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	seed := &models.List{
		ID: 12, Name: "Chores", Color: models.ColorYellow, IsOwner: true, CanEdit: true,
		Items: []models.Item{{ID: 120, Title: "Vacuum"}},
	}
	if err := models.PutLocalList(seed); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	srv.Close()

	item, err := models.ToggleItem(context.Background(), 12, 120)
	if err != nil {
		t.Fatalf("offline toggle must succeed locally: %v", err)
	}
	if !item.Done {
		t.Error("expected item toggled to done")
	}

	entries, _ := models.QueuedMutations()
	if len(entries) != 1 {
		t.Fatalf("expected 1 queued mutation, got %d", len(entries))
	}
	if entries[0].Action != models.ActionToggleTodo ||
		entries[0].Endpoint != "/lists/12/todos/120/toggle" {
		t.Errorf("unexpected queue entry: %+v", entries[0])
	}
}

// TestDeletePendingItemPurgesQueue verifies deleting an offline-created item
// removes its queued create rather than enqueueing a delete.
func TestDeletePendingItemPurgesQueue(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()

	seed := &models.List{ID: 14, Name: "Trips", Color: models.ColorRed, IsOwner: true, CanEdit: true}
	if err := models.PutLocalList(seed); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	srv.Close()

	item, err := models.AddItem(context.Background(), 14, models.ItemInput{Title: "Pack bags"})
	if err != nil {
		t.Fatalf("offline add failed: %v", err)
	}

	if err := models.DeleteItem(context.Background(), 14, item.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, _ := models.GetLocalList(14)
	if len(got.Items) != 0 {
		t.Error("expected item removed from list")
	}
	count, _ := models.CountQueuedMutations()
	if count != 0 {
		t.Errorf("expected queue purged, got %d entries", count)
	}
}

// TestCategoryOfflineLifecycle runs create and update through the offline
// path, then verifies deleting the pending category purges its queue.
func TestCategoryOfflineLifecycle(t *testing.T) {
	srv, cleanup := setupFacadeTest(t, jsonHandler(http.StatusOK, nil))
	defer cleanup()
	srv.Close()

	c, err := models.CreateCategory(context.Background(), models.CategoryInput{Name: "Projects"})
	if err != nil {
		t.Fatalf("offline category create failed: %v", err)
	}
	if !c.ID.IsPending() {
		t.Errorf("expected pending category id, got %d", c.ID)
	}

	if _, err := models.UpdateCategory(context.Background(), c.ID, models.CategoryInput{Name: "Side Projects"}); err != nil {
		t.Fatalf("offline category update failed: %v", err)
	}

	got, _ := models.GetLocalCategory(c.ID)
	if got == nil || got.Name != "Side Projects" {
		t.Fatalf("expected optimistic rename, got %+v", got)
	}

	count, _ := models.CountQueuedMutations()
	if count != 2 {
		t.Fatalf("expected 2 queued mutations, got %d", count)
	}

	if err := models.DeleteCategory(context.Background(), c.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	count, _ = models.CountQueuedMutations()
	if count != 0 {
		t.Errorf("expected queue purged for pending category, got %d", count)
	}
}
