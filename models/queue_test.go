package models_test

import (
	"os"
	"testing"
	"time"

	"listpad/models"
)

// setupQueueTestDB initializes a clean test database for queue tests
func setupQueueTestDB(t *testing.T) func() {
	t.Helper()

	os.Remove("./test_queue.ddb")
	os.Remove("./test_queue.ddb.wal")

	if err := models.InitTestDB("./test_queue.ddb"); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	return func() {
		models.CloseDB()
		os.Remove("./test_queue.ddb")
		os.Remove("./test_queue.ddb.wal")
	}
}

// enqueue is a helper that appends an entry and returns it.
func enqueue(t *testing.T, action, endpoint, method, body string, targetID, listID models.EntityID) *models.Mutation {
	t.Helper()
	m := &models.Mutation{
		Action:   action,
		Endpoint: endpoint,
		Method:   method,
		Body:     body,
		Headers:  map[string]string{"Content-Type": "application/json"},
		TargetID: targetID,
		ListID:   listID,
	}
	if err := models.EnqueueMutation(m); err != nil {
		t.Fatalf("failed to enqueue %s: %v", action, err)
	}
	return m
}

// TestQueueFIFOOrder verifies entries come back in the order they were
// appended.
func TestQueueFIFOOrder(t *testing.T) {
	cleanup := setupQueueTestDB(t)
	defer cleanup()

	enqueue(t, models.ActionCreateList, "/lists", "POST", `{"name":"a"}`, -1, 0)
	enqueue(t, models.ActionUpdateList, "/lists/-1", "PUT", `{"name":"b"}`, -1, 0)
	enqueue(t, models.ActionCreateTodo, "/lists/-1/todos", "POST", `{"title":"x"}`, -2, -1)

	entries, err := models.QueuedMutations()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantActions := []string{models.ActionCreateList, models.ActionUpdateList, models.ActionCreateTodo}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, entries[i].Action)
		}
	}

	// Headers survive the roundtrip
	if entries[0].Headers["Content-Type"] != "application/json" {
		t.Error("expected captured headers to round-trip")
	}
}

// TestRequeueMovesToBack verifies a requeued entry lands at the end of the
// FIFO with its retry count bumped.
func TestRequeueMovesToBack(t *testing.T) {
	cleanup := setupQueueTestDB(t)
	defer cleanup()

	first := enqueue(t, models.ActionCreateList, "/lists", "POST", `{"name":"a"}`, -1, 0)
	time.Sleep(5 * time.Millisecond) // distinct timestamps for FIFO ordering
	enqueue(t, models.ActionCreateCategory, "/categories", "POST", `{"name":"c"}`, -2, 0)
	time.Sleep(5 * time.Millisecond)

	if err := models.RequeueMutation(*first); err != nil {
		t.Fatalf("failed to requeue: %v", err)
	}

	entries, err := models.QueuedMutations()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != models.ActionCreateCategory {
		t.Errorf("expected category entry first, got %s", entries[0].Action)
	}
	if entries[1].Action != models.ActionCreateList {
		t.Errorf("expected requeued entry last, got %s", entries[1].Action)
	}
	if entries[1].Retries != 1 {
		t.Errorf("expected retries 1 after requeue, got %d", entries[1].Retries)
	}
}

// TestDeleteMutationsForTarget verifies purging removes every entry for a
// local entity and nothing else.
func TestDeleteMutationsForTarget(t *testing.T) {
	cleanup := setupQueueTestDB(t)
	defer cleanup()

	pending := models.NewPendingID()
	enqueue(t, models.ActionCreateList, "/lists", "POST", `{"name":"doomed"}`, pending, 0)
	enqueue(t, models.ActionUpdateList, "/lists/-1", "PUT", `{"name":"doomed2"}`, pending, 0)
	enqueue(t, models.ActionCreateCategory, "/categories", "POST", `{"name":"keep"}`, -99, 0)

	if err := models.DeleteMutationsForTarget(pending); err != nil {
		t.Fatalf("failed to purge: %v", err)
	}

	entries, err := models.QueuedMutations()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionCreateCategory {
		t.Errorf("wrong entry survived: %s", entries[0].Action)
	}
}

// TestRewriteQueuedEntityID verifies a confirmed server id replaces a
// pending id across endpoints, bodies and the id columns of queued entries.
func TestRewriteQueuedEntityID(t *testing.T) {
	cleanup := setupQueueTestDB(t)
	defer cleanup()

	pending := models.EntityID(-17560001)
	enqueue(t, models.ActionCreateTodo, "/lists/-17560001/todos", "POST",
		`{"title":"milk"}`, -17560002, pending)
	enqueue(t, models.ActionUpdateList, "/lists/-17560001", "PUT",
		`{"name":"renamed"}`, pending, 0)

	if err := models.RewriteQueuedEntityID(pending, 500); err != nil {
		t.Fatalf("failed to rewrite: %v", err)
	}

	entries, err := models.QueuedMutations()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].Endpoint != "/lists/500/todos" {
		t.Errorf("expected rewritten todo endpoint, got %s", entries[0].Endpoint)
	}
	if entries[0].ListID != 500 {
		t.Errorf("expected rewritten list_id 500, got %d", entries[0].ListID)
	}
	if entries[0].TargetID != -17560002 {
		t.Errorf("unrelated target id must not change, got %d", entries[0].TargetID)
	}

	if entries[1].Endpoint != "/lists/500" {
		t.Errorf("expected rewritten list endpoint, got %s", entries[1].Endpoint)
	}
	if entries[1].TargetID != 500 {
		t.Errorf("expected rewritten target id 500, got %d", entries[1].TargetID)
	}
}

// TestGetMutationReflectsRewrites verifies a single-entry read sees updates
// applied after the entry was enqueued.
func TestGetMutationReflectsRewrites(t *testing.T) {
	cleanup := setupQueueTestDB(t)
	defer cleanup()

	m := enqueue(t, models.ActionToggleTodo, "/lists/-3/todos/-4/toggle", "PATCH", "", -4, -3)

	if err := models.RewriteQueuedEntityID(-3, 31); err != nil {
		t.Fatalf("failed to rewrite: %v", err)
	}

	fresh, err := models.GetMutation(m.ID)
	if err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if fresh == nil {
		t.Fatal("expected entry to exist")
	}
	if fresh.Endpoint != "/lists/31/todos/-4/toggle" {
		t.Errorf("expected rewritten endpoint, got %s", fresh.Endpoint)
	}

	if err := models.DeleteMutation(m.ID); err != nil {
		t.Fatalf("failed to delete entry: %v", err)
	}
	gone, err := models.GetMutation(m.ID)
	if err != nil {
		t.Fatalf("unexpected error reading deleted entry: %v", err)
	}
	if gone != nil {
		t.Error("expected nil for deleted entry")
	}
}
