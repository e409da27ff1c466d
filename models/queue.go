package models

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Mutation Queue
//
// The queue is the durable record of write intent produced while offline (or
// after an online attempt failed at the transport level). Each entry captures
// the exact HTTP request that would have been sent — endpoint, method, body
// and headers including the auth token at enqueue time. The façade only ever
// appends; the sync engine is the sole mutator of existing entries.
// ============================================================================

// Mutation action tags. Semantic names so logs read as user actions,
// not HTTP verbs.
const (
	ActionCreateList     = "CREATE_LIST"
	ActionUpdateList     = "UPDATE_LIST"
	ActionDeleteList     = "DELETE_LIST"
	ActionShareList      = "SHARE_LIST"
	ActionCreateTodo     = "CREATE_TODO"
	ActionToggleTodo     = "TOGGLE_TODO"
	ActionUpdateTodo     = "UPDATE_TODO"
	ActionDeleteTodo     = "DELETE_TODO"
	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"
)

// Mutation is one pending write destined for the remote API.
type Mutation struct {
	ID       int64             `json:"id"`
	Action   string            `json:"action"`
	Endpoint string            `json:"endpoint"`
	Method   string            `json:"method"`
	Body     string            `json:"body,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	TargetID EntityID          `json:"target_id"`          // local id of the entity this mutation concerns
	ListID   EntityID          `json:"list_id,omitempty"`  // owning list for item-scoped mutations, 0 otherwise
	QueuedAt time.Time         `json:"queued_at"`          // FIFO key
	Retries  int               `json:"retries"`
}

// EnqueueMutation appends a new entry with retries = 0 and the current time
// as its FIFO key.
func EnqueueMutation(m *Mutation) error {
	headersJSON, err := json.Marshal(m.Headers)
	if err != nil {
		return serr.Wrap(err, "failed to marshal mutation headers")
	}

	m.QueuedAt = time.Now()
	m.Retries = 0

	// RETURNING is only run against the disk DB (the durable copy assigns the
	// id); the memory copy is inserted with the same explicit id.
	err = func() error {
		dbMu.Lock()
		defer dbMu.Unlock()

		row := diskDB.QueryRow(`
			INSERT INTO sync_queue (action, endpoint, method, body, headers, target_id, list_id, queued_at, retries)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
			RETURNING id`,
			m.Action, m.Endpoint, m.Method, m.Body, string(headersJSON),
			int64(m.TargetID), int64(m.ListID), m.QueuedAt)
		if err := row.Scan(&m.ID); err != nil {
			return serr.Wrap(err, "failed to insert queue entry")
		}

		_, err := memDB.Exec(`
			INSERT INTO sync_queue (id, action, endpoint, method, body, headers, target_id, list_id, queued_at, retries)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			m.ID, m.Action, m.Endpoint, m.Method, m.Body, string(headersJSON),
			int64(m.TargetID), int64(m.ListID), m.QueuedAt)
		if err != nil {
			logger.LogErr(err, "failed to mirror queue entry to memory cache")
			markCacheDirty()
		}
		return nil
	}()
	if err != nil {
		return err
	}

	logger.Info("Queued mutation", "action", m.Action, "endpoint", m.Endpoint, "id", m.ID)
	return nil
}

// QueuedMutations returns the full queue in FIFO order.
// Reads from disk, not the cache — the queue is the record of intent and
// must never be served stale.
func QueuedMutations() ([]Mutation, error) {
	dbMu.RLock()
	rows, err := diskDB.Query(`
		SELECT id, action, endpoint, method, body, headers, target_id, list_id, queued_at, retries
		FROM sync_queue
		ORDER BY queued_at ASC, id ASC`)
	dbMu.RUnlock()
	if err != nil {
		return nil, serr.Wrap(err, "failed to read sync queue")
	}
	defer rows.Close()

	var entries []Mutation
	for rows.Next() {
		var (
			m           Mutation
			body        sql.NullString
			headersJSON sql.NullString
			targetID    int64
			listID      sql.NullInt64
		)
		err := rows.Scan(&m.ID, &m.Action, &m.Endpoint, &m.Method, &body,
			&headersJSON, &targetID, &listID, &m.QueuedAt, &m.Retries)
		if err != nil {
			logger.LogErr(err, "failed to scan queue entry")
			continue
		}
		if body.Valid {
			m.Body = body.String
		}
		if headersJSON.Valid && headersJSON.String != "" {
			if err := json.Unmarshal([]byte(headersJSON.String), &m.Headers); err != nil {
				logger.LogErr(err, "failed to decode queue entry headers", "id", m.ID)
			}
		}
		m.TargetID = EntityID(targetID)
		if listID.Valid {
			m.ListID = EntityID(listID.Int64)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating sync queue")
	}
	return entries, nil
}

// GetMutation returns a single entry by id, or nil if it no longer exists.
// The engine re-reads each entry just before replay: a reconciliation earlier
// in the same pass may have rewritten its endpoint or body.
func GetMutation(id int64) (*Mutation, error) {
	dbMu.RLock()
	row := diskDB.QueryRow(`
		SELECT id, action, endpoint, method, body, headers, target_id, list_id, queued_at, retries
		FROM sync_queue
		WHERE id = ?`, id)
	dbMu.RUnlock()

	var (
		m           Mutation
		body        sql.NullString
		headersJSON sql.NullString
		targetID    int64
		listID      sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.Action, &m.Endpoint, &m.Method, &body,
		&headersJSON, &targetID, &listID, &m.QueuedAt, &m.Retries)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to read queue entry")
	}
	if body.Valid {
		m.Body = body.String
	}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &m.Headers); err != nil {
			logger.LogErr(err, "failed to decode queue entry headers", "id", m.ID)
		}
	}
	m.TargetID = EntityID(targetID)
	if listID.Valid {
		m.ListID = EntityID(listID.Int64)
	}
	return &m, nil
}

// DeleteMutation removes an entry (success, permanent failure, or retry
// exhaustion).
func DeleteMutation(id int64) error {
	return WriteThrough("DELETE FROM sync_queue WHERE id = ?", id)
}

// RequeueMutation removes the entry and re-appends it with retries+1 and a
// fresh timestamp, moving it to the back of the FIFO.
func RequeueMutation(m Mutation) error {
	if err := DeleteMutation(m.ID); err != nil {
		return err
	}

	headersJSON, err := json.Marshal(m.Headers)
	if err != nil {
		return serr.Wrap(err, "failed to marshal mutation headers")
	}

	return WriteThrough(`
		INSERT INTO sync_queue (action, endpoint, method, body, headers, target_id, list_id, queued_at, retries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Action, m.Endpoint, m.Method, m.Body, string(headersJSON),
		int64(m.TargetID), int64(m.ListID), time.Now(), m.Retries+1)
}

// CountQueuedMutations returns the number of pending entries.
func CountQueuedMutations() (int, error) {
	dbMu.RLock()
	defer dbMu.RUnlock()

	var count int
	if err := diskDB.QueryRow("SELECT COUNT(*) FROM sync_queue").Scan(&count); err != nil {
		return 0, serr.Wrap(err, "failed to count sync queue")
	}
	return count, nil
}

// DeleteMutationsForTarget purges every queued entry for a local entity.
// Used when an offline-created entity (pending id, never seen by the server)
// is deleted locally — replaying its create or edits would resurrect it.
func DeleteMutationsForTarget(targetID EntityID) error {
	return WriteThrough("DELETE FROM sync_queue WHERE target_id = ?", int64(targetID))
}

// RewriteQueuedEntityID substitutes a freshly confirmed server id for a
// pending id across all remaining queue entries — endpoints, bodies and the
// target/list columns. Queued edits produced while the create was still
// pending would otherwise replay against an id the server never issued.
func RewriteQueuedEntityID(pendingID, serverID EntityID) error {
	entries, err := QueuedMutations()
	if err != nil {
		return err
	}

	oldStr := strconv.FormatInt(int64(pendingID), 10)
	newStr := strconv.FormatInt(int64(serverID), 10)

	for _, m := range entries {
		changed := false

		if strings.Contains(m.Endpoint, oldStr) {
			m.Endpoint = strings.ReplaceAll(m.Endpoint, oldStr, newStr)
			changed = true
		}
		if strings.Contains(m.Body, oldStr) {
			m.Body = strings.ReplaceAll(m.Body, oldStr, newStr)
			changed = true
		}
		if m.TargetID == pendingID {
			m.TargetID = serverID
			changed = true
		}
		if m.ListID == pendingID {
			m.ListID = serverID
			changed = true
		}

		if !changed {
			continue
		}

		err := WriteThrough(`
			UPDATE sync_queue SET endpoint = ?, body = ?, target_id = ?, list_id = ?
			WHERE id = ?`,
			m.Endpoint, m.Body, int64(m.TargetID), int64(m.ListID), m.ID)
		if err != nil {
			return serr.Wrap(err, "failed to rewrite queue entry")
		}
	}

	return nil
}
