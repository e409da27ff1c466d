package models

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Engine
//
// Drains the mutation queue against the remote API. One drain pass replays
// entries strictly in FIFO order: entries for the same entity must reach the
// server in the order they were produced locally (create-then-edit), so a
// transport failure stops the whole pass rather than skipping ahead.
//
// Per-entry state machine:
//   PENDING -> SUCCESS (2xx or 404): removed
//           -> RETRYABLE (5xx): re-appended with retries+1, up to MaxRetries
//           -> PERMANENT (other 4xx): removed, will never succeed by retrying
//
// Failures here are terminal — the original action was already reported to
// the user as successful at enqueue time, so there is nothing to resurface.
// ============================================================================

// MaxRetries bounds how many times a 5xx entry is attempted before it is
// dropped. Accepted-loss policy: better than unbounded queue growth.
const MaxRetries = 5

// PendingUnknown is the sentinel returned when a drain could not run
// (offline, or another drain already in progress).
const PendingUnknown = -1

// syncEngineInstance is the package-level singleton, wired in main.
var syncEngineInstance *SyncEngine

// SyncEngine replays queued mutations. The queue is owned exclusively by the
// engine during a drain; the façade only ever appends.
type SyncEngine struct {
	api        *APIClient
	inProgress atomic.Bool // Concurrency guard, not a queue lock
}

// NewSyncEngine creates the engine and installs it as the package singleton.
func NewSyncEngine(api *APIClient) *SyncEngine {
	se := &SyncEngine{api: api}
	syncEngineInstance = se
	return se
}

// GetSyncEngine returns the package-level engine instance.
// Returns nil if not configured — callers must nil-check.
func GetSyncEngine() *SyncEngine {
	return syncEngineInstance
}

// InProgress reports whether a drain is currently running.
func (se *SyncEngine) InProgress() bool {
	return se.inProgress.Load()
}

// ProcessQueue runs one full drain pass and returns the number of entries
// still pending afterwards, or PendingUnknown when the pass could not run.
// A trigger while a drain is active is a no-op, not queued.
func (se *SyncEngine) ProcessQueue(ctx context.Context) int {
	if !se.inProgress.CompareAndSwap(false, true) {
		return PendingUnknown
	}
	defer se.inProgress.Store(false)

	if m := GetMonitor(); m != nil && !m.Online() {
		return PendingUnknown
	}

	entries, err := QueuedMutations()
	if err != nil {
		logger.LogErr(err, "failed to read mutation queue")
		return PendingUnknown
	}

	if len(entries) == 0 {
		se.reportPending(0)
		return 0
	}

	logger.Info("Draining mutation queue", "entries", len(entries))

	aborted := false
	for _, snap := range entries {
		// Re-read the entry: a reconciliation earlier in this pass may have
		// rewritten its endpoint, body, or foreign ids.
		fresh, err := GetMutation(snap.ID)
		if err != nil {
			logger.LogErr(err, "failed to re-read queue entry", "entry_id", snap.ID)
			continue
		}
		if fresh == nil {
			continue
		}
		m := *fresh

		headers := RefreshAuthHeader(m.Headers)

		status, body, err := se.api.Replay(ctx, m, headers)
		if err != nil {
			// Transport failure — stop the pass entirely to preserve order.
			// The failed entry and everything behind it stay pending.
			logger.Info("Drain halted on transport failure",
				"action", m.Action, "entry_id", m.ID)
			if mon := GetMonitor(); mon != nil {
				mon.ReportOffline()
			}
			aborted = true
			break
		}

		switch {
		case status >= 200 && status < 300:
			se.reconcile(m, body)
			if err := DeleteMutation(m.ID); err != nil {
				logger.LogErr(err, "failed to remove replayed entry", "entry_id", m.ID)
			}

		case status == 404:
			// Target already absent or applied — a prior partial failure may
			// have deleted the resource server-side. Counts as success.
			logger.Info("Replay target gone, treating as applied",
				"action", m.Action, "entry_id", m.ID)
			if err := DeleteMutation(m.ID); err != nil {
				logger.LogErr(err, "failed to remove replayed entry", "entry_id", m.ID)
			}

		case status >= 500:
			if m.Retries+1 >= MaxRetries {
				logger.LogErr(serr.New("retry limit reached, dropping mutation"),
					"mutation abandoned", "action", m.Action, "entry_id", m.ID,
					"retries", m.Retries+1)
				if err := DeleteMutation(m.ID); err != nil {
					logger.LogErr(err, "failed to drop exhausted entry", "entry_id", m.ID)
				}
			} else {
				if err := RequeueMutation(m); err != nil {
					logger.LogErr(err, "failed to requeue entry", "entry_id", m.ID)
				}
			}

		default:
			// Other 4xx: the request is structurally wrong and will never
			// succeed by retrying.
			logger.LogErr(serr.New("mutation rejected by server"),
				"mutation dropped", "action", m.Action, "entry_id", m.ID, "status", status)
			if err := DeleteMutation(m.ID); err != nil {
				logger.LogErr(err, "failed to drop rejected entry", "entry_id", m.ID)
			}
		}
	}

	pending, err := CountQueuedMutations()
	if err != nil {
		logger.LogErr(err, "failed to count remaining queue")
		return PendingUnknown
	}

	se.reportPending(pending)

	if !aborted {
		if err := UpdateLastSyncAt(se.api.baseURL); err != nil {
			logger.LogErr(err, "failed to record drain completion")
		}
	}

	logger.Info("Drain pass complete", "pending", pending, "aborted", aborted)
	return pending
}

// reconcile rewrites pending ids to server ids after a successful create
// replay. Non-create actions and confirmed ids need no reconciliation.
func (se *SyncEngine) reconcile(m Mutation, body []byte) {
	if !m.TargetID.IsPending() {
		return
	}

	serverID, ok := serverAssignedID(body)
	if !ok {
		logger.Info("Create replay response carried no id, skipping reconciliation",
			"action", m.Action, "entry_id", m.ID)
		return
	}

	var err error
	switch m.Action {
	case ActionCreateList:
		err = ReconcileListID(m.TargetID, serverID)
	case ActionCreateCategory:
		err = ReconcileCategoryID(m.TargetID, serverID)
	case ActionCreateTodo:
		err = ReconcileItemID(m.ListID, m.TargetID, serverID)
	default:
		return
	}
	if err != nil {
		logger.LogErr(err, "id reconciliation failed",
			"action", m.Action, "entry_id", m.ID)
	}
}

// serverAssignedID extracts the id the server issued for a created entity.
func serverAssignedID(body []byte) (EntityID, bool) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == 0 {
		return 0, false
	}
	return EntityID(resp.ID), true
}

// reportPending pushes the post-drain pending count to the monitor for the UI.
func (se *SyncEngine) reportPending(pending int) {
	if mon := GetMonitor(); mon != nil {
		mon.setPendingCount(pending)
	}
}
