package models

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rohanthewiz/logger"
)

// ============================================================================
// Connectivity Monitor
//
// The client core has no OS-level hook of its own: the shell forwards the
// browser/OS online-offline events to us over the local API, and the façade
// reports transport outcomes as a secondary signal. Either source flipping
// the state from offline to online triggers exactly one drain attempt
// (subject to the engine's concurrency guard — a second trigger while a
// drain runs is a no-op).
// ============================================================================

// monitorInstance is the package-level singleton, wired in main.
var monitorInstance *Monitor

// Monitor tracks reachability of the remote backend and owns drain triggers.
type Monitor struct {
	engine    *SyncEngine
	online    atomic.Bool
	enabled   atomic.Bool // Runtime toggle for sync
	pending   atomic.Int64
	lastDrain atomic.Int64 // Unix nanos of the last drain, 0 if never
}

// ConnectivityStatus exposes monitor state to the UI.
type ConnectivityStatus struct {
	Online      bool       `json:"online"`
	SyncEnabled bool       `json:"sync_enabled"`
	Pending     int        `json:"pending"`
	InProgress  bool       `json:"in_progress"`
	LastDrain   *time.Time `json:"last_drain,omitempty"`
}

// NewMonitor creates the monitor and installs it as the package singleton.
// The client starts optimistically online; the first transport failure or an
// explicit offline signal corrects that.
func NewMonitor(engine *SyncEngine, syncEnabled bool) *Monitor {
	m := &Monitor{engine: engine}
	m.online.Store(true)
	m.enabled.Store(syncEnabled)
	m.pending.Store(int64(PendingUnknown))
	monitorInstance = m
	return m
}

// GetMonitor returns the package-level monitor instance.
// Returns nil if not configured — callers must nil-check.
func GetMonitor() *Monitor {
	return monitorInstance
}

// Online returns the current reachability status.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetEnabled toggles queue draining at runtime.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	logger.Info("Sync toggled", "enabled", enabled)
}

// IsEnabled returns whether draining is active.
func (m *Monitor) IsEnabled() bool {
	return m.enabled.Load()
}

// SetOnline records a reachability transition. An offline-to-online
// transition spawns one background drain.
func (m *Monitor) SetOnline(online bool) {
	wasOnline := m.online.Swap(online)
	if wasOnline == online {
		return
	}

	logger.Info("Connectivity changed", "online", online)

	if online && m.enabled.Load() {
		go m.drain()
	}
}

// ReportOffline is the façade/engine's signal that a request failed at the
// transport level.
func (m *Monitor) ReportOffline() {
	m.SetOnline(false)
}

// ReportOnline is the façade's signal that a request received an HTTP
// response (even an error response proves reachability).
func (m *Monitor) ReportOnline() {
	m.SetOnline(true)
}

// SyncNow runs a drain synchronously for user-initiated retry.
// Returns the pending count, or PendingUnknown when the drain could not run.
func (m *Monitor) SyncNow(ctx context.Context) int {
	if !m.enabled.Load() {
		return PendingUnknown
	}
	return m.runDrain(ctx)
}

// PendingCount returns the last known number of queued mutations,
// or PendingUnknown before the first drain.
func (m *Monitor) PendingCount() int {
	return int(m.pending.Load())
}

// Status returns the current monitor state for UI display.
func (m *Monitor) Status() ConnectivityStatus {
	status := ConnectivityStatus{
		Online:      m.online.Load(),
		SyncEnabled: m.enabled.Load(),
		Pending:     int(m.pending.Load()),
	}
	if m.engine != nil {
		status.InProgress = m.engine.InProgress()
	}
	if nanos := m.lastDrain.Load(); nanos > 0 {
		t := time.Unix(0, nanos)
		status.LastDrain = &t
	}
	return status
}

// setPendingCount is called by the engine after each drain pass.
func (m *Monitor) setPendingCount(pending int) {
	m.pending.Store(int64(pending))
}

// drain is the background drain spawned on a reconnect transition.
func (m *Monitor) drain() {
	m.runDrain(context.Background())
}

func (m *Monitor) runDrain(ctx context.Context) int {
	if m.engine == nil {
		return PendingUnknown
	}

	pending := m.engine.ProcessQueue(ctx)
	if pending != PendingUnknown {
		m.lastDrain.Store(time.Now().UnixNano())
	}
	return pending
}
