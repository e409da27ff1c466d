package models

import (
	"sync/atomic"
	"time"
)

// EntityID is the primary key type shared by lists, items and categories.
// A positive value is a server-confirmed id. A negative value is a locally
// assigned placeholder for an entity the server has not acknowledged yet;
// it must be reconciled to the server id once the create replays.
type EntityID int64

// IsPending reports whether the id is a locally assigned placeholder.
func (id EntityID) IsPending() bool {
	return id < 0
}

// pendingSeq disambiguates pending ids minted within the same millisecond.
var pendingSeq atomic.Int64

// NewPendingID mints a locally assigned id derived from the current time,
// unique within a session. Negative by construction so it can never collide
// with a server-issued id.
func NewPendingID() EntityID {
	return EntityID(-(time.Now().UnixMilli()*1000 + pendingSeq.Add(1)%1000))
}
