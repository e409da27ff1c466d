package models

import (
	"database/sql"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	"github.com/vmihailenco/msgpack/v5"
)

// ListColor is one of the five colors a list can be tagged with.
type ListColor string

const (
	ColorBlue   ListColor = "blue"
	ColorGreen  ListColor = "green"
	ColorRed    ListColor = "red"
	ColorYellow ListColor = "yellow"
	ColorPurple ListColor = "purple"
)

// Valid reports whether the color is one of the supported values.
func (c ListColor) Valid() bool {
	switch c {
	case ColorBlue, ColorGreen, ColorRed, ColorYellow, ColorPurple:
		return true
	}
	return false
}

// Item is a single to-do entry. Items are owned exclusively by their parent
// list and stored embedded in the list row, never as a top-level collection.
// Quantity and Unit are both present or both absent, never one alone.
type Item struct {
	ID         EntityID `msgpack:"id" json:"id"`
	Title      string   `msgpack:"title" json:"title"`
	Done       bool     `msgpack:"done" json:"done"`
	Quantity   *int     `msgpack:"quantity,omitempty" json:"quantity,omitempty"`
	Unit       *string  `msgpack:"unit,omitempty" json:"unit,omitempty"`
	CreatedBy  string   `msgpack:"created_by" json:"created_by,omitempty"`
	ModifiedBy string   `msgpack:"modified_by" json:"modified_by,omitempty"`
}

// List is a to-do list with its embedded items.
type List struct {
	ID         EntityID  `json:"id"`
	Name       string    `json:"name"`
	Color      ListColor `json:"color"`
	CategoryID *EntityID `json:"category_id,omitempty"`
	SortOrder  string    `json:"sort_order,omitempty"`
	IsOwner    bool      `json:"is_owner"`
	IsShared   bool      `json:"is_shared"`
	IsArchived bool      `json:"is_archived"`
	CanEdit    bool      `json:"can_edit"`
	SharedBy   *string   `json:"shared_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Items      []Item    `json:"todos"`
}

// Item lookup within a list. Returns the index or -1.
func (l *List) indexOfItem(itemID EntityID) int {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindItem returns the item with the given id, or nil.
func (l *List) FindItem(itemID EntityID) *Item {
	if i := l.indexOfItem(itemID); i >= 0 {
		return &l.Items[i]
	}
	return nil
}

// ValidateQuantity enforces the quantity/unit pairing invariant.
func (it Item) ValidateQuantity() error {
	if (it.Quantity == nil) != (it.Unit == nil) {
		return serr.New("quantity and unit must be set together or not at all")
	}
	if it.Quantity != nil && *it.Quantity <= 0 {
		return serr.New("quantity must be positive")
	}
	return nil
}

// encodeItems serializes the embedded items to the msgpack blob stored
// in the list row.
func encodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := msgpack.Marshal(items)
	if err != nil {
		return nil, serr.Wrap(err, "failed to encode items")
	}
	return data, nil
}

// decodeItems deserializes the msgpack items blob from a list row.
func decodeItems(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return []Item{}, nil
	}
	var items []Item
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return nil, serr.Wrap(err, "failed to decode items")
	}
	return items, nil
}

// ============================================================================
// Local store accessors
//
// SaveListsToLocal is the only full-collection replace and is reserved for
// "trust the server" refreshes. PutLocalList is the single sanctioned path
// for optimistic local mutation — callers read, modify, and write back the
// whole list so that item changes stay atomic at the list level.
// ============================================================================

const listColumns = `id, name, color, category_id, sort_order, is_owner, is_shared,
	       is_archived, can_edit, shared_by, created_at, items`

// SaveListsToLocal replaces the entire lists collection with the given
// server snapshot in one transaction.
func SaveListsToLocal(lists []List) error {
	tx, err := BeginDualTx()
	if err != nil {
		return serr.Wrap(err, "failed to begin lists replace")
	}
	defer tx.Rollback()

	if err := tx.Exec("DELETE FROM lists"); err != nil {
		return serr.Wrap(err, "failed to clear lists")
	}

	for i := range lists {
		blob, err := encodeItems(lists[i].Items)
		if err != nil {
			return err
		}
		err = tx.Exec(`
			INSERT INTO lists (id, name, color, category_id, sort_order, is_owner,
			                   is_shared, is_archived, can_edit, shared_by, created_at, items)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(lists[i].ID), lists[i].Name, string(lists[i].Color),
			categoryIDArg(lists[i].CategoryID), lists[i].SortOrder,
			lists[i].IsOwner, lists[i].IsShared, lists[i].IsArchived, lists[i].CanEdit,
			lists[i].SharedBy, lists[i].CreatedAt, blob)
		if err != nil {
			return serr.Wrap(err, "failed to insert list")
		}
	}

	return tx.Commit()
}

// GetLocalLists returns every cached list, newest first.
func GetLocalLists() ([]List, error) {
	rows, err := ReadFromCache(`
		SELECT ` + listColumns + `
		FROM lists
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, serr.Wrap(err, "failed to read lists")
	}
	defer rows.Close()

	return scanLists(rows)
}

// GetLocalList returns a single cached list by id, or nil if absent.
func GetLocalList(id EntityID) (*List, error) {
	row := QueryRowFromCache(`
		SELECT `+listColumns+`
		FROM lists
		WHERE id = ?`, int64(id))

	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to read list")
	}
	return l, nil
}

// PutLocalList upserts a single list, items included. This is the optimistic
// local mutation path — an item change always rewrites its owning list.
func PutLocalList(l *List) error {
	blob, err := encodeItems(l.Items)
	if err != nil {
		return err
	}

	return WriteThrough(`
		INSERT OR REPLACE INTO lists (id, name, color, category_id, sort_order, is_owner,
		                              is_shared, is_archived, can_edit, shared_by, created_at, items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(l.ID), l.Name, string(l.Color), categoryIDArg(l.CategoryID), l.SortOrder,
		l.IsOwner, l.IsShared, l.IsArchived, l.CanEdit, l.SharedBy, l.CreatedAt, blob)
}

// DeleteLocalList removes a cached list by id.
func DeleteLocalList(id EntityID) error {
	return WriteThrough("DELETE FROM lists WHERE id = ?", int64(id))
}

// ReconcileListID rewrites a pending list id to the server-confirmed id.
// The row is re-keyed, not duplicated; queued mutations referencing the
// pending id are rewritten too so later replays target the real resource.
func ReconcileListID(pendingID, serverID EntityID) error {
	l, err := GetLocalList(pendingID)
	if err != nil {
		return err
	}
	if l == nil {
		// Nothing cached under the pending id — already reconciled or evicted
		return nil
	}

	if err := DeleteLocalList(pendingID); err != nil {
		return serr.Wrap(err, "failed to drop pending list row")
	}
	l.ID = serverID
	if err := PutLocalList(l); err != nil {
		return serr.Wrap(err, "failed to re-key list")
	}

	if err := RewriteQueuedEntityID(pendingID, serverID); err != nil {
		return serr.Wrap(err, "failed to rewrite queued mutations for list")
	}

	logger.Info("Reconciled list id", "pending_id", int64(pendingID), "server_id", int64(serverID))
	return nil
}

// ReconcileItemID rewrites a pending item id inside its owning list.
func ReconcileItemID(listID, pendingID, serverID EntityID) error {
	l, err := GetLocalList(listID)
	if err != nil {
		return err
	}
	if l == nil {
		return nil
	}

	idx := l.indexOfItem(pendingID)
	if idx < 0 {
		return nil
	}
	l.Items[idx].ID = serverID
	if err := PutLocalList(l); err != nil {
		return serr.Wrap(err, "failed to re-key item")
	}

	if err := RewriteQueuedEntityID(pendingID, serverID); err != nil {
		return serr.Wrap(err, "failed to rewrite queued mutations for item")
	}

	logger.Info("Reconciled item id",
		"list_id", int64(listID), "pending_id", int64(pendingID), "server_id", int64(serverID))
	return nil
}

// categoryIDArg converts an optional category reference for SQL binding.
func categoryIDArg(id *EntityID) interface{} {
	if id == nil {
		return nil
	}
	return int64(*id)
}

// scanLists reads list rows including the embedded items blob.
func scanLists(rows *sql.Rows) ([]List, error) {
	var lists []List
	for rows.Next() {
		l, err := scanListValues(rows.Scan)
		if err != nil {
			logger.LogErr(err, "failed to scan list row")
			continue
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating lists")
	}
	return lists, nil
}

func scanList(row *sql.Row) (*List, error) {
	return scanListValues(row.Scan)
}

// scanListValues scans one list row via the given Scan function so that
// *sql.Row and *sql.Rows share the decode path.
func scanListValues(scan func(...interface{}) error) (*List, error) {
	var (
		l          List
		id         int64
		color      string
		categoryID sql.NullInt64
		sortOrder  sql.NullString
		sharedBy   sql.NullString
		blob       []byte
	)

	err := scan(&id, &l.Name, &color, &categoryID, &sortOrder, &l.IsOwner,
		&l.IsShared, &l.IsArchived, &l.CanEdit, &sharedBy, &l.CreatedAt, &blob)
	if err != nil {
		return nil, err
	}

	l.ID = EntityID(id)
	l.Color = ListColor(color)
	if categoryID.Valid {
		cid := EntityID(categoryID.Int64)
		l.CategoryID = &cid
	}
	if sortOrder.Valid {
		l.SortOrder = sortOrder.String
	}
	if sharedBy.Valid {
		l.SharedBy = &sharedBy.String
	}

	items, err := decodeItems(blob)
	if err != nil {
		return nil, err
	}
	l.Items = items

	return &l, nil
}
