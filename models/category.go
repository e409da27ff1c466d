package models

import (
	"database/sql"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Category groups lists. Lists hold a weak reference to a category by id;
// deleting a category never cascades into its lists.
type Category struct {
	ID       EntityID `json:"id"`
	Name     string   `json:"name"`
	IsOwner  bool     `json:"is_owner"`
	IsShared bool     `json:"is_shared"`
}

// SaveCategoriesToLocal replaces the categories collection with the given
// server snapshot in one transaction.
func SaveCategoriesToLocal(categories []Category) error {
	tx, err := BeginDualTx()
	if err != nil {
		return serr.Wrap(err, "failed to begin categories replace")
	}
	defer tx.Rollback()

	if err := tx.Exec("DELETE FROM categories"); err != nil {
		return serr.Wrap(err, "failed to clear categories")
	}

	for _, c := range categories {
		err = tx.Exec(`
			INSERT INTO categories (id, name, is_owner, is_shared)
			VALUES (?, ?, ?, ?)`,
			int64(c.ID), c.Name, c.IsOwner, c.IsShared)
		if err != nil {
			return serr.Wrap(err, "failed to insert category")
		}
	}

	return tx.Commit()
}

// GetLocalCategories returns every cached category ordered by name.
func GetLocalCategories() ([]Category, error) {
	rows, err := ReadFromCache(`
		SELECT id, name, is_owner, is_shared
		FROM categories
		ORDER BY name ASC`)
	if err != nil {
		return nil, serr.Wrap(err, "failed to read categories")
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var (
			c  Category
			id int64
		)
		if err := rows.Scan(&id, &c.Name, &c.IsOwner, &c.IsShared); err != nil {
			logger.LogErr(err, "failed to scan category row")
			continue
		}
		c.ID = EntityID(id)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "error iterating categories")
	}
	return categories, nil
}

// GetLocalCategory returns a single cached category by id, or nil if absent.
func GetLocalCategory(id EntityID) (*Category, error) {
	var (
		c     Category
		rowID int64
	)
	err := QueryRowFromCache(`
		SELECT id, name, is_owner, is_shared
		FROM categories
		WHERE id = ?`, int64(id)).
		Scan(&rowID, &c.Name, &c.IsOwner, &c.IsShared)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to read category")
	}
	c.ID = EntityID(rowID)
	return &c, nil
}

// PutLocalCategory upserts a single category.
func PutLocalCategory(c *Category) error {
	return WriteThrough(`
		INSERT OR REPLACE INTO categories (id, name, is_owner, is_shared)
		VALUES (?, ?, ?, ?)`,
		int64(c.ID), c.Name, c.IsOwner, c.IsShared)
}

// DeleteLocalCategory removes a cached category and clears the weak
// references lists hold to it.
func DeleteLocalCategory(id EntityID) error {
	if err := WriteThrough("DELETE FROM categories WHERE id = ?", int64(id)); err != nil {
		return err
	}
	return WriteThrough("UPDATE lists SET category_id = NULL WHERE category_id = ?", int64(id))
}

// ReconcileCategoryID rewrites a pending category id to the server id,
// including the weak references from lists and any queued mutations.
func ReconcileCategoryID(pendingID, serverID EntityID) error {
	c, err := GetLocalCategory(pendingID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	if err := WriteThrough("DELETE FROM categories WHERE id = ?", int64(pendingID)); err != nil {
		return serr.Wrap(err, "failed to drop pending category row")
	}
	c.ID = serverID
	if err := PutLocalCategory(c); err != nil {
		return serr.Wrap(err, "failed to re-key category")
	}

	if err := WriteThrough("UPDATE lists SET category_id = ? WHERE category_id = ?",
		int64(serverID), int64(pendingID)); err != nil {
		return serr.Wrap(err, "failed to rewrite list category references")
	}

	if err := RewriteQueuedEntityID(pendingID, serverID); err != nil {
		return serr.Wrap(err, "failed to rewrite queued mutations for category")
	}

	logger.Info("Reconciled category id", "pending_id", int64(pendingID), "server_id", int64(serverID))
	return nil
}
