package models

import (
	"database/sql"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// migrateDB runs all migrations on a single database
func migrateDB(db *sql.DB) error {
	// Sequence for auto-incrementing mutation queue ids in DuckDB
	sequences := []string{
		"CREATE SEQUENCE IF NOT EXISTS sync_queue_id_seq START 1",
	}

	for _, seqSQL := range sequences {
		if _, err := db.Exec(seqSQL); err != nil {
			logger.LogErr(err, "failed to create sequence", "sql", seqSQL)
			// Continue even if sequence exists
		}
	}

	// Lists collection. Items are embedded in the list row as a msgpack blob
	// so that every item mutation is an atomic list-level write.
	listsTableSQL := `
	CREATE TABLE IF NOT EXISTS lists (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		color VARCHAR(16) NOT NULL,
		category_id BIGINT,
		sort_order VARCHAR(32),
		is_owner BOOLEAN DEFAULT true,
		is_shared BOOLEAN DEFAULT false,
		is_archived BOOLEAN DEFAULT false,
		can_edit BOOLEAN DEFAULT true,
		shared_by VARCHAR(128),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		items BLOB
	)`

	if _, err := db.Exec(listsTableSQL); err != nil {
		return serr.Wrap(err, "failed to create lists table")
	}

	// Categories collection. Lists reference categories by id only.
	categoriesTableSQL := `
	CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		is_owner BOOLEAN DEFAULT true,
		is_shared BOOLEAN DEFAULT false
	)`

	if _, err := db.Exec(categoriesTableSQL); err != nil {
		return serr.Wrap(err, "failed to create categories table")
	}

	// Mutation queue. The only persisted record of pending write intent —
	// queued_at is the FIFO key, headers holds the captured request headers
	// (including the auth token at enqueue time) as JSON.
	queueTableSQL := `
	CREATE TABLE IF NOT EXISTS sync_queue (
		id BIGINT PRIMARY KEY DEFAULT nextval('sync_queue_id_seq'),
		action VARCHAR(32) NOT NULL,
		endpoint VARCHAR(512) NOT NULL,
		method VARCHAR(8) NOT NULL,
		body VARCHAR,
		headers VARCHAR,
		target_id BIGINT,
		list_id BIGINT,
		queued_at TIMESTAMP NOT NULL,
		retries INTEGER DEFAULT 0
	)`

	if _, err := db.Exec(queueTableSQL); err != nil {
		return serr.Wrap(err, "failed to create sync_queue table")
	}

	queueIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_sync_queue_queued_at ON sync_queue(queued_at)`

	if _, err := db.Exec(queueIndexSQL); err != nil {
		logger.LogErr(err, "failed to create sync_queue index")
	}

	// Client state: stable client identity plus the persisted session token.
	clientStateSQL := `
	CREATE TABLE IF NOT EXISTS client_state (
		api_url VARCHAR PRIMARY KEY,
		client_id VARCHAR(40) NOT NULL,
		auth_token VARCHAR,
		token_iv VARCHAR,
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(clientStateSQL); err != nil {
		return serr.Wrap(err, "failed to create client_state table")
	}

	return nil
}
