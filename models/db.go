package models

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// The local store is a dual-database setup: a disk-backed DuckDB file for
// durability (offline writes must survive a process restart) and an in-memory
// DuckDB for fast reads. Every write goes to disk first, then to memory.
var (
	memDB  *sql.DB      // In-memory cache for fast reads
	diskDB *sql.DB      // Persistent storage
	dbMu   sync.RWMutex // Protect concurrent access during writes
)

// localTables lists every collection held in the local store.
var localTables = []string{"lists", "categories", "client_state", "sync_queue"}

// InitDB initializes both the in-memory and disk databases and starts the
// background cache consistency worker.
func InitDB(path string) error {
	if err := openDBs(path); err != nil {
		return err
	}

	// Background worker for periodic cache consistency checks
	go startCacheWorker()

	return nil
}

// InitTestDB initializes the databases without the background worker,
// for deterministic tests.
func InitTestDB(path string) error {
	return openDBs(path)
}

func openDBs(path string) error {
	var err error

	// Disk-based database for persistence
	diskDB, err = sql.Open("duckdb", path)
	if err != nil {
		return serr.Wrap(err, "failed to open disk database")
	}

	// In-memory database for fast queries
	// DuckDB's go driver uses empty string for in-memory databases
	memDB, err = sql.Open("duckdb", "")
	if err != nil {
		return serr.Wrap(err, "failed to open memory database")
	}

	if err := migrateBoth(); err != nil {
		return serr.Wrap(err, "failed to migrate databases")
	}

	// Load existing data from disk into the memory cache so offline writes
	// from a previous run are immediately visible
	if err := syncDiskToMemory(); err != nil {
		return serr.Wrap(err, "failed to sync data to memory")
	}

	return nil
}

// CloseDB closes both database connections
func CloseDB() {
	if memDB != nil {
		memDB.Close()
		memDB = nil
	}
	if diskDB != nil {
		diskDB.Close()
		diskDB = nil
	}
}

// migrateBoth runs migrations on both databases
func migrateBoth() error {
	if err := migrateDB(diskDB); err != nil {
		return serr.Wrap(err, "disk migration failed")
	}
	if err := migrateDB(memDB); err != nil {
		return serr.Wrap(err, "memory migration failed")
	}
	return nil
}

// syncDiskToMemory loads all data from disk into the memory cache,
// table by table.
func syncDiskToMemory() error {
	for _, table := range localTables {
		rows, err := diskDB.Query("SELECT * FROM " + table)
		if err != nil {
			logger.LogErr(err, "failed to read from disk", "table", table)
			continue
		}

		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			continue
		}

		placeholders := ""
		for i := range cols {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
		}

		stmt, err := memDB.Prepare(
			"INSERT OR IGNORE INTO " + table + " VALUES (" + placeholders + ")")
		if err != nil {
			rows.Close()
			logger.LogErr(err, "failed to prepare insert", "table", table)
			continue
		}

		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(valuePtrs...); err != nil {
				continue
			}
			if _, err := stmt.Exec(values...); err != nil {
				logger.LogErr(err, "failed to insert into memory", "table", table)
			}
		}

		stmt.Close()
		rows.Close()
	}

	return nil
}

// WriteThrough writes to both databases ensuring consistency.
// Disk first for durability; a memory failure only dirties the cache.
func WriteThrough(query string, args ...interface{}) error {
	dbMu.Lock()
	defer dbMu.Unlock()

	_, err := diskDB.Exec(query, args...)
	if err != nil {
		return serr.Wrap(err, "failed to write to disk")
	}

	_, err = memDB.Exec(query, args...)
	if err != nil {
		// Disk write succeeded, so don't fail — schedule a cache rebuild
		logger.LogErr(err, "failed to update memory cache")
		markCacheDirty()
	}

	return nil
}

// ReadFromCache performs fast reads from memory, falling back to disk
func ReadFromCache(query string, args ...interface{}) (*sql.Rows, error) {
	dbMu.RLock()
	defer dbMu.RUnlock()

	rows, err := memDB.Query(query, args...)
	if err != nil {
		logger.LogErr(err, "cache read failed, falling back to disk")
		return diskDB.Query(query, args...)
	}

	return rows, nil
}

// QueryRowFromCache performs a single row query from cache
func QueryRowFromCache(query string, args ...interface{}) *sql.Row {
	dbMu.RLock()
	defer dbMu.RUnlock()

	return memDB.QueryRow(query, args...)
}

// DualTx wraps a transaction over both databases.
// Used by collection-replace operations that must be atomic.
type DualTx struct {
	diskTx    *sql.Tx
	memTx     *sql.Tx
	committed bool // Track commit to prevent double unlock
}

// BeginDualTx starts a transaction on both databases
func BeginDualTx() (*DualTx, error) {
	dbMu.Lock()

	diskTx, err := diskDB.Begin()
	if err != nil {
		dbMu.Unlock()
		return nil, serr.Wrap(err, "failed to begin disk transaction")
	}

	memTx, err := memDB.Begin()
	if err != nil {
		diskTx.Rollback()
		dbMu.Unlock()
		return nil, serr.Wrap(err, "failed to begin memory transaction")
	}

	return &DualTx{
		diskTx: diskTx,
		memTx:  memTx,
	}, nil
}

// Exec executes the query on both transactions
func (dt *DualTx) Exec(query string, args ...interface{}) error {
	if _, err := dt.diskTx.Exec(query, args...); err != nil {
		return err
	}

	if _, err := dt.memTx.Exec(query, args...); err != nil {
		// Log but don't fail — disk is the source of truth
		logger.LogErr(err, "memory tx exec failed")
	}

	return nil
}

// Commit commits both transactions
func (dt *DualTx) Commit() error {
	defer func() {
		dt.committed = true
		dbMu.Unlock()
	}()

	if err := dt.diskTx.Commit(); err != nil {
		dt.memTx.Rollback()
		return serr.Wrap(err, "failed to commit disk transaction")
	}

	if err := dt.memTx.Commit(); err != nil {
		logger.LogErr(err, "failed to commit memory transaction")
		markCacheDirty()
	}

	return nil
}

// Rollback rolls back both transactions
func (dt *DualTx) Rollback() error {
	// Commit unlocks the mutex, so only unlock here if we haven't committed
	if !dt.committed {
		defer dbMu.Unlock()
	}

	dt.diskTx.Rollback()
	dt.memTx.Rollback()

	return nil
}

// ClearAllData wipes every collection in the local store.
// Called on logout — the local cache must not outlive the session.
func ClearAllData() error {
	tx, err := BeginDualTx()
	if err != nil {
		return serr.Wrap(err, "failed to begin clear transaction")
	}
	defer tx.Rollback()

	for _, table := range localTables {
		if err := tx.Exec("DELETE FROM " + table); err != nil {
			return serr.Wrap(err, "failed to clear table "+table)
		}
	}

	return tx.Commit()
}

// Cache dirty tracking
var (
	cacheDirty bool
	cacheMu    sync.Mutex
)

func markCacheDirty() {
	cacheMu.Lock()
	cacheDirty = true
	cacheMu.Unlock()
}

func isCacheDirty() bool {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	return cacheDirty
}

// startCacheWorker periodically checks cache consistency
func startCacheWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if isCacheDirty() {
			logger.Info("Cache marked dirty, resyncing...")
			if err := resyncCache(); err != nil {
				logger.LogErr(err, "failed to resync cache")
			} else {
				cacheMu.Lock()
				cacheDirty = false
				cacheMu.Unlock()
			}
		}
	}
}

// resyncCache rebuilds the memory cache from disk
func resyncCache() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	for _, table := range localTables {
		_, _ = memDB.Exec("DELETE FROM " + table)
	}

	return syncDiskToMemory()
}
