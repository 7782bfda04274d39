package engine

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Checkpoint is the SQLite-backed journal that lets an interrupted run
// resume without re-copying completed files. One journal exists per
// (source, destination) pair, keyed by a deterministic job ID.
type Checkpoint struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	batch   []checkpointEntry
	done    chan struct{}
	stopped bool
}

type checkpointEntry struct {
	relPath   string
	size      int64
	digest    string
	mtimeNano int64
}

// batchLimit flushes the write buffer once it grows this large.
const batchLimit = 64

// OpenCheckpoint opens (or creates) the journal for a source/destination
// pair.
func OpenCheckpoint(src, dst string) (*Checkpoint, error) {
	dbPath := checkpointPath(checkpointJobID(src, dst))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}

	c := &Checkpoint{
		db:   db,
		path: dbPath,
		done: make(chan struct{}),
	}

	if err := c.init(src, dst); err != nil {
		db.Close()
		return nil, err
	}

	go c.flushLoop()
	return c, nil
}

func (c *Checkpoint) init(src, dst string) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS completed (
			path   TEXT PRIMARY KEY,
			size   INTEGER NOT NULL,
			digest TEXT NOT NULL,
			mtime  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var storedSrc string
	row := c.db.QueryRow("SELECT value FROM meta WHERE key = 'src_root'")
	if err := row.Scan(&storedSrc); err == nil {
		var storedDst string
		row = c.db.QueryRow("SELECT value FROM meta WHERE key = 'dst_root'")
		if err := row.Scan(&storedDst); err == nil && (storedSrc != src || storedDst != dst) {
			return fmt.Errorf("checkpoint roots mismatch: stored %s->%s, got %s->%s",
				storedSrc, storedDst, src, dst)
		}
		return nil
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('src_root', ?), ('dst_root', ?)",
		src, dst,
	)
	if err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	return nil
}

// IsCompleted reports whether relPath was already copied with the same
// size and mtime in a previous (or this) run.
func (c *Checkpoint) IsCompleted(relPath string, size, mtimeNano int64) bool {
	var storedSize, storedMtime int64
	err := c.db.QueryRow(
		"SELECT size, mtime FROM completed WHERE path = ?", relPath,
	).Scan(&storedSize, &storedMtime)
	if err != nil {
		return false
	}
	return storedSize == size && storedMtime == mtimeNano
}

// MarkCompleted records a successful copy. Writes are batched and
// flushed by a background loop.
func (c *Checkpoint) MarkCompleted(relPath string, size int64, digest string, mtimeNano int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, checkpointEntry{
		relPath:   relPath,
		size:      size,
		digest:    digest,
		mtimeNano: mtimeNano,
	})
	if len(c.batch) >= batchLimit {
		return c.flushLocked()
	}
	return nil
}

// Flush writes any buffered entries to the database.
func (c *Checkpoint) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Checkpoint) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO completed (path, size, digest, mtime) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.batch {
		if _, err := stmt.Exec(e.relPath, e.size, e.digest, e.mtimeNano); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.relPath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.batch = c.batch[:0]
	return nil
}

func (c *Checkpoint) flushLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			_ = c.flushLocked()
			c.mu.Unlock()
		}
	}
}

// Close flushes pending writes and closes the database.
func (c *Checkpoint) Close() error {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
	_ = c.flushLocked()
	c.mu.Unlock()
	return c.db.Close()
}

// Remove deletes the journal file, forgetting all resume state.
func (c *Checkpoint) Remove() error {
	return os.Remove(c.path)
}

// Path returns the filesystem location of the journal.
func (c *Checkpoint) Path() string {
	return c.path
}

// checkpointJobID derives a stable job ID from the root pair.
func checkpointJobID(src, dst string) string {
	h := blake3.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(dst))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

func checkpointPath(jobID string) string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "salvage", jobID+".db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "salvage", jobID+".db")
	}
	return filepath.Join(os.TempDir(), "salvage-"+jobID+".db")
}
