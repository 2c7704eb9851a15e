package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	_ "modernc.org/sqlite"
)

// DB is the append-only analysis run log. It is separate from the checklist
// state file and carries no user progress: losing it loses nothing but
// history.
type DB struct {
	sql *sql.DB
}

// Run is one analysis invocation.
type Run struct {
	ID            int64
	RanAt         time.Time
	InventoryFile string
	ScriptFiles   []string
	Scripts       int
	Refs          int
	Items         int
	Orphans       int
	Added         int
	Updated       int
	Retained      int
}

// Change is one item-level merge event within a run.
type Change struct {
	RunID         int64
	OccurredAt    time.Time
	Key           string
	ItemName      string
	ContainerName string
	ChangeType    string // added | updated
}

// DefaultPath is ~/.gearsweep/history.db.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gearsweep", "history.db"), nil
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id             INTEGER PRIMARY KEY,
  ran_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  inventory_file TEXT NOT NULL,
  script_files   TEXT NOT NULL,
  scripts        INTEGER NOT NULL,
  refs           INTEGER NOT NULL,
  items          INTEGER NOT NULL,
  orphans        INTEGER NOT NULL,
  added          INTEGER NOT NULL,
  updated        INTEGER NOT NULL,
  retained       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_changes (
  id             INTEGER PRIMARY KEY,
  run_id         INTEGER NOT NULL,
  occurred_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  key            TEXT NOT NULL,
  item_name      TEXT NOT NULL,
  container_name TEXT NOT NULL,
  change_type    TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_run ON run_changes(run_id);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordRun appends one run and its item-level changes, returning the run
// id.
func (d *DB) RecordRun(ctx context.Context, run Run, changes []Change) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs(inventory_file, script_files, scripts, refs, items, orphans, added, updated, retained) VALUES(?,?,?,?,?,?,?,?,?)`,
		run.InventoryFile, strings.Join(run.ScriptFiles, ", "), run.Scripts, run.Refs, run.Items, run.Orphans, run.Added, run.Updated, run.Retained)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, c := range changes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_changes(run_id, key, item_name, container_name, change_type) VALUES(?,?,?,?,?)`,
			runID, c.Key, c.ItemName, c.ContainerName, c.ChangeType); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns the most recent N runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, ran_at, inventory_file, script_files, scripts, refs, items, orphans, added, updated, retained FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ranAt, scriptFiles string
		if err := rows.Scan(&r.ID, &ranAt, &r.InventoryFile, &scriptFiles, &r.Scripts, &r.Refs, &r.Items, &r.Orphans, &r.Added, &r.Updated, &r.Retained); err != nil {
			return nil, err
		}
		r.RanAt = parseTimestamp(ranAt)
		if scriptFiles != "" {
			r.ScriptFiles = strings.Split(scriptFiles, ", ")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListChanges returns the most recent N item-level changes, newest first.
func (d *DB) ListChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT run_id, occurred_at, key, item_name, container_name, change_type FROM run_changes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var occurredAt string
		if err := rows.Scan(&c.RunID, &occurredAt, &c.Key, &c.ItemName, &c.ContainerName, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// parseTimestamp handles SQLite's CURRENT_TIMESTAMP format, then RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
