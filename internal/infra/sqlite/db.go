// Package sqlite provides SQLite-based persistent storage for backlogd.
// Uses WAL mode for concurrent reads and crash-safe writes. The task
// tables are split into an active partition (tasks) and an archive
// partition (tasks_archive); a task row lives in exactly one of the two
// at any time, and moves between them only inside a transaction.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/backlogd/backlogd/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations. It
// implements domain.Store.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/backlog.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "backlog.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Active partition. AUTOINCREMENT so ids are monotonic and
		// never reused, even after a row moves to the archive.
		`CREATE TABLE IF NOT EXISTS tasks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			title        TEXT NOT NULL,
			status       TEXT NOT NULL,
			priority     INTEGER NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			session_id   TEXT,
			created_at   INTEGER NOT NULL,
			started_at   INTEGER,
			completed_at INTEGER,
			version      INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,

		// Archive partition — same shape, ids carried over.
		`CREATE TABLE IF NOT EXISTS tasks_archive (
			id           INTEGER PRIMARY KEY,
			title        TEXT NOT NULL,
			status       TEXT NOT NULL,
			priority     INTEGER NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			session_id   TEXT,
			created_at   INTEGER NOT NULL,
			started_at   INTEGER,
			completed_at INTEGER,
			version      INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_archive_completed ON tasks_archive(completed_at)`,

		// Blocking edges, resource footprints, acceptance criteria.
		// Child tables are keyed by task id and shared by both
		// partitions, so history survives archive and reopen.
		`CREATE TABLE IF NOT EXISTS task_blockers (
			task_id    INTEGER NOT NULL,
			blocker_id INTEGER NOT NULL,
			PRIMARY KEY (task_id, blocker_id)
		)`,
		`CREATE TABLE IF NOT EXISTS task_resources (
			task_id  INTEGER NOT NULL,
			resource TEXT NOT NULL,
			PRIMARY KEY (task_id, resource)
		)`,
		`CREATE TABLE IF NOT EXISTS task_criteria (
			task_id  INTEGER NOT NULL,
			position INTEGER NOT NULL,
			text     TEXT NOT NULL,
			checked  BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (task_id, position)
		)`,

		// Append-only progress log.
		`CREATE TABLE IF NOT EXISTS progress_log (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id   INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			note      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_task ON progress_log(task_id)`,

		// Learning ledger — append-only, never edited or deleted.
		`CREATE TABLE IF NOT EXISTS learnings (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id        INTEGER,
			created_at     INTEGER NOT NULL,
			context        TEXT NOT NULL DEFAULT '',
			insight        TEXT NOT NULL,
			applied_action TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_learnings_task ON learnings(task_id)`,

		// Parallel sessions and their declared task sets.
		`CREATE TABLE IF NOT EXISTS sessions (
			id        TEXT PRIMARY KEY,
			opened_at INTEGER NOT NULL,
			closed_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS session_tasks (
			session_id TEXT NOT NULL,
			task_id    INTEGER NOT NULL,
			PRIMARY KEY (session_id, task_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time check that DB satisfies the full store surface.
var _ domain.Store = (*DB)(nil)
