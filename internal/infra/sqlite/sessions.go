package sqlite

import (
	"database/sql"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
)

// ─── Parallel Sessions ──────────────────────────────────────────────────────

// InsertSession persists a session and its declared task set.
func (d *DB) InsertSession(s domain.Session) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.OpenedAt.IsZero() {
		s.OpenedAt = time.Now()
	}
	if _, err := tx.Exec(
		`INSERT INTO sessions (id, opened_at, closed_at) VALUES (?, ?, ?)`,
		s.ID, s.OpenedAt.Unix(), nullableUnix(s.ClosedAt),
	); err != nil {
		return err
	}
	for _, taskID := range s.TaskIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO session_tasks (session_id, task_id) VALUES (?, ?)`,
			s.ID, taskID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSession retrieves a session with its task set.
func (d *DB) GetSession(id string) (*domain.Session, error) {
	var s domain.Session
	var openedAt int64
	var closedAt sql.NullInt64
	err := d.db.QueryRow(
		`SELECT id, opened_at, closed_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &openedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.OpenedAt = time.Unix(openedAt, 0)
	if closedAt.Valid {
		s.ClosedAt = time.Unix(closedAt.Int64, 0)
	}

	rows, err := d.db.Query(
		`SELECT task_id FROM session_tasks WHERE session_id = ? ORDER BY task_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var taskID int64
		if err := rows.Scan(&taskID); err != nil {
			return nil, err
		}
		s.TaskIDs = append(s.TaskIDs, taskID)
	}
	return &s, rows.Err()
}

// CloseSession marks a session closed. Closing twice is a no-op.
func (d *DB) CloseSession(id string) error {
	res, err := d.db.Exec(
		`UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := d.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return domain.ErrSessionNotFound
		}
		return err // already closed: no-op
	}
	return nil
}
