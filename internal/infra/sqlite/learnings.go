package sqlite

import (
	"database/sql"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
)

// ─── Learning Ledger ────────────────────────────────────────────────────────
// Append-only: there is deliberately no update or delete here.

// AppendLearning adds a ledger entry and returns its monotonic id.
func (d *DB) AppendLearning(e domain.LearningEntry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var taskID sql.NullInt64
	if e.TaskID != 0 {
		taskID = sql.NullInt64{Int64: e.TaskID, Valid: true}
	}
	res, err := d.db.Exec(
		`INSERT INTO learnings (task_id, created_at, context, insight, applied_action)
		 VALUES (?, ?, ?, ?, ?)`,
		taskID, e.CreatedAt.Unix(), e.Context, e.Insight, e.AppliedAction,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LearningsByTask returns all entries tied to a task, oldest first.
func (d *DB) LearningsByTask(taskID int64) ([]domain.LearningEntry, error) {
	return d.listLearnings(
		`SELECT id, task_id, created_at, context, insight, applied_action
		 FROM learnings WHERE task_id = ? ORDER BY id`, taskID)
}

// ListLearnings returns recent entries, newest first.
func (d *DB) ListLearnings(limit int) ([]domain.LearningEntry, error) {
	q := `SELECT id, task_id, created_at, context, insight, applied_action
	      FROM learnings ORDER BY id DESC`
	if limit > 0 {
		return d.listLearnings(q+` LIMIT ?`, limit)
	}
	return d.listLearnings(q)
}

func (d *DB) listLearnings(query string, args ...any) ([]domain.LearningEntry, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LearningEntry
	for rows.Next() {
		var e domain.LearningEntry
		var taskID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&e.ID, &taskID, &createdAt, &e.Context, &e.Insight, &e.AppliedAction); err != nil {
			return nil, err
		}
		if taskID.Valid {
			e.TaskID = taskID.Int64
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
