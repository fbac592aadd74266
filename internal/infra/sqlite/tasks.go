package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/backlogd/backlogd/internal/domain"
)

const taskColumns = `id, title, status, priority, category, session_id, created_at, started_at, completed_at, version`

// ─── Task Repository ────────────────────────────────────────────────────────

// InsertTask persists a new task with its blockers, footprint and
// criteria, and returns the freshly assigned id.
func (d *DB) InsertTask(t domain.Task) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}

	res, err := tx.Exec(
		`INSERT INTO tasks (title, status, priority, category, session_id, created_at, started_at, completed_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		t.Title, string(t.Status), int(t.Priority), t.Category, nullStr(t.SessionID),
		t.CreatedAt.Unix(), nullableUnix(t.StartedAt), nullableUnix(t.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, b := range t.BlockedBy {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_blockers (task_id, blocker_id) VALUES (?, ?)`, id, b,
		); err != nil {
			return 0, fmt.Errorf("insert blocker: %w", err)
		}
	}
	for _, r := range t.Footprint {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_resources (task_id, resource) VALUES (?, ?)`, id, r,
		); err != nil {
			return 0, fmt.Errorf("insert resource: %w", err)
		}
	}
	for i, c := range t.Criteria {
		if _, err := tx.Exec(
			`INSERT INTO task_criteria (task_id, position, text, checked) VALUES (?, ?, ?, ?)`,
			id, i, c.Text, c.Checked,
		); err != nil {
			return 0, fmt.Errorf("insert criterion: %w", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
		id, time.Now().Unix(), "created",
	); err != nil {
		return 0, fmt.Errorf("insert progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetTask retrieves a task from either partition.
func (d *DB) GetTask(id int64) (*domain.Task, error) {
	t, err := scanTask(d.db.QueryRow(
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if t == nil {
		t, err = scanTask(d.db.QueryRow(
			`SELECT `+taskColumns+` FROM tasks_archive WHERE id = ?`, id))
		if err != nil {
			return nil, err
		}
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	if err := d.attachChildren([]*domain.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListActive returns every task in the active partition, ordered by id.
func (d *DB) ListActive() ([]domain.Task, error) {
	return d.listTasks(`SELECT ` + taskColumns + ` FROM tasks ORDER BY id`)
}

// ListArchive returns archived tasks, most recently completed first.
func (d *DB) ListArchive(limit int) ([]domain.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks_archive ORDER BY completed_at DESC, id DESC`
	if limit > 0 {
		return d.listTasks(q+` LIMIT ?`, limit)
	}
	return d.listTasks(q)
}

// ListAll returns both partitions, ordered by id.
func (d *DB) ListAll() ([]domain.Task, error) {
	return d.listTasks(
		`SELECT ` + taskColumns + ` FROM tasks
		 UNION ALL
		 SELECT ` + taskColumns + ` FROM tasks_archive
		 ORDER BY id`)
}

// ListByStatus returns active tasks with the given status, ordered by id.
func (d *DB) ListByStatus(status domain.Status) ([]domain.Task, error) {
	if status == domain.StatusCompleted {
		return d.ListArchive(0)
	}
	return d.listTasks(
		`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY id`, string(status))
}

func (d *DB) listTasks(query string, args ...any) ([]domain.Task, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := d.attachChildren(ptrs); err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, len(ptrs))
	for i, t := range ptrs {
		tasks[i] = *t
	}
	return tasks, nil
}

// UpdateTask writes t's scalar fields with an optimistic version check
// and appends note to the progress log in the same transaction.
func (d *DB) UpdateTask(t domain.Task, note string) (*domain.Task, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE tasks SET title = ?, status = ?, priority = ?, category = ?, session_id = ?,
		        started_at = ?, completed_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		t.Title, string(t.Status), int(t.Priority), t.Category, nullStr(t.SessionID),
		nullableUnix(t.StartedAt), nullableUnix(t.CompletedAt),
		t.ID, t.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return nil, d.conflictOrMissing(t.ID)
	}

	if note != "" {
		if _, err := tx.Exec(
			`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
			t.ID, time.Now().Unix(), note,
		); err != nil {
			return nil, fmt.Errorf("insert progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d.GetTask(t.ID)
}

// AdmitTask transitions t to InProgress with the admission invariant
// asserted by the UPDATE statement itself, so two processes sharing the
// database file cannot both admit. Outside a session no other task may
// be in progress at all; inside a session no in-progress task may share
// a footprint resource with t.
func (d *DB) AdmitTask(t domain.Task, note string) (*domain.Task, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var res sql.Result
	if t.SessionID == "" {
		res, err = tx.Exec(
			`UPDATE tasks SET status = ?, session_id = NULL, started_at = ?, version = version + 1
			 WHERE id = ? AND version = ?
			   AND NOT EXISTS (SELECT 1 FROM tasks WHERE status = ? AND id != ?)`,
			string(domain.StatusInProgress), nullableUnix(t.StartedAt),
			t.ID, t.Version, string(domain.StatusInProgress), t.ID,
		)
	} else {
		res, err = tx.Exec(
			`UPDATE tasks SET status = ?, session_id = ?, started_at = ?, version = version + 1
			 WHERE id = ? AND version = ?
			   AND NOT EXISTS (
			       SELECT 1 FROM tasks r
			       JOIN task_resources rr ON rr.task_id = r.id
			       JOIN task_resources cr ON cr.resource = rr.resource
			       WHERE r.status = ? AND r.id != ? AND cr.task_id = ?)`,
			string(domain.StatusInProgress), t.SessionID, nullableUnix(t.StartedAt),
			t.ID, t.Version, string(domain.StatusInProgress), t.ID, t.ID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("admit task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return nil, d.admissionRefusal(t)
	}

	if note != "" {
		if _, err := tx.Exec(
			`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
			t.ID, time.Now().Unix(), note,
		); err != nil {
			return nil, fmt.Errorf("insert progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d.GetTask(t.ID)
}

// admissionRefusal classifies a zero-row admission UPDATE: missing row,
// archived row, stale version, or the invariant itself.
func (d *DB) admissionRefusal(t domain.Task) error {
	var version int64
	err := d.db.QueryRow(`SELECT version FROM tasks WHERE id = ?`, t.ID).Scan(&version)
	if err == sql.ErrNoRows {
		var one int
		err = d.db.QueryRow(`SELECT 1 FROM tasks_archive WHERE id = ?`, t.ID).Scan(&one)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrInvalidState
	}
	if err != nil {
		return err
	}
	if version != t.Version {
		return domain.ErrConflict
	}
	if t.SessionID == "" {
		return domain.ErrActiveLimitExceeded
	}
	return domain.ErrResourceConflict
}

// CompleteTask marks t Completed and moves it to the archive partition
// in a single transaction. A failure at any point leaves the task
// exactly where it was — never in both partitions, never in neither.
func (d *DB) CompleteTask(t domain.Task, note string) (*domain.Task, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(
		`UPDATE tasks SET status = ?, completed_at = ?, session_id = NULL, version = version + 1
		 WHERE id = ? AND version = ?`,
		string(domain.StatusCompleted), now.Unix(), t.ID, t.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return nil, d.conflictOrMissing(t.ID)
	}

	if note == "" {
		note = "completed"
	}
	if _, err := tx.Exec(
		`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
		t.ID, now.Unix(), note,
	); err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	// Partition move: archive copy, then delete from active.
	if _, err := tx.Exec(
		`INSERT INTO tasks_archive (`+taskColumns+`)
		 SELECT `+taskColumns+` FROM tasks WHERE id = ?`, t.ID,
	); err != nil {
		return nil, fmt.Errorf("archive copy: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, t.ID); err != nil {
		return nil, fmt.Errorf("archive delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d.GetTask(t.ID)
}

// ReopenTask moves an archived task back to the active partition in
// Pending status, clearing completed_at and recording reason.
func (d *DB) ReopenTask(id int64, reason string) (*domain.Task, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO tasks (id, title, status, priority, category, session_id, created_at, started_at, completed_at, version)
		 SELECT id, title, ?, priority, category, NULL, created_at, started_at, NULL, version + 1
		 FROM tasks_archive WHERE id = ?`,
		string(domain.StatusPending), id,
	)
	if err != nil {
		return nil, fmt.Errorf("reopen copy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		// Not archived: either still active (invalid) or gone entirely.
		var one int
		err := d.db.QueryRow(`SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidState
	}

	if _, err := tx.Exec(`DELETE FROM tasks_archive WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("reopen delete: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
		id, time.Now().Unix(), "reopened: "+reason,
	); err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d.GetTask(id)
}

// AddBlocker persists a blocking edge. The engine has already done the
// cycle check by the time this runs.
func (d *DB) AddBlocker(taskID, blockerID int64) error {
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO task_blockers (task_id, blocker_id) VALUES (?, ?)`,
		taskID, blockerID,
	)
	return err
}

// SetCriterion flips the checked state of one acceptance criterion,
// version-checked against the owning task.
func (d *DB) SetCriterion(id, version int64, position int, checked bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE tasks SET version = version + 1 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return d.conflictOrMissing(id)
	}

	res, err = tx.Exec(
		`UPDATE task_criteria SET checked = ? WHERE task_id = ? AND position = ?`,
		checked, id, position)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		// The task row matched above, so this is a bad position, not a
		// missing task.
		return fmt.Errorf("task %d, position %d: %w", id, position, domain.ErrCriterionNotFound)
	}

	return tx.Commit()
}

// AppendProgress appends a progress log entry without touching the task row.
func (d *DB) AppendProgress(taskID int64, note string) error {
	_, err := d.db.Exec(
		`INSERT INTO progress_log (task_id, timestamp, note) VALUES (?, ?, ?)`,
		taskID, time.Now().Unix(), note,
	)
	return err
}

// LastCompleted returns the most recently archived task, or nil.
func (d *DB) LastCompleted() (*domain.Task, error) {
	t, err := scanTask(d.db.QueryRow(
		`SELECT ` + taskColumns + ` FROM tasks_archive ORDER BY completed_at DESC, id DESC LIMIT 1`))
	if err != nil || t == nil {
		return t, err
	}
	if err := d.attachChildren([]*domain.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// Summary recomputes the derived index view by live aggregation. It is
// never cached: the counts are always what a fresh scan would produce.
func (d *DB) Summary() (domain.Summary, error) {
	var s domain.Summary

	rows, err := d.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return s, err
		}
		switch domain.Status(status) {
		case domain.StatusPending:
			s.Pending = n
		case domain.StatusInProgress:
			s.InProgress = n
		case domain.StatusBlocked:
			s.Blocked = n
		}
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM tasks_archive`).Scan(&s.Completed); err != nil {
		return s, err
	}

	active, err := d.db.Query(
		`SELECT id FROM tasks WHERE status = ? ORDER BY id`, string(domain.StatusInProgress))
	if err != nil {
		return s, err
	}
	defer active.Close()
	for active.Next() {
		var id int64
		if err := active.Scan(&id); err != nil {
			return s, err
		}
		s.Active = append(s.Active, id)
	}
	return s, active.Err()
}

// CountTitle returns how many tasks across both partitions share title.
func (d *DB) CountTitle(title string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT (SELECT COUNT(*) FROM tasks WHERE title = ?) +
		        (SELECT COUNT(*) FROM tasks_archive WHERE title = ?)`,
		title, title,
	).Scan(&n)
	return n, err
}

// ─── Scan Helpers ───────────────────────────────────────────────────────────

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var createdAt int64
	var startedAt, completedAt sql.NullInt64
	var sessionID sql.NullString
	var priority int

	err := s.Scan(&t.ID, &t.Title, &t.Status, &priority, &t.Category,
		&sessionID, &createdAt, &startedAt, &completedAt, &t.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Priority = domain.Priority(priority)
	t.CreatedAt = time.Unix(createdAt, 0)
	if startedAt.Valid {
		t.StartedAt = time.Unix(startedAt.Int64, 0)
	}
	if completedAt.Valid {
		t.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	if sessionID.Valid {
		t.SessionID = sessionID.String
	}
	return &t, nil
}

// attachChildren loads blockers, footprints, criteria and progress for
// the given tasks. Each child table is filtered to the requested ids so
// a single-task read does not scan every row.
func (d *DB) attachChildren(tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Task, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		args = append(args, t.ID)
	}
	in := "(?" + strings.Repeat(", ?", len(tasks)-1) + ")"

	rows, err := d.db.Query(
		`SELECT task_id, blocker_id FROM task_blockers WHERE task_id IN `+in+
			` ORDER BY task_id, blocker_id`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var taskID, blockerID int64
		if err := rows.Scan(&taskID, &blockerID); err != nil {
			rows.Close()
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.BlockedBy = append(t.BlockedBy, blockerID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(
		`SELECT task_id, resource FROM task_resources WHERE task_id IN `+in+
			` ORDER BY task_id, resource`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var taskID int64
		var resource string
		if err := rows.Scan(&taskID, &resource); err != nil {
			rows.Close()
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Footprint = append(t.Footprint, resource)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(
		`SELECT task_id, position, text, checked FROM task_criteria WHERE task_id IN `+in+
			` ORDER BY task_id, position`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var taskID int64
		var position int
		var c domain.Criterion
		if err := rows.Scan(&taskID, &position, &c.Text, &c.Checked); err != nil {
			rows.Close()
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Criteria = append(t.Criteria, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.db.Query(
		`SELECT task_id, timestamp, note FROM progress_log WHERE task_id IN `+in+
			` ORDER BY id`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var taskID, ts int64
		var note string
		if err := rows.Scan(&taskID, &ts, &note); err != nil {
			rows.Close()
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Progress = append(t.Progress, domain.ProgressEntry{
				Timestamp: time.Unix(ts, 0), Note: note,
			})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range tasks {
		sort.Slice(t.BlockedBy, func(i, j int) bool { return t.BlockedBy[i] < t.BlockedBy[j] })
	}
	return nil
}

// conflictOrMissing distinguishes a version mismatch from a missing row
// after a zero-row UPDATE.
func (d *DB) conflictOrMissing(id int64) error {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		// Could still be archived — a version-checked write against an
		// archived task is a state problem, not a missing row.
		err = d.db.QueryRow(`SELECT 1 FROM tasks_archive WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrInvalidState
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}
