package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the three priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a task row.
type Task struct {
	ID          string
	Title       string
	Description string
	CreatedBy   string
	AssignedTo  string // empty = unassigned
	ProjectID   string // empty = no project
	Completed   bool
	Priority    string
	DueDate     string // YYYY-MM-DD, empty = none
	CreatedAt   int64  // unix ms
	UpdatedAt   int64  // unix ms
	CompletedAt int64  // unix ms, 0 = not completed
}

// TaskView is a task joined with the names of the people and project it references.
type TaskView struct {
	Task
	CreatorName  string
	AssigneeName string
	ProjectName  string
}

// TaskFilter narrows ListTasks. Zero values mean "no constraint".
type TaskFilter struct {
	Completed  *bool
	AssignedTo string
	CreatedBy  string
	Involving  string // assigned to OR created by this user
	Text       string // substring of title or description
	Title      string // substring of title
	Limit      int
}

const taskViewSelect = `
SELECT t.id, t.title, t.description, t.created_by,
       COALESCE(t.assigned_to, ''), COALESCE(t.project_id, ''),
       t.completed, t.priority, COALESCE(t.due_date, ''),
       t.created_at, t.updated_at, COALESCE(t.completed_at, 0),
       COALESCE(c.name, ''), COALESCE(a.name, ''), COALESCE(p.name, '')
FROM tasks t
LEFT JOIN users c ON c.id = t.created_by
LEFT JOIN users a ON a.id = t.assigned_to
LEFT JOIN projects p ON p.id = t.project_id
`

func scanTaskView(row interface{ Scan(...any) error }) (*TaskView, error) {
	v := &TaskView{}
	err := row.Scan(
		&v.ID, &v.Title, &v.Description, &v.CreatedBy,
		&v.AssignedTo, &v.ProjectID,
		&v.Completed, &v.Priority, &v.DueDate,
		&v.CreatedAt, &v.UpdatedAt, &v.CompletedAt,
		&v.CreatorName, &v.AssigneeName, &v.ProjectName,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateTask inserts a task. ID, priority and timestamps are filled when empty.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	now := nowMillis()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = t.CreatedAt
	}

	_, err := s.exec(ctx, `
	INSERT INTO tasks (
		id, title, description, created_by, assigned_to, project_id,
		completed, priority, due_date, created_at, updated_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Title, t.Description, t.CreatedBy,
		nullString(t.AssignedTo), nullString(t.ProjectID),
		t.Completed, t.Priority, nullString(t.DueDate),
		t.CreatedAt, t.UpdatedAt,
		sql.NullInt64{Int64: t.CompletedAt, Valid: t.CompletedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil, nil when missing.
func (s *Store) GetTask(ctx context.Context, id string) (*TaskView, error) {
	v, err := scanTaskView(s.queryRow(ctx, taskViewSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return v, nil
}

// ListTasks retrieves tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*TaskView, error) {
	var (
		where []string
		args  []any
	)
	if f.Completed != nil {
		where = append(where, `t.completed = ?`)
		args = append(args, *f.Completed)
	}
	if f.AssignedTo != "" {
		where = append(where, `t.assigned_to = ?`)
		args = append(args, f.AssignedTo)
	}
	if f.CreatedBy != "" {
		where = append(where, `t.created_by = ?`)
		args = append(args, f.CreatedBy)
	}
	if f.Involving != "" {
		where = append(where, `(t.assigned_to = ? OR t.created_by = ?)`)
		args = append(args, f.Involving, f.Involving)
	}
	if f.Text != "" {
		where = append(where, `(`+s.fold("t.title")+` LIKE ? ESCAPE '\' OR `+s.fold("t.description")+` LIKE ? ESCAPE '\')`)
		p := likePattern(f.Text)
		args = append(args, p, p)
	}
	if f.Title != "" {
		where = append(where, s.fold("t.title")+` LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Title))
	}

	query := taskViewSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*TaskView
	for rows.Next() {
		v, err := scanTaskView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// FindTaskByTitle returns the best task whose title contains fragment:
// incomplete tasks win over completed ones, then the newest. Returns nil, nil
// when nothing matches.
func (s *Store) FindTaskByTitle(ctx context.Context, fragment string) (*TaskView, error) {
	v, err := scanTaskView(s.queryRow(ctx,
		taskViewSelect+` WHERE `+s.fold("t.title")+` LIKE ? ESCAPE '\'
		ORDER BY t.completed ASC, t.created_at DESC, t.id DESC LIMIT 1`,
		likePattern(fragment)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return v, nil
}

// MarkTaskCompleted flips an incomplete task to completed. It reports false
// when the task was already completed (or does not exist); the conditional
// update makes concurrent completions change state once.
func (s *Store) MarkTaskCompleted(ctx context.Context, id string) (bool, error) {
	now := nowMillis()
	res, err := s.exec(ctx, `
	UPDATE tasks
	SET completed = ?, completed_at = ?, updated_at = ?
	WHERE id = ? AND completed = ?
	`, true, now, now, id, false)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// CountTasks returns the number of task rows.
func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
