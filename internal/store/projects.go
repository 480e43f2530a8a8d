package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Project groups tasks.
type Project struct {
	ID        string
	Name      string
	CreatedAt int64 // unix ms
}

// GetProjectByName returns the project with the exact name, or nil, nil.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	p := &Project{}
	err := s.queryRow(ctx, `SELECT id, name, created_at FROM projects WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// EnsureProject returns the named project, creating it when missing.
// Concurrent callers converge on one row through the unique name constraint.
func (s *Store) EnsureProject(ctx context.Context, name string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	_, err := s.exec(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), name, nowMillis())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure project: %w", err)
	}

	p, err := s.GetProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %q missing after insert", name)
	}
	return p, nil
}
