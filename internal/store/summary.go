package store

import (
	"context"
	"fmt"
)

// TaskSummary aggregates task counts for one snapshot.
type TaskSummary struct {
	Total             int
	Pending           int
	Completed         int
	MyPending         int
	PendingByPriority map[string]int
	Recent            []*TaskView
}

// Summarize computes counts for the workspace and for userID. Total, pending
// and completed come from a single grouped query, so Total always equals
// Pending + Completed.
func (s *Store) Summarize(ctx context.Context, userID string, recent int) (*TaskSummary, error) {
	sum := &TaskSummary{
		PendingByPriority: map[string]int{
			PriorityHigh:   0,
			PriorityMedium: 0,
			PriorityLow:    0,
		},
	}

	rows, err := s.query(ctx, `
	SELECT t.completed, t.priority, COUNT(*)
	FROM tasks t
	GROUP BY t.completed, t.priority
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			completed bool
			priority  string
			n         int
		)
		if err := rows.Scan(&completed, &priority, &n); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if completed {
			sum.Completed += n
		} else {
			sum.Pending += n
			sum.PendingByPriority[priority] += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary: %w", err)
	}
	sum.Total = sum.Pending + sum.Completed

	if err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE assigned_to = ? AND completed = ?`, userID, false,
	).Scan(&sum.MyPending); err != nil {
		return nil, fmt.Errorf("failed to count user tasks: %w", err)
	}

	if recent > 0 {
		sum.Recent, err = s.ListTasks(ctx, TaskFilter{Limit: recent})
		if err != nil {
			return nil, err
		}
	}
	return sum, nil
}
