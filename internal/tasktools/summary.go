package tasktools

import (
	"context"
	"fmt"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/tool"
)

const recentTaskCount = 5

// GetTaskSummary reports workspace-wide and per-caller task counts.
type GetTaskSummary struct {
	store Store
}

func (t *GetTaskSummary) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameGetTaskSummary,
		Description: "Get task statistics: total, pending and completed counts, my pending count, pending tasks by priority, and the most recent tasks.",
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{})),
	}
}

func (t *GetTaskSummary) Execute(ctx context.Context, call tool.Call) (tool.Result, error) {
	sum, err := t.store.Summarize(ctx, call.Caller.ID, recentTaskCount)
	if err != nil {
		return tool.Result{}, fmt.Errorf("get_task_summary: %w", err)
	}
	return tool.OK(map[string]interface{}{
		"total":               sum.Total,
		"pending":             sum.Pending,
		"completed":           sum.Completed,
		"my_pending":          sum.MyPending,
		"pending_by_priority": sum.PendingByPriority,
		"recent_tasks":        toOutputs(sum.Recent),
	}), nil
}
