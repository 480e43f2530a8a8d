package tasktools

import (
	"context"
	"fmt"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

// list_tasks filters.
const (
	FilterAll          = "all"
	FilterPending      = "pending"
	FilterCompleted    = "completed"
	FilterMyTasks      = "my_tasks"
	FilterAssignedToMe = "assigned_to_me"
	FilterCreatedByMe  = "created_by_me"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

var listFilters = []string{
	FilterAll, FilterPending, FilterCompleted,
	FilterMyTasks, FilterAssignedToMe, FilterCreatedByMe,
}

// ListTasks lists tasks by filter, newest first.
type ListTasks struct {
	store Store
}

func (t *ListTasks) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameListTasks,
		Description: "List tasks, newest first. Use filter to narrow: pending, completed, my_tasks (assigned to or created by me), assigned_to_me (my pending assignments), created_by_me, or all.",
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{
			"filter": map[string]interface{}{
				"type":        "string",
				"enum":        listFilters,
				"description": "Which tasks to return (default all)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum number of tasks (default %d, max %d)", defaultListLimit, maxListLimit),
			},
		})),
	}
}

// filterFor maps a filter name onto a store filter. Unknown names mean all.
func filterFor(name, callerID string) (string, store.TaskFilter) {
	pending, completed := false, true
	switch name {
	case FilterPending:
		return name, store.TaskFilter{Completed: &pending}
	case FilterCompleted:
		return name, store.TaskFilter{Completed: &completed}
	case FilterMyTasks:
		return name, store.TaskFilter{Involving: callerID}
	case FilterAssignedToMe:
		return name, store.TaskFilter{AssignedTo: callerID, Completed: &pending}
	case FilterCreatedByMe:
		return name, store.TaskFilter{CreatedBy: callerID}
	default:
		return FilterAll, store.TaskFilter{}
	}
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func (t *ListTasks) Execute(ctx context.Context, call tool.Call) (tool.Result, error) {
	args := call.Args()
	filter, f := filterFor(args.String("filter"), call.Caller.ID)
	f.Limit = clampLimit(args.Int("limit", defaultListLimit))

	tasks, err := t.store.ListTasks(ctx, f)
	if err != nil {
		return tool.Result{}, fmt.Errorf("list_tasks: %w", err)
	}
	return tool.OK(map[string]interface{}{
		"filter": filter,
		"count":  len(tasks),
		"tasks":  toOutputs(tasks),
	}), nil
}
