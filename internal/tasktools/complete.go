package tasktools

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

// CompleteTask marks a task as completed, found by id or partial title.
type CompleteTask struct {
	store  Store
	logger zerolog.Logger
}

func (t *CompleteTask) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameCompleteTask,
		Description: "Mark a task as completed. Identify it by task_id, or by task_title (partial, case-insensitive match; incomplete tasks are preferred).",
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{
			"task_id": map[string]string{
				"type":        "string",
				"description": "Exact task id",
			},
			"task_title": map[string]string{
				"type":        "string",
				"description": "Part of the task title",
			},
		})),
	}
}

func (t *CompleteTask) find(ctx context.Context, id, title string) (*store.TaskView, error) {
	if id != "" {
		task, err := t.store.GetTask(ctx, id)
		if err != nil || task != nil {
			return task, err
		}
	}
	if title != "" {
		return t.store.FindTaskByTitle(ctx, title)
	}
	return nil, nil
}

func (t *CompleteTask) Execute(ctx context.Context, call tool.Call) (tool.Result, error) {
	args := call.Args()
	id, title := args.String("task_id"), args.String("task_title")
	if id == "" && title == "" {
		return tool.Fail("Provide either task_id or task_title"), nil
	}

	task, err := t.find(ctx, id, title)
	if err != nil {
		return tool.Result{}, fmt.Errorf("complete_task: %w", err)
	}
	if task == nil {
		return tool.Fail("Task not found"), nil
	}

	alreadyDone := tool.OK(map[string]interface{}{
		"message": fmt.Sprintf("Task %q is already completed", task.Title),
	})
	if task.Completed {
		return alreadyDone, nil
	}

	changed, err := t.store.MarkTaskCompleted(ctx, task.ID)
	if err != nil {
		return tool.Result{}, fmt.Errorf("complete_task: %w", err)
	}
	if !changed {
		return alreadyDone, nil
	}

	t.logger.Info().
		Str("task_id", task.ID).
		Str("completed_by", call.Caller.ID).
		Msg("task completed")

	task.Completed = true
	return tool.OK(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Task %q marked as completed", task.Title),
		"task":    toOutput(task),
	}), nil
}
