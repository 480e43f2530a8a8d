package tasktools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

const dueDateLayout = "2006-01-02"

// CreateTask creates a task in the default project.
type CreateTask struct {
	store          Store
	defaultProject string
	logger         zerolog.Logger
}

func (t *CreateTask) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameCreateTask,
		Description: "Create a new task. The assignee may be an email address or part of a person's name; omit it to assign the task to the current user.",
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{
			"title": map[string]string{
				"type":        "string",
				"description": "Short task title",
			},
			"description": map[string]string{
				"type":        "string",
				"description": "Optional details",
			},
			"assignee": map[string]string{
				"type":        "string",
				"description": "Email or name of the person to assign",
			},
			"priority": map[string]interface{}{
				"type":        "string",
				"enum":        []string{store.PriorityLow, store.PriorityMedium, store.PriorityHigh},
				"description": "Task priority (default medium)",
			},
			"due_date": map[string]string{
				"type":        "string",
				"description": "Due date as YYYY-MM-DD",
			},
		}, "title")),
	}
}

// normalizePriority lowercases p and falls back to medium when it is not a
// known priority.
func normalizePriority(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if store.ValidPriority(p) {
		return p
	}
	return store.PriorityMedium
}

// resolveAssignee finds the active user an assignee string refers to: exact
// email first, then partial name. Empty means the caller. Returns nil when
// nothing matches.
func resolveAssignee(ctx context.Context, s Store, assignee string, caller tool.Caller) (*store.User, error) {
	if assignee == "" {
		return &store.User{ID: caller.ID, Name: caller.Name, Email: caller.Email}, nil
	}

	u, err := s.GetUserByEmail(ctx, assignee)
	if err != nil {
		return nil, err
	}
	if u != nil && u.Active {
		return u, nil
	}

	matches, err := s.FindActiveUsersByName(ctx, assignee)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches[0], nil
	}
	return nil, nil
}

func (t *CreateTask) Execute(ctx context.Context, call tool.Call) (tool.Result, error) {
	args := call.Args()

	title := args.String("title")
	if title == "" {
		return tool.Fail("A task title is required"), nil
	}

	dueDate := args.String("due_date")
	if dueDate != "" {
		if _, err := time.Parse(dueDateLayout, dueDate); err != nil {
			return tool.Fail(fmt.Sprintf("Invalid due date %q, expected YYYY-MM-DD", dueDate)), nil
		}
	}

	assigneeArg := args.String("assignee")
	assignee, err := resolveAssignee(ctx, t.store, assigneeArg, call.Caller)
	if err != nil {
		return tool.Result{}, fmt.Errorf("create_task: resolve assignee: %w", err)
	}
	if assignee == nil {
		return tool.Fail(`Could not find a user matching "`+assigneeArg+`"`).
			With("hint", "Call list_users to see who can be assigned"), nil
	}

	project, err := t.store.EnsureProject(ctx, t.defaultProject)
	if err != nil {
		return tool.Result{}, fmt.Errorf("create_task: default project: %w", err)
	}

	task := &store.Task{
		Title:       title,
		Description: args.String("description"),
		CreatedBy:   call.Caller.ID,
		AssignedTo:  assignee.ID,
		ProjectID:   project.ID,
		Priority:    normalizePriority(args.String("priority")),
		DueDate:     dueDate,
	}
	if err := t.store.CreateTask(ctx, task); err != nil {
		return tool.Result{}, fmt.Errorf("create_task: %w", err)
	}

	t.logger.Info().
		Str("task_id", task.ID).
		Str("created_by", call.Caller.ID).
		Str("assigned_to", assignee.ID).
		Msg("task created")

	return tool.OK(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Created task %q assigned to %s", task.Title, assignee.Name),
		"task": taskOutput{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Status:      statusLabel(false),
			Priority:    task.Priority,
			DueDate:     task.DueDate,
			AssignedTo:  assignee.Name,
			CreatedBy:   call.Caller.Name,
			Project:     project.Name,
			CreatedAt:   time.UnixMilli(task.CreatedAt).UTC().Format(time.RFC3339),
		},
	}), nil
}
