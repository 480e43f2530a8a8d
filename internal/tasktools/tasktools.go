// Package tasktools implements the task-domain tools the assistant can call.
package tasktools

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

// Tool names.
const (
	NameListTasks      = "list_tasks"
	NameCreateTask     = "create_task"
	NameCompleteTask   = "complete_task"
	NameGetTaskSummary = "get_task_summary"
	NameListUsers      = "list_users"
	NameSearchTasks    = "search_tasks"
)

// DefaultProject is the project tasks land in when none is configured.
const DefaultProject = "Office Tasks"

// Store is the subset of the data store the tools need.
type Store interface {
	ListTasks(ctx context.Context, f store.TaskFilter) ([]*store.TaskView, error)
	GetTask(ctx context.Context, id string) (*store.TaskView, error)
	FindTaskByTitle(ctx context.Context, fragment string) (*store.TaskView, error)
	CreateTask(ctx context.Context, t *store.Task) error
	MarkTaskCompleted(ctx context.Context, id string) (bool, error)
	Summarize(ctx context.Context, userID string, recent int) (*store.TaskSummary, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	FindActiveUsersByName(ctx context.Context, fragment string) ([]*store.User, error)
	ListActiveUsers(ctx context.Context) ([]*store.User, error)
	EnsureProject(ctx context.Context, name string) (*store.Project, error)
}

// Register adds all six task tools to r.
func Register(r *tool.Registry, s Store, defaultProject string, logger zerolog.Logger) {
	if defaultProject == "" {
		defaultProject = DefaultProject
	}
	logger = logger.With().Str("component", "tasktools").Logger()
	r.Register(&ListTasks{store: s})
	r.Register(&CreateTask{store: s, defaultProject: defaultProject, logger: logger})
	r.Register(&CompleteTask{store: s, logger: logger})
	r.Register(&GetTaskSummary{store: s})
	r.Register(&ListUsers{store: s})
	r.Register(&SearchTasks{store: s})
}

// taskOutput is the JSON shape of a task handed to the model.
type taskOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	Project     string `json:"project,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func statusLabel(completed bool) string {
	if completed {
		return "Completed"
	}
	return "Pending"
}

func toOutput(v *store.TaskView) taskOutput {
	return taskOutput{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Status:      statusLabel(v.Completed),
		Priority:    v.Priority,
		DueDate:     v.DueDate,
		AssignedTo:  v.AssigneeName,
		CreatedBy:   v.CreatorName,
		Project:     v.ProjectName,
		CreatedAt:   time.UnixMilli(v.CreatedAt).UTC().Format(time.RFC3339),
	}
}

func toOutputs(views []*store.TaskView) []taskOutput {
	out := make([]taskOutput, 0, len(views))
	for _, v := range views {
		out = append(out, toOutput(v))
	}
	return out
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
