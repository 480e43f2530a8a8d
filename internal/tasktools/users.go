package tasktools

import (
	"context"
	"fmt"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/tool"
)

// ListUsers lists active workspace members.
type ListUsers struct {
	store Store
}

type userOutput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (t *ListUsers) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameListUsers,
		Description: "List active users who can be assigned tasks.",
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{})),
	}
}

func (t *ListUsers) Execute(ctx context.Context, _ tool.Call) (tool.Result, error) {
	users, err := t.store.ListActiveUsers(ctx)
	if err != nil {
		return tool.Result{}, fmt.Errorf("list_users: %w", err)
	}
	out := make([]userOutput, 0, len(users))
	for _, u := range users {
		out = append(out, userOutput{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	return tool.OK(map[string]interface{}{
		"count": len(out),
		"users": out,
	}), nil
}
