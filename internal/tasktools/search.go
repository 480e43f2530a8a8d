package tasktools

import (
	"context"
	"fmt"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tool"
)

const searchLimit = 10

// SearchTasks finds tasks whose title or description contains a query.
type SearchTasks struct {
	store Store
}

func (t *SearchTasks) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        NameSearchTasks,
		Description: fmt.Sprintf("Search tasks by text in the title or description (case-insensitive). Returns up to %d tasks, newest first.", searchLimit),
		InputSchema: tool.MustSchema(objectSchema(map[string]interface{}{
			"query": map[string]string{
				"type":        "string",
				"description": "Text to look for",
			},
		}, "query")),
	}
}

func (t *SearchTasks) Execute(ctx context.Context, call tool.Call) (tool.Result, error) {
	query := call.Args().String("query")
	tasks, err := t.store.ListTasks(ctx, store.TaskFilter{Text: query, Limit: searchLimit})
	if err != nil {
		return tool.Result{}, fmt.Errorf("search_tasks: %w", err)
	}
	return tool.OK(map[string]interface{}{
		"query": query,
		"count": len(tasks),
		"tasks": toOutputs(tasks),
	}), nil
}
