package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/tool"
)

// systemPrompt seeds every conversation with the caller's identity and the
// tool catalogue.
func systemPrompt(caller tool.Caller, now time.Time, defaultProject string, tools []llm.ToolSchema) string {
	var b strings.Builder
	b.WriteString("You are the assistant built into Phoneme Workspace, a task management app for a small office team.\n")
	b.WriteString("Help the user view, create, complete and search tasks by calling the available tools. ")
	b.WriteString("Always use a tool to read or change tasks instead of guessing. ")
	b.WriteString("When a tool returns an error, explain the problem plainly and suggest what the user can do.\n\n")

	fmt.Fprintf(&b, "Current user: %s <%s> (id %s, role %s)\n", caller.Name, caller.Email, caller.ID, caller.Role)
	fmt.Fprintf(&b, "Today's date: %s\n", now.Format("Monday, 2006-01-02"))
	fmt.Fprintf(&b, "New tasks are filed under the %q project.\n", defaultProject)
	b.WriteString("\"My tasks\" means tasks assigned to or created by the current user.\n\n")

	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nKeep answers short and friendly. Format lists with one task per line.")
	return b.String()
}
