package llm

import (
	"fmt"
	"strings"
)

// BuildSplitPrompt renders the decomposition prompt for a task. The output
// depends only on its arguments.
func BuildSplitPrompt(title, description string, existing []Subtask, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Split the following task into at most %d additional subtasks, "+
		"taking its existing subtasks into account.\n", count)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Description: %s\n", description)

	b.WriteString("Existing subtasks (already present, do not repeat or alter them):\n")
	if len(existing) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, subtask := range existing {
		fmt.Fprintf(&b, "- %s: %s\n", subtask.Title, subtask.Description)
	}

	fmt.Fprintf(&b, "Return up to %d new subtasks as a JSON array where each element has this shape:\n", count)
	b.WriteString("[\n  {\n    \"title\": \"Subtask Title\",\n    \"description\": \"Subtask Description\"\n  }\n]\n")
	b.WriteString("Keep titles and descriptions clear and concise. " +
		"Reply with the JSON array only, with no commentary and no markdown formatting.")

	return b.String()
}
