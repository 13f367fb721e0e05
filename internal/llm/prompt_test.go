package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSplitPrompt_ListsExistingSubtasks(t *testing.T) {
	existing := []Subtask{
		{Title: "Book venue", Description: "Find a hall for 50 people"},
		{Title: "Send invites", Description: "Email the guest list"},
	}

	prompt := BuildSplitPrompt("Plan party", "Birthday party in May", existing, 3)

	assert.Contains(t, prompt, "Title: Plan party")
	assert.Contains(t, prompt, "Description: Birthday party in May")
	assert.Contains(t, prompt, "- Book venue: Find a hall for 50 people")
	assert.Contains(t, prompt, "- Send invites: Email the guest list")
	assert.Contains(t, prompt, "do not repeat")
	assert.Contains(t, prompt, "up to 3 new subtasks")
	assert.NotContains(t, prompt, "(none)")
}

func TestBuildSplitPrompt_NoExistingSubtasks(t *testing.T) {
	prompt := BuildSplitPrompt("Write report", "", nil, 2)

	assert.Contains(t, prompt, "- (none)")
	assert.Contains(t, prompt, "up to 2 new subtasks")
	assert.True(t, strings.HasSuffix(prompt, "no markdown formatting."))
}

func TestBuildSplitPrompt_Deterministic(t *testing.T) {
	existing := []Subtask{{Title: "A", Description: "a"}}

	first := BuildSplitPrompt("T", "D", existing, 5)
	second := BuildSplitPrompt("T", "D", existing, 5)

	assert.Equal(t, first, second)
}
