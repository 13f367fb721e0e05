package constants

const (
	// ContextKeyUserID is used both as the session key and the gin context key
	ContextKeyUserID = "user_id"
	// ContextKeyTask holds the task loaded by RequireTaskAccess
	ContextKeyTask = "task"

	SessionCookieName = "task_session"

	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Task splitting
const (
	MinSplitCount     = 1
	MaxSplitCount     = 5
	DefaultSplitCount = 2
)
