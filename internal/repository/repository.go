package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/task-hierarchy-api/internal/models"
)

// ErrNotFound is returned by every backend when a record does not exist or
// belongs to another owner.
var ErrNotFound = errors.New("record not found")

// maxTreeDepth bounds the ancestor walk used for cycle detection.
const maxTreeDepth = 1000

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create persists a new task, filling in its id and defaults
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task owned by ownerID
	FindByID(ctx context.Context, id string, ownerID uint64) (*models.Task, error)

	// Delete removes a task and promotes its children to projects
	Delete(ctx context.Context, id string, ownerID uint64) (bool, error)

	// ListTopLevel lists the owner's projects in creation order
	ListTopLevel(ctx context.Context, ownerID uint64) ([]models.Task, error)

	// ListChildren lists one page of a task's children in creation order
	ListChildren(ctx context.Context, ownerID uint64, parentID string, page, pageSize int) ([]models.Task, error)

	// FindChildren returns every direct child of a task
	FindChildren(ctx context.Context, parentID string) ([]models.Task, error)

	// CountChildren counts the direct children of a task
	CountChildren(ctx context.Context, parentID string) (int64, error)

	// CountChildrenByParent counts direct children for several parents at once
	CountChildrenByParent(ctx context.Context, parentIDs []string) (map[string]int64, error)

	// Update applies a partial update of title, description and parent
	Update(ctx context.Context, task *models.Task, fields TaskFields) (*models.Task, error)

	// UpdateStatus sets the status of a task
	UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) (*models.Task, error)
}

// TaskFields holds the mutable task fields. Nil means "leave unchanged".
type TaskFields struct {
	Title       *string
	Description *string
	ParentID    *string
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
