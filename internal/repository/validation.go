package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
)

// parentLookup returns the parent id of the task with the given id.
type parentLookup func(ctx context.Context, id string) (string, error)

func validateNewTask(task *models.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return apierrors.NewValidationError("title", "title is required")
	}
	if task.OwnerID == 0 {
		return apierrors.NewValidationError("owner_id", "owner is required")
	}
	if task.ParentID == "" {
		task.ParentID = models.RootTaskID
	}
	if task.Status == "" {
		task.Status = models.TaskStatusCreated
	}
	return validateStatus(task.Status)
}

func validateStatus(status models.TaskStatus) error {
	if !status.Valid() {
		return apierrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return nil
}

func validatePage(page, pageSize int) error {
	if page < 1 {
		return apierrors.NewValidationError("page", "page must be at least 1")
	}
	if pageSize < 1 {
		return apierrors.NewValidationError("page_size", "page_size must be at least 1")
	}
	return nil
}

// applyFields copies the provided fields onto task after validating them.
// A parent change is checked with ensureValidParent before anything is applied.
func applyFields(ctx context.Context, task *models.Task, fields TaskFields, parentOf parentLookup) error {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return apierrors.NewValidationError("title", "title cannot be empty")
	}
	if fields.ParentID != nil {
		if err := ensureValidParent(ctx, task.ID, *fields.ParentID, parentOf); err != nil {
			return err
		}
	}

	if fields.Title != nil {
		task.Title = strings.TrimSpace(*fields.Title)
	}
	if fields.Description != nil {
		task.Description = *fields.Description
	}
	if fields.ParentID != nil {
		task.ParentID = *fields.ParentID
	}
	return nil
}

// changedColumns maps the provided fields to the columns they write, taking
// the values from task after applyFields ran.
func changedColumns(task *models.Task, fields TaskFields) map[string]interface{} {
	columns := make(map[string]interface{}, 3)
	if fields.Title != nil {
		columns["title"] = task.Title
	}
	if fields.Description != nil {
		columns["description"] = task.Description
	}
	if fields.ParentID != nil {
		columns["parent_id"] = task.ParentID
	}
	return columns
}

// ensureValidParent verifies that parentID may become the parent of taskID.
// The parent has to exist and must be neither the task itself nor one of
// its descendants.
func ensureValidParent(ctx context.Context, taskID, parentID string, parentOf parentLookup) error {
	if models.IsRootTaskID(parentID) {
		return nil
	}
	if parentID == taskID {
		return apierrors.NewValidationError("parent_id", "a task cannot be its own parent")
	}

	current := parentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		next, err := parentOf(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) && depth == 0 {
				return apierrors.NewNotFoundError("parent task", parentID)
			}
			return fmt.Errorf("failed to resolve ancestor %s: %w", current, err)
		}
		if next == taskID {
			return apierrors.NewValidationError("parent_id", "a task cannot be moved under one of its own subtasks")
		}
		if models.IsRootTaskID(next) {
			return nil
		}
		current = next
	}

	return fmt.Errorf("task hierarchy exceeds %d levels", maxTreeDepth)
}
