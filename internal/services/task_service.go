package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-hierarchy-api/internal/constants"
	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
	"github.com/yukikurage/task-hierarchy-api/internal/llm"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"github.com/yukikurage/task-hierarchy-api/internal/repository"
)

var ErrAIServiceNotConfigured = errors.New("AI service is not configured")

// Decomposer proposes subtasks for a prompt. *llm.Gateway implements it.
type Decomposer interface {
	Decompose(ctx context.Context, prompt string) ([]llm.Subtask, error)
}

// SplitFailedError wraps a gateway failure during SplitTask.
type SplitFailedError struct {
	TaskID string
	Err    error
}

func (e *SplitFailedError) Error() string {
	return fmt.Sprintf("failed to split task %s: %v", e.TaskID, e.Err)
}

func (e *SplitFailedError) Unwrap() error {
	return e.Err
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	decomposer Decomposer
}

// NewTaskService creates a new TaskService. decomposer may be nil, in which
// case SplitTask returns ErrAIServiceNotConfigured.
func NewTaskService(taskRepo repository.TaskRepository, decomposer Decomposer) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		decomposer: decomposer,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	OwnerID     uint64
	// ParentID defaults to the root sentinel
	ParentID string
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title       *string
	Description *string
	ParentID    *string
}

// ProjectSummary is a top-level task annotated with its direct child count
type ProjectSummary struct {
	models.Task
	SubtaskCount int64
}

// CreateTask creates a new task under the given parent
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apierrors.NewValidationError("title", "title is required")
	}

	parentID := input.ParentID
	if parentID == "" {
		parentID = models.RootTaskID
	}
	if !models.IsRootTaskID(parentID) {
		if _, err := s.findOwned(ctx, parentID, input.OwnerID, "parent task"); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      models.TaskStatusCreated,
		OwnerID:     input.OwnerID,
		ParentID:    parentID,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTask returns a task owned by ownerID
func (s *TaskService) GetTask(ctx context.Context, id string, ownerID uint64) (*models.Task, error) {
	if models.IsRootTaskID(id) {
		return nil, apierrors.NewValidationError("id", "the root sentinel is not a task")
	}
	return s.findOwned(ctx, id, ownerID, "task")
}

// GetTaskWithSubtasks returns a task and one page of its direct children
func (s *TaskService) GetTaskWithSubtasks(ctx context.Context, id string, ownerID uint64, page, pageSize int) (*models.Task, []models.Task, error) {
	task, err := s.GetTask(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	subtasks, err := s.taskRepo.ListChildren(ctx, ownerID, task.ID, page, pageSize)
	if err != nil {
		if isDomainError(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to list subtasks: %w", err)
	}

	return task, subtasks, nil
}

// ListProjects returns the owner's top-level tasks with their subtask counts
func (s *TaskService) ListProjects(ctx context.Context, ownerID uint64) ([]ProjectSummary, error) {
	projects, err := s.taskRepo.ListTopLevel(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	counts, err := s.taskRepo.CountChildrenByParent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count subtasks: %w", err)
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, ProjectSummary{Task: p, SubtaskCount: counts[p.ID]})
	}
	return summaries, nil
}

// UpdateTask applies a partial update of title, description and parent
func (s *TaskService) UpdateTask(ctx context.Context, id string, ownerID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if input.ParentID != nil && strings.TrimSpace(*input.ParentID) == "" {
		root := models.RootTaskID
		input.ParentID = &root
	}

	updated, err := s.taskRepo.Update(ctx, task, repository.TaskFields{
		Title:       input.Title,
		Description: input.Description,
		ParentID:    input.ParentID,
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierrors.NewNotFoundError("task", id)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

// UpdateTaskStatus explicitly sets the status of a task
func (s *TaskService) UpdateTaskStatus(ctx context.Context, id string, ownerID uint64, status models.TaskStatus) (*models.Task, error) {
	task, err := s.GetTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	updated, err := s.taskRepo.UpdateStatus(ctx, task, status)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return updated, nil
}

// DeleteTask deletes a task; its children become projects
func (s *TaskService) DeleteTask(ctx context.Context, id string, ownerID uint64) (bool, error) {
	if models.IsRootTaskID(id) {
		return false, nil
	}
	deleted, err := s.taskRepo.Delete(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return deleted, nil
}

// SplitTask asks the decomposer for up to numSubtasks new children of parent
// and persists the usable ones. Existing children are sent along as context
// and left untouched.
//
// No lock is held between reading the existing children and inserting the
// new ones, so two concurrent splits of one parent may both add children.
func (s *TaskService) SplitTask(ctx context.Context, parent *models.Task, numSubtasks int) ([]models.Task, error) {
	if numSubtasks < constants.MinSplitCount || numSubtasks > constants.MaxSplitCount {
		return nil, apierrors.NewValidationError("count",
			fmt.Sprintf("count must be between %d and %d", constants.MinSplitCount, constants.MaxSplitCount))
	}
	if s.decomposer == nil {
		return nil, ErrAIServiceNotConfigured
	}

	children, err := s.taskRepo.FindChildren(ctx, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subtasks: %w", err)
	}

	existing := make([]llm.Subtask, 0, len(children))
	for _, child := range children {
		existing = append(existing, llm.Subtask{Title: child.Title, Description: child.Description})
	}

	prompt := llm.BuildSplitPrompt(parent.Title, parent.Description, existing, numSubtasks)
	proposals, err := s.decomposer.Decompose(ctx, prompt)
	if err != nil {
		return nil, &SplitFailedError{TaskID: parent.ID, Err: err}
	}

	created := make([]models.Task, 0, len(proposals))
	batchStart := time.Now()
	for _, proposal := range proposals {
		if len(created) == numSubtasks {
			break
		}
		title := strings.TrimSpace(proposal.Title)
		description := strings.TrimSpace(proposal.Description)
		if title == "" || description == "" {
			continue
		}

		// strictly increasing within the batch so listings keep the reply order
		createdAt := batchStart.Add(time.Duration(len(created)) * time.Microsecond)
		task := &models.Task{
			Title:       title,
			Description: description,
			Status:      models.TaskStatusCreated,
			OwnerID:     parent.OwnerID,
			ParentID:    parent.ID,
			CreatedAt:   createdAt,
		}
		if err := s.taskRepo.Create(ctx, task); err != nil {
			return created, fmt.Errorf("failed to create subtask: %w", err)
		}
		created = append(created, *task)
	}

	return created, nil
}

func (s *TaskService) findOwned(ctx context.Context, id string, ownerID uint64, resource string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierrors.NewNotFoundError(resource, id)
		}
		return nil, fmt.Errorf("failed to find %s: %w", resource, err)
	}
	return task, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, apierrors.ErrValidation) || errors.Is(err, apierrors.ErrNotFound)
}
