package dto

import (
	"time"

	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"github.com/yukikurage/task-hierarchy-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	ParentID    string            `json:"parent_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ProjectDTO represents a top-level task in list responses
type ProjectDTO struct {
	TaskDTO
	SubtaskCount int64 `json:"subtask_count"`
}

// TaskDetailResponse is a task together with one page of its subtasks
type TaskDetailResponse struct {
	Task     TaskDTO   `json:"task"`
	Subtasks []TaskDTO `json:"subtasks"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// SplitTaskResponse lists the subtasks created by a split
type SplitTaskResponse struct {
	Subtasks []TaskDTO `json:"subtasks"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		ParentID:    task.ParentID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDTOs converts a slice of tasks, never returning nil
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// ToProjectDTOs converts project summaries
func ToProjectDTOs(projects []services.ProjectSummary) []ProjectDTO {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ProjectDTO{
			TaskDTO:      ToTaskDTO(project.Task),
			SubtaskCount: project.SubtaskCount,
		}
	}
	return items
}
