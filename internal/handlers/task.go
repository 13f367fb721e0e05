package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-hierarchy-api/internal/constants"
	"github.com/yukikurage/task-hierarchy-api/internal/dto"
	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
	"github.com/yukikurage/task-hierarchy-api/internal/middleware"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"github.com/yukikurage/task-hierarchy-api/internal/services"
	"github.com/yukikurage/task-hierarchy-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	llmTimeout  time.Duration
}

// NewTaskHandler creates a TaskHandler. llmTimeout bounds each split request.
func NewTaskHandler(taskService *services.TaskService, llmTimeout time.Duration) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		llmTimeout:  llmTimeout,
	}
}

// ListProjects returns the current user's top-level tasks
func (h *TaskHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	projects, err := h.taskService.ListProjects(c.Request.Context(), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": dto.ToProjectDTOs(projects)})
}

// CreateTask creates a project or, with parent_id, a subtask
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ParentID    string `json:"parent_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     userID,
		ParentID:    req.ParentID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a task with one page of its subtasks.
// The task has already been loaded by RequireTaskAccess.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	params, err := utils.GetPaginationParams(c)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	parent, subtasks, err := h.taskService.GetTaskWithSubtasks(c.Request.Context(), task.ID, task.OwnerID, params.Page, params.PageSize)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskDetailResponse{
		Task:     dto.ToTaskDTO(*parent),
		Subtasks: dto.ToTaskDTOs(subtasks),
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

// UpdateTask applies a partial update of title, description and parent_id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateTaskRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		ParentID    *string `json:"parent_id"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), task.ID, task.OwnerID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdateTaskStatus sets the status of a task
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTaskStatus(c.Request.Context(), task.ID, task.OwnerID, req.Status)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task; its subtasks become projects
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	deleted, err := h.taskService.DeleteTask(c.Request.Context(), task.ID, task.OwnerID)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	if !deleted {
		apierrors.NotFound(c, "Task not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// SplitTask asks the LLM for new subtasks of a task
func (h *TaskHandler) SplitTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type SplitTaskRequest struct {
		Count *int `json:"count"`
	}

	var req SplitTaskRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}
	count := constants.DefaultSplitCount
	if req.Count != nil {
		count = *req.Count
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.llmTimeout)
	defer cancel()

	subtasks, err := h.taskService.SplitTask(ctx, &task, count)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SplitTaskResponse{Subtasks: dto.ToTaskDTOs(subtasks)})
}

func respondTaskError(c *gin.Context, err error) {
	if apierrors.RespondWithDomainError(c, err) {
		return
	}

	var splitErr *services.SplitFailedError
	switch {
	case errors.As(err, &splitErr):
		log.Printf("split failed: %v", err)
		apierrors.BadGateway(c, "Failed to generate subtasks")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		log.Printf("task request failed: %v", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
