package middleware

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/task-hierarchy-api/internal/constants"
	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
)

// TaskFinder loads a task owned by a user. *services.TaskService implements it.
type TaskFinder interface {
	GetTask(ctx context.Context, id string, ownerID uint64) (*models.Task, error)
}

// RequireTaskAccess loads the task named by the :id parameter for the current
// user. Tasks of other users are reported as not found.
func RequireTaskAccess(finder TaskFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}
		if taskID == uuid.Nil {
			apierrors.BadRequest(c, "The root task cannot be addressed")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := finder.GetTask(c.Request.Context(), taskID.String(), userID)
		if err != nil {
			if !apierrors.RespondWithDomainError(c, err) {
				log.Printf("failed to load task %s: %v", taskID, err)
				apierrors.InternalError(c, "Failed to load task")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := value.(models.Task)
	return task, ok
}
