package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-hierarchy-api/internal/constants"
	"github.com/yukikurage/task-hierarchy-api/internal/handlers"
	"github.com/yukikurage/task-hierarchy-api/internal/middleware"
	"github.com/yukikurage/task-hierarchy-api/internal/services"
)

// Options holds everything the HTTP surface needs.
type Options struct {
	AuthService  *services.AuthService
	TaskService  *services.TaskService
	SessionStore sessions.Store
	CORSOrigins  []string
	LLMTimeout   time.Duration
}

// New builds the gin engine with all routes registered.
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))

	authHandler := handlers.NewAuthHandler(opts.AuthService)
	taskHandler := handlers.NewTaskHandler(opts.TaskService, opts.LLMTimeout)
	taskAccess := middleware.RequireTaskAccess(opts.TaskService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Hierarchy API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		api.GET("/projects", middleware.RequireAuth(), taskHandler.ListProjects)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskAccess, taskHandler.GetTask)
			tasks.PATCH("/:id", taskAccess, taskHandler.UpdateTask)
			tasks.PATCH("/:id/status", taskAccess, taskHandler.UpdateTaskStatus)
			tasks.DELETE("/:id", taskAccess, taskHandler.DeleteTask)
			tasks.POST("/:id/split", taskAccess, taskHandler.SplitTask)
		}
	}

	return r
}
