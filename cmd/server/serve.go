package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"
	"github.com/yukikurage/task-hierarchy-api/internal/config"
	"github.com/yukikurage/task-hierarchy-api/internal/database"
	"github.com/yukikurage/task-hierarchy-api/internal/llm"
	"github.com/yukikurage/task-hierarchy-api/internal/repository"
	"github.com/yukikurage/task-hierarchy-api/internal/router"
	"github.com/yukikurage/task-hierarchy-api/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(commandContext(cmd))
	},
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)

	// Users always live in the SQL database
	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return err
	}

	var taskRepo repository.TaskRepository
	switch cfg.StoreBackend {
	case config.StoreBackendNeo4j:
		repo, closeDriver, err := openNeo4j(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDriver()
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create neo4j schema: %w", err)
		}
		taskRepo = repo
	default:
		taskRepo = repository.NewTaskRepository(database.GetDB())
	}
	userRepo := repository.NewUserRepository(database.GetDB())

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	// Initialize the LLM gateway; splitting is disabled without credentials
	var decomposer services.Decomposer
	backend, err := llm.NewBackend(ctx, cfg)
	switch {
	case err == nil:
		decomposer = llm.NewGateway(backend)
		log.Printf("LLM provider: %s", backend.Name())
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Printf("No API key for %s, task splitting is disabled", cfg.LLMProvider)
	default:
		return fmt.Errorf("failed to initialize LLM backend: %w", err)
	}

	r := router.New(router.Options{
		AuthService:  services.NewAuthService(userRepo),
		TaskService:  services.NewTaskService(taskRepo, decomposer),
		SessionStore: store,
		CORSOrigins:  cfg.CORSOrigins(),
		LLMTimeout:   cfg.LLMTimeout,
	})

	addr := ":" + cfg.ServerPort
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case config.SessionStoreCookie:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	default:
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		s, err := redisStore.NewStore(
			10,        // Redis pool size
			"tcp",     // network type
			redisAddr, // Redis address from config
			"",        // username (empty for default user)
			"",        // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	}

	isProduction := cfg.GinMode == gin.ReleaseMode
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func openNeo4j(ctx context.Context, cfg *config.Config) (*repository.Neo4jTaskRepository, func(), error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	log.Printf("Neo4j connection established (%s)", cfg.Neo4jURI)

	closeDriver := func() {
		if err := driver.Close(context.Background()); err != nil {
			log.Printf("failed to close neo4j driver: %v", err)
		}
	}
	return repository.NewNeo4jTaskRepository(driver, cfg.Neo4jDatabase), closeDriver, nil
}
