package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-hierarchy-api/internal/database"
	"github.com/yukikurage/task-hierarchy-api/internal/dto"
	"github.com/yukikurage/task-hierarchy-api/internal/llm"
	"github.com/yukikurage/task-hierarchy-api/internal/repository"
	"github.com/yukikurage/task-hierarchy-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedBackend struct {
	reply string
}

func (b fixedBackend) Name() string { return "fixed" }

func (b fixedBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	return b.reply, nil
}

type client struct {
	t       *testing.T
	engine  *gin.Engine
	cookies []*http.Cookie
}

func (c *client) do(method, url string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return w
}

func newTestEngine(t *testing.T, reply string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.MigrateDatabase(db))

	gateway := llm.NewGateway(fixedBackend{reply: reply})

	return New(Options{
		AuthService:  services.NewAuthService(repository.NewUserRepository(db)),
		TaskService:  services.NewTaskService(repository.NewTaskRepository(db), gateway),
		SessionStore: cookie.NewStore([]byte("test-secret")),
		CORSOrigins:  []string{"http://localhost:3000"},
		LLMTimeout:   time.Second,
	})
}

func TestRouter_SplitFlow(t *testing.T) {
	engine := newTestEngine(t, "```json\n[{\"title\":\"A\",\"description\":\"a\"},{\"title\":\"B\",\"description\":\"b\"}]\n```")
	c := &client{t: t, engine: engine}

	w := c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "P"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "owner@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "P", "description": "Project"})
	require.Equal(t, http.StatusCreated, w.Code)
	var project dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "C1", "parent_id": project.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(http.MethodPost, "/api/tasks/"+project.ID+"/split", map[string]int{"count": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	var split dto.SplitTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &split))
	assert.Len(t, split.Subtasks, 2)

	w = c.do(http.MethodGet, "/api/tasks/"+project.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail dto.TaskDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Subtasks, 3)
	assert.Equal(t, "C1", detail.Subtasks[0].Title)

	w = c.do(http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var projects struct {
		Projects []dto.ProjectDTO `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, int64(3), projects.Projects[0].SubtaskCount)

	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_MalformedLLMReply(t *testing.T) {
	engine := newTestEngine(t, "Sure! Here are some subtasks.")
	c := &client{t: t, engine: engine}

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "owner@example.com",
		"password": "supersecret",
	}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "supersecret",
	}).Code)

	w := c.do(http.MethodPost, "/api/tasks", map[string]string{"title": "P"})
	require.Equal(t, http.StatusCreated, w.Code)
	var project dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = c.do(http.MethodPost, "/api/tasks/"+project.ID+"/split", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_Health(t *testing.T) {
	engine := newTestEngine(t, "[]")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
