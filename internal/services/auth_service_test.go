package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-hierarchy-api/internal/database"
	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
	"github.com/yukikurage/task-hierarchy-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	return NewAuthService(repository.NewUserRepository(db))
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	service := newTestAuthService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{
		Email:       " Ada@Example.com ",
		DisplayName: "Ada",
		Password:    "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "supersecret", user.PasswordHash)

	loggedIn, err := service.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, err = service.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	found, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", found.DisplayName)

	_, err = service.GetUser(ctx, user.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	service := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "not-an-email", Password: "supersecret"})
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	_, err = service.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "short"})
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	user, err := service.Register(ctx, RegisterInput{Email: "grace@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "grace", user.DisplayName)

	_, err = service.Register(ctx, RegisterInput{Email: "grace@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
