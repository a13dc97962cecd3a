package handlers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/config"
	"github.com/example/pharmacart/internal/models"
)

func authTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		TokenExpires:     time.Hour,
		RefreshExpires:   24 * time.Hour,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fiberErr, ok := err.(*fiber.Error); ok {
				code = fiberErr.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "message": err.Error()})
		},
	})

	handler := NewAuthHandler(db, cfg)
	app.Post("/auth/register", handler.Register)
	app.Post("/auth/login", handler.Login)
	app.Post("/auth/refresh", handler.Refresh)
	app.Get("/auth/verify-email/:token", handler.VerifyEmail)
	app.Post("/auth/forgot-password", handler.ForgotPassword)
	app.Post("/auth/reset-password", handler.ResetPassword)

	return app, db
}

func TestRegisterAndLogin(t *testing.T) {
	app, db := authTestApp(t)

	resp := doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.NotEmpty(t, body["verification_token"])

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NotEqual(t, "secret-password", user.PasswordHash)

	resp = doJSON(t, app, "POST", "/auth/login", fiber.Map{
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, _ := authTestApp(t)

	doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	resp := doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Other Alice",
		"email":    "alice@example.com",
		"password": "another-password",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	app, _ := authTestApp(t)

	resp := doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Mallory",
		"email":    "mallory@example.com",
		"password": "secret-password",
		"role":     "superadmin",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	app, db := authTestApp(t)

	doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})

	for i := 0; i < 5; i++ {
		resp := doJSON(t, app, "POST", "/auth/login", fiber.Map{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	assert.Equal(t, 5, user.LoginAttempts)
	require.NotNil(t, user.LockUntil)

	// Even the right password is rejected while locked.
	resp := doJSON(t, app, "POST", "/auth/login", fiber.Map{
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotNil(t, body["retry_after"])
}

func TestLoginSuccessResetsAttempts(t *testing.T) {
	app, db := authTestApp(t)

	doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})

	for i := 0; i < 3; i++ {
		doJSON(t, app, "POST", "/auth/login", fiber.Map{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
	}

	resp := doJSON(t, app, "POST", "/auth/login", fiber.Map{
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	assert.Zero(t, user.LoginAttempts)
	assert.Nil(t, user.LockUntil)
}

func TestVerifyEmail(t *testing.T) {
	app, db := authTestApp(t)

	resp := doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	body := decodeBody(t, resp)
	token := body["verification_token"].(string)

	resp = doJSON(t, app, "GET", "/auth/verify-email/"+token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "alice@example.com").Error)
	assert.True(t, user.IsVerified)
	assert.Empty(t, user.VerificationToken)
}

func TestPasswordResetFlow(t *testing.T) {
	app, _ := authTestApp(t)

	doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})

	resp := doJSON(t, app, "POST", "/auth/forgot-password", fiber.Map{
		"email": "alice@example.com",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token := body["token"].(string)

	resp = doJSON(t, app, "POST", "/auth/reset-password", fiber.Map{
		"token":        token,
		"new_password": "brand-new-password",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/auth/login", fiber.Map{
		"email":    "alice@example.com",
		"password": "brand-new-password",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/auth/login", fiber.Map{
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	app, _ := authTestApp(t)

	resp := doJSON(t, app, "POST", "/auth/register", fiber.Map{
		"name":     "Alice Martin",
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	body := decodeBody(t, resp)
	accessToken := body["token"].(string)
	refreshToken := body["refresh_token"].(string)

	resp = doJSON(t, app, "POST", "/auth/refresh", fiber.Map{
		"refresh_token": accessToken,
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/auth/refresh", fiber.Map{
		"refresh_token": refreshToken,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
