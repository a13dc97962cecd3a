package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/models"
)

func userTestApp(t *testing.T, role models.Role) (*fiber.App, *gorm.DB, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	actor := seedUser(t, db, role)
	app := newTestApp(actor.ID, actor.Role)

	handler := NewUserHandler(db)
	app.Get("/users/me", handler.Me)
	app.Put("/users/me", handler.UpdateMe)
	app.Get("/users/count", handler.CountUsers)
	app.Put("/users/:id/disable", handler.DisableUser)
	app.Put("/users/:id/enable", handler.EnableUser)

	return app, db, actor
}

func TestCountUsersEnvelope(t *testing.T) {
	app, db, _ := userTestApp(t, models.RoleAdmin)
	seedUser(t, db, models.RoleCustomer)

	resp := doJSON(t, app, "GET", "/users/count", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["count"])
}

func TestUpdateMeRejectsTakenEmail(t *testing.T) {
	app, db, _ := userTestApp(t, models.RoleCustomer)
	other := seedUser(t, db, models.RoleCustomer)

	resp := doJSON(t, app, "PUT", "/users/me", fiber.Map{
		"email": other.Email,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestUpdateMeChangesProfile(t *testing.T) {
	app, db, actor := userTestApp(t, models.RoleCustomer)

	resp := doJSON(t, app, "PUT", "/users/me", fiber.Map{
		"name":  "New Name",
		"phone": "+33612345678",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", actor.ID).Error)
	assert.Equal(t, "New Name", stored.Name)
	assert.Equal(t, "+33612345678", stored.Phone)
}

func TestDisableOtherAdminForbidden(t *testing.T) {
	app, db, _ := userTestApp(t, models.RoleAdmin)
	otherAdmin := seedUser(t, db, models.RoleAdmin)

	resp := doJSON(t, app, "PUT", "/users/"+otherAdmin.ID.String()+"/disable", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", otherAdmin.ID).Error)
	assert.True(t, stored.IsActive)
}

func TestDisableAndEnableCustomer(t *testing.T) {
	app, db, _ := userTestApp(t, models.RoleAdmin)
	customer := seedUser(t, db, models.RoleCustomer)

	resp := doJSON(t, app, "PUT", "/users/"+customer.ID.String()+"/disable", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", customer.ID).Error)
	assert.False(t, stored.IsActive)

	resp = doJSON(t, app, "PUT", "/users/"+customer.ID.String()+"/enable", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&stored, "id = ?", customer.ID).Error)
	assert.True(t, stored.IsActive)
}
