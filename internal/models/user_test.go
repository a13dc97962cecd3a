package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleCustomer.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleCourier.Valid())
	assert.False(t, Role("superadmin").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapManageCatalog))
	assert.True(t, RoleAdmin.Can(CapViewReports))
	assert.False(t, RoleAdmin.Can(CapDeliverOrders))

	assert.True(t, RoleCourier.Can(CapDeliverOrders))
	assert.False(t, RoleCourier.Can(CapManageOrders))

	assert.False(t, RoleCustomer.Can(CapManageCatalog))
	assert.False(t, RoleCustomer.Can(CapManageUsers))
}

func TestUserLocked(t *testing.T) {
	now := time.Now()
	user := &User{}
	assert.False(t, user.Locked(now))

	until := now.Add(time.Minute)
	user.LockUntil = &until
	assert.True(t, user.Locked(now))

	past := now.Add(-time.Minute)
	user.LockUntil = &past
	assert.False(t, user.Locked(now))
}
