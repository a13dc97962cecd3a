package models

import (
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleCourier  Role = "courier"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleCourier:
		return true
	}
	return false
}

// Capability names an action a role may be allowed to perform.
type Capability string

const (
	CapManageCatalog    Capability = "manage_catalog"
	CapManageUsers      Capability = "manage_users"
	CapManageOrders     Capability = "manage_orders"
	CapManagePayments   Capability = "manage_payments"
	CapManagePromotions Capability = "manage_promotions"
	CapViewReports      Capability = "view_reports"
	CapDeliverOrders    Capability = "deliver_orders"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageCatalog:    true,
		CapManageUsers:      true,
		CapManageOrders:     true,
		CapManagePayments:   true,
		CapManagePromotions: true,
		CapViewReports:      true,
	},
	RoleCourier: {
		CapDeliverOrders: true,
	},
}

// Can reports whether the role grants the given capability.
func (r Role) Can(cap Capability) bool {
	return roleCapabilities[r][cap]
}

// User represents an account: customer, admin or courier.
type User struct {
	BaseModel
	Name                 string     `json:"name"`
	Email                string     `gorm:"uniqueIndex" json:"email"`
	Phone                string     `json:"phone"`
	PasswordHash         string     `json:"-"`
	Role                 Role       `gorm:"type:varchar(16);default:customer" json:"role"`
	IsVerified           bool       `json:"is_verified"`
	IsActive             bool       `gorm:"default:true" json:"is_active"`
	LoginAttempts        int        `json:"-"`
	LockUntil            *time.Time `json:"-"`
	VerificationToken    string     `gorm:"index" json:"-"`
	ResetPasswordToken   string     `gorm:"index" json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	Orders               []Order    `json:"orders,omitempty"`
}

// Locked reports whether the account is under a temporary login lockout.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
