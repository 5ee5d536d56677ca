package model

import "time"

// Role is the authorization level attached to an account.
type Role string

const (
	RolePatron Role = "patron"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether r is one of the recognized roles.
func ValidRole(r Role) bool {
	switch r {
	case RolePatron, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Account represents a provisioned identity. Accounts are created by an
// administrative step and are never deleted in normal operation; only
// PasswordHash and Role change afterwards.
type Account struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	PasswordHash string `gorm:"size:256;not null" json:"-"`
	Role         Role   `gorm:"size:32;not null" json:"role"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"-"`
}
