package models

import (
	"strings"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserSettings holds per-user preferences.
type UserSettings struct {
	Currency             string `gorm:"size:3" json:"currency"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// User represents an account holder.
type User struct {
	Base
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	Password    string       `gorm:"not null" json:"-"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Role        Role         `gorm:"not null;default:user" json:"role"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`
	Settings    UserSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`

	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
