package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff member allowed to sign in.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed in JSON
	Role      Role      `gorm:"size:20;not null;index" json:"role"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
}

// BeforeSave rejects unknown roles.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// IsAdmin reports whether the user may use the admin screens (manager or director).
func (u *User) IsAdmin() bool { return u.Role.Level() >= LevelManager }

// IsManager is true for managers and directors.
func (u *User) IsManager() bool { return u.Role.Level() >= LevelManager }

func (u *User) IsDirector() bool { return u.Role == RoleDirector }

// RoleLabel is exposed for templates.
func (u *User) RoleLabel() string { return u.Role.Label() }
