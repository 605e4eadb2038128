package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the privilege tier of a user.
type Role string

const (
	RoleGeneral  Role = "general"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
)

// Privilege levels; anything at LevelManager or above may use the admin screens.
const (
	LevelGeneral  = 0
	LevelManager  = 1
	LevelDirector = 2
)

var ErrInvalidRole = errors.New("invalid role")

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleGeneral, RoleManager, RoleDirector}

// Level returns the ordered privilege level, or -1 for an unknown role.
func (r Role) Level() int {
	switch r {
	case RoleGeneral:
		return LevelGeneral
	case RoleManager:
		return LevelManager
	case RoleDirector:
		return LevelDirector
	default:
		return -1
	}
}

func (r Role) Valid() bool { return r.Level() >= 0 }

// Label returns the display name used on the admin screens.
func (r Role) Label() string {
	switch r {
	case RoleGeneral:
		return "一般"
	case RoleManager:
		return "管理者"
	case RoleDirector:
		return "責任者"
	default:
		return string(r)
	}
}

// ParseRole parses a form value. An empty value means general.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleGeneral, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}
