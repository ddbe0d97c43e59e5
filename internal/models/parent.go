package models

import (
	"time"

	"github.com/google/uuid"
)

// ParentRole represents the role of a parent account
type ParentRole string

const (
	ParentRoleParent ParentRole = "parent"
	ParentRoleAdmin  ParentRole = "admin"
)

// Parent represents a guardian account that owns child profiles
type Parent struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         ParentRole `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
