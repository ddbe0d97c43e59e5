package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinChildAge is the youngest supported child profile age
	MinChildAge = 4
	// MaxChildAge is the oldest supported child profile age
	MaxChildAge = 12
)

// Child represents a child profile owned by a parent account.
// Profiles are soft-deleted via IsActive; rows are only removed when the
// owning parent is deleted (cascade).
type Child struct {
	ID            uuid.UUID     `json:"id"`
	ParentID      uuid.UUID     `json:"parent_id"`
	Name          string        `json:"name"`
	Age           int           `json:"age"`
	Avatar        string        `json:"avatar"`
	MemoryContext MemoryContext `json:"memory_context"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AgeValid reports whether the profile age is within the supported range.
func (c *Child) AgeValid() bool {
	return c.Age >= MinChildAge && c.Age <= MaxChildAge
}
