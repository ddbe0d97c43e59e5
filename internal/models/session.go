package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who produced a conversation turn
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ConversationSession is a bounded-duration conversational context window.
// At most one active session exists per child at any instant.
type ConversationSession struct {
	ID           uuid.UUID  `json:"id"`
	ChildID      uuid.UUID  `json:"child_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	MessageCount int        `json:"message_count"`
	LastActivity time.Time  `json:"last_activity"`
}

// IdleSince reports whether the session has seen no activity since the cutoff.
func (s *ConversationSession) IdleSince(cutoff time.Time) bool {
	return s.LastActivity.Before(cutoff)
}

// SessionMessage is one turn in a session's rolling window. Append-only.
// Flagged marks turns that failed the content filter but were kept for
// conversational continuity.
type SessionMessage struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Flagged   bool        `json:"flagged"`
	CreatedAt time.Time   `json:"created_at"`
}

// Conversation is the long-term audit log header, distinct from sessions.
// Retained indefinitely and never used for prompt context.
type Conversation struct {
	ID        uuid.UUID  `json:"id"`
	ChildID   uuid.UUID  `json:"child_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Message is one durable-history turn inside a Conversation.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	WasFiltered    bool        `json:"was_filtered"`
	CreatedAt      time.Time   `json:"created_at"`
}
