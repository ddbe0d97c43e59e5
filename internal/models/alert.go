package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies why a parent alert was raised
type AlertType string

const (
	AlertTypeSensitiveQuestion AlertType = "sensitive_question"
	AlertTypeBlockedTopic      AlertType = "blocked_topic"
	AlertTypeBehavior          AlertType = "behavior"
	AlertTypeOther             AlertType = "other"
)

// AlertSeverity ranks how urgently a parent should look at an alert
type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "low"
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

// ParentAlert is a durable notification raised when a child's message or
// the assistant's reply is flagged. Alerts are never auto-deleted; the only
// mutation is the read acknowledgement.
type ParentAlert struct {
	ID                uuid.UUID     `json:"id"`
	ChildID           uuid.UUID     `json:"child_id"`
	ChildName         string        `json:"child_name,omitempty"`
	AlertType         AlertType     `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	Title             string        `json:"title"`
	Content           string        `json:"content"`
	OriginalMessage   string        `json:"original_message"`
	AssistantResponse string        `json:"assistant_response,omitempty"`
	WasRead           bool          `json:"was_read"`
	ReadAt            *time.Time    `json:"read_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}
