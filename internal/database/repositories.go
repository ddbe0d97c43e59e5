package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// SessionRepositoryInterface defines the session store contract consumed
// by the chat pipeline. The interface enables mock implementations in tests.
type SessionRepositoryInterface interface {
	GetOrCreateActive(ctx context.Context, childID uuid.UUID, idleTimeout time.Duration) (*models.ConversationSession, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (*models.ConversationSession, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string, flagged bool) (*models.SessionMessage, error)
	RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error)
	End(ctx context.Context, sessionID uuid.UUID) error
	CloseIdle(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeMessages(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// ParentRepositoryInterface defines the parent account operations used by
// the auth handler
type ParentRepositoryInterface interface {
	Create(ctx context.Context, parent *models.Parent) error
	GetByEmail(ctx context.Context, email string) (*models.Parent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Parent, error)
}

// ChildRepositoryInterface defines child profile and memory context operations
type ChildRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error)
	GetMemoryContext(ctx context.Context, childID uuid.UUID) (models.MemoryContext, error)
	MergeMemoryContext(ctx context.Context, childID uuid.UUID, updates models.MemoryContext) (models.MemoryContext, error)
}

// AlertRepositoryInterface defines parent alert operations
type AlertRepositoryInterface interface {
	Create(ctx context.Context, alert *models.ParentAlert) error
	ListUnread(ctx context.Context, parentID uuid.UUID) ([]*models.ParentAlert, error)
	ListAll(ctx context.Context, parentID uuid.UUID, limit int) ([]*models.ParentAlert, error)
	MarkRead(ctx context.Context, alertID, parentID uuid.UUID) error
	MarkAllRead(ctx context.Context, parentID uuid.UUID) (int64, error)
}

// HistoryRepositoryInterface defines the durable conversation log operations
type HistoryRepositoryInterface interface {
	AppendTurn(ctx context.Context, childID uuid.UUID, role models.MessageRole, content string, wasFiltered bool) error
}

// Ensure concrete types implement the interfaces
var (
	_ SessionRepositoryInterface = (*SessionRepository)(nil)
	_ ParentRepositoryInterface  = (*ParentRepository)(nil)
	_ ChildRepositoryInterface   = (*ChildRepository)(nil)
	_ AlertRepositoryInterface   = (*AlertRepository)(nil)
	_ HistoryRepositoryInterface = (*HistoryRepository)(nil)
)
