package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
)

// SessionService serializes session attachment per child so that two
// concurrent messages from the same child never race two active sessions
// into existence. The repository holds the row lock; the mutex keeps the
// close-then-create sequence atomic within this process.
type SessionService struct {
	sessions    database.SessionRepositoryInterface
	idleTimeout time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*childLock
}

type childLock struct {
	sync.Mutex
	refs int
}

// NewSessionService creates a new session service
func NewSessionService(sessions database.SessionRepositoryInterface, idleTimeout time.Duration) *SessionService {
	return &SessionService{
		sessions:    sessions,
		idleTimeout: idleTimeout,
		locks:       make(map[uuid.UUID]*childLock),
	}
}

func (s *SessionService) acquire(childID uuid.UUID) *childLock {
	s.mu.Lock()
	l, ok := s.locks[childID]
	if !ok {
		l = &childLock{}
		s.locks[childID] = l
	}
	l.refs++
	s.mu.Unlock()
	l.Lock()
	return l
}

func (s *SessionService) release(childID uuid.UUID, l *childLock) {
	l.Unlock()
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, childID)
	}
	s.mu.Unlock()
}

// Attach returns the child's active session, rotating an idle one first.
func (s *SessionService) Attach(ctx context.Context, childID uuid.UUID) (*models.ConversationSession, error) {
	l := s.acquire(childID)
	defer s.release(childID, l)

	session, err := s.sessions.GetOrCreateActive(ctx, childID, s.idleTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to attach session: %w", err)
	}
	return session, nil
}

// Append records a turn on the session and bumps its activity clock.
func (s *SessionService) Append(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string, flagged bool) (*models.SessionMessage, error) {
	return s.sessions.AppendMessage(ctx, sessionID, role, content, flagged)
}

// Recent returns up to limit most recent turns in chronological order.
func (s *SessionService) Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error) {
	return s.sessions.RecentMessages(ctx, sessionID, limit)
}

// Get looks up a session by ID, active or not.
func (s *SessionService) Get(ctx context.Context, sessionID uuid.UUID) (*models.ConversationSession, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// End closes the session explicitly.
func (s *SessionService) End(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.End(ctx, sessionID)
}
