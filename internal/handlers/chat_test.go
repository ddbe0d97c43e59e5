package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/request"
	"github.com/kidchat/kidchat-api/internal/services/chat"
)

type stubSessionRepo struct {
	sessions map[uuid.UUID]*models.ConversationSession
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[uuid.UUID]*models.ConversationSession)}
}

func (s *stubSessionRepo) addActive(childID uuid.UUID) *models.ConversationSession {
	session := &models.ConversationSession{
		ID:           uuid.New(),
		ChildID:      childID,
		StartedAt:    time.Now(),
		IsActive:     true,
		LastActivity: time.Now(),
	}
	s.sessions[session.ID] = session
	return session
}

func (s *stubSessionRepo) GetOrCreateActive(ctx context.Context, childID uuid.UUID, idleTimeout time.Duration) (*models.ConversationSession, error) {
	return s.addActive(childID), nil
}

func (s *stubSessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.ConversationSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return session, nil
}

func (s *stubSessionRepo) AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string, flagged bool) (*models.SessionMessage, error) {
	return &models.SessionMessage{ID: uuid.New(), SessionID: sessionID, Role: role, Content: content, Flagged: flagged, CreatedAt: time.Now()}, nil
}

func (s *stubSessionRepo) RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error) {
	return nil, nil
}

func (s *stubSessionRepo) End(ctx context.Context, sessionID uuid.UUID) error {
	session, ok := s.sessions[sessionID]
	if !ok || !session.IsActive {
		return database.ErrNotFound
	}
	session.IsActive = false
	return nil
}

func (s *stubSessionRepo) CloseIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubSessionRepo) PurgeMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubSessionRepo) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ database.SessionRepositoryInterface = (*stubSessionRepo)(nil)

type stubChildRepo struct {
	children map[uuid.UUID]*models.Child
}

func newStubChildRepo() *stubChildRepo {
	return &stubChildRepo{children: make(map[uuid.UUID]*models.Child)}
}

func (s *stubChildRepo) add(parentID uuid.UUID) *models.Child {
	child := &models.Child{
		ID:       uuid.New(),
		ParentID: parentID,
		Name:     "Sam",
		Age:      8,
		IsActive: true,
	}
	s.children[child.ID] = child
	return child
}

func (s *stubChildRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	child, ok := s.children[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return child, nil
}

func (s *stubChildRepo) GetMemoryContext(ctx context.Context, childID uuid.UUID) (models.MemoryContext, error) {
	return models.MemoryContext{Version: models.MemoryContextVersion}, nil
}

func (s *stubChildRepo) MergeMemoryContext(ctx context.Context, childID uuid.UUID, updates models.MemoryContext) (models.MemoryContext, error) {
	return updates, nil
}

var _ database.ChildRepositoryInterface = (*stubChildRepo)(nil)

func endSessionFixture(t *testing.T) (*stubSessionRepo, *stubChildRepo, *mux.Router) {
	t.Helper()
	sessions := newStubSessionRepo()
	children := newStubChildRepo()
	h := NewChatHandler(nil, chat.NewSessionService(sessions, 30*time.Minute), children)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return sessions, children, router
}

func deleteSession(router *mux.Router, parent *models.Parent, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID, nil)
	if parent != nil {
		req = req.WithContext(request.WithParent(req.Context(), parent))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEndSessionClosesActiveSession(t *testing.T) {
	t.Parallel()

	sessions, children, router := endSessionFixture(t)
	parent := &models.Parent{ID: uuid.New(), IsActive: true}
	child := children.add(parent.ID)
	session := sessions.addActive(child.ID)

	w := deleteSession(router, parent, session.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if sessions.sessions[session.ID].IsActive {
		t.Error("session still active after DELETE")
	}

	// Ending again is idempotent.
	if w := deleteSession(router, parent, session.ID.String()); w.Code != http.StatusOK {
		t.Errorf("repeat status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestEndSessionRejectsOtherParents(t *testing.T) {
	t.Parallel()

	sessions, children, router := endSessionFixture(t)
	owner := &models.Parent{ID: uuid.New(), IsActive: true}
	child := children.add(owner.ID)
	session := sessions.addActive(child.ID)

	stranger := &models.Parent{ID: uuid.New(), IsActive: true}
	w := deleteSession(router, stranger, session.ID.String())
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !sessions.sessions[session.ID].IsActive {
		t.Error("session was closed by a non-owning parent")
	}
}

func TestEndSessionUnknownSession(t *testing.T) {
	t.Parallel()

	_, _, router := endSessionFixture(t)
	parent := &models.Parent{ID: uuid.New(), IsActive: true}

	if w := deleteSession(router, parent, uuid.NewString()); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEndSessionInvalidID(t *testing.T) {
	t.Parallel()

	_, _, router := endSessionFixture(t)
	parent := &models.Parent{ID: uuid.New(), IsActive: true}

	if w := deleteSession(router, parent, "not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
