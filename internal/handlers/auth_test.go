package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/services/auth"
)

type mockParentRepo struct {
	byID    map[uuid.UUID]*models.Parent
	byEmail map[string]*models.Parent
}

func newMockParentRepo() *mockParentRepo {
	return &mockParentRepo{
		byID:    make(map[uuid.UUID]*models.Parent),
		byEmail: make(map[string]*models.Parent),
	}
}

func (m *mockParentRepo) add(email string, active bool) *models.Parent {
	parent := &models.Parent{
		ID:        uuid.New(),
		Email:     email,
		Name:      "Parent",
		Role:      models.ParentRoleParent,
		IsActive:  active,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.byID[parent.ID] = parent
	m.byEmail[parent.Email] = parent
	return parent
}

func (m *mockParentRepo) Create(ctx context.Context, parent *models.Parent) error {
	if _, ok := m.byEmail[parent.Email]; ok {
		return database.ErrDuplicate
	}
	m.byID[parent.ID] = parent
	m.byEmail[parent.Email] = parent
	return nil
}

func (m *mockParentRepo) GetByEmail(ctx context.Context, email string) (*models.Parent, error) {
	parent, ok := m.byEmail[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return parent, nil
}

func (m *mockParentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Parent, error) {
	parent, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return parent, nil
}

var _ database.ParentRepositoryInterface = (*mockParentRepo)(nil)

func postRefresh(t *testing.T, h *AuthHandler, refreshToken string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"refresh_token":` + mustJSON(t, refreshToken) + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Refresh(w, req)
	return w
}

func mustJSON(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestRefreshIssuesNewTokenPair(t *testing.T) {
	t.Parallel()

	parents := newMockParentRepo()
	parent := parents.add("parent@example.com", true)
	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	h := NewAuthHandler(parents, tokens)

	refresh, _, err := tokens.CreateRefreshToken(parent.ID)
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	w := postRefresh(t, h, refresh)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var envelope struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Error("success = false, want true")
	}

	gotID, err := tokens.ParseAccessToken(envelope.Data.AccessToken)
	if err != nil {
		t.Fatalf("issued access token does not parse: %v", err)
	}
	if gotID != parent.ID {
		t.Errorf("access token parent = %s, want %s", gotID, parent.ID)
	}
	if _, err := tokens.ParseRefreshToken(envelope.Data.RefreshToken); err != nil {
		t.Errorf("rotated refresh token does not parse: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	parents := newMockParentRepo()
	parent := parents.add("parent@example.com", true)
	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	h := NewAuthHandler(parents, tokens)

	access, _, err := tokens.CreateAccessToken(parent.ID, parent.Email, string(parent.Role))
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	if w := postRefresh(t, h, access); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRefreshRejectsInactiveParent(t *testing.T) {
	t.Parallel()

	parents := newMockParentRepo()
	parent := parents.add("parent@example.com", false)
	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	h := NewAuthHandler(parents, tokens)

	refresh, _, err := tokens.CreateRefreshToken(parent.ID)
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	if w := postRefresh(t, h, refresh); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRefreshRejectsUnknownParent(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenService("test-secret", 15*time.Minute, 30*24*time.Hour)
	h := NewAuthHandler(newMockParentRepo(), tokens)

	refresh, _, err := tokens.CreateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	if w := postRefresh(t, h, refresh); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
