package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/models"
)

// racySessionRepo flags overlapping GetOrCreateActive calls for the same
// child.
type racySessionRepo struct {
	*mockSessionRepo
	inFlight map[uuid.UUID]*int32
	raced    atomic.Bool
}

func (r *racySessionRepo) GetOrCreateActive(ctx context.Context, childID uuid.UUID, idleTimeout time.Duration) (*models.ConversationSession, error) {
	counter := r.inFlight[childID]
	if atomic.AddInt32(counter, 1) > 1 {
		r.raced.Store(true)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(counter, -1)
	return r.mockSessionRepo.GetOrCreateActive(ctx, childID, idleTimeout)
}

func TestSessionServiceSerializesPerChild(t *testing.T) {
	t.Parallel()

	childA := uuid.New()
	childB := uuid.New()
	repo := &racySessionRepo{
		mockSessionRepo: newMockSessionRepo(),
		inFlight: map[uuid.UUID]*int32{
			childA: new(int32),
			childB: new(int32),
		},
	}
	svc := NewSessionService(repo, 30*time.Minute)

	var wg sync.WaitGroup
	sessionIDs := make([]uuid.UUID, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			childID := childA
			if i%2 == 1 {
				childID = childB
			}
			session, err := svc.Attach(context.Background(), childID)
			if err != nil {
				t.Errorf("Attach failed: %v", err)
				return
			}
			sessionIDs[i] = session.ID
		}(i)
	}
	wg.Wait()

	if repo.raced.Load() {
		t.Error("concurrent attaches for the same child overlapped")
	}

	// Each child ended up with exactly one session.
	perChild := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, s := range repo.sessions {
		if perChild[s.ChildID] == nil {
			perChild[s.ChildID] = make(map[uuid.UUID]bool)
		}
		perChild[s.ChildID][s.ID] = true
	}
	for childID, ids := range perChild {
		if len(ids) != 1 {
			t.Errorf("child %s has %d sessions, want 1", childID, len(ids))
		}
	}
	for _, id := range sessionIDs {
		if id == uuid.Nil {
			t.Error("attach returned no session")
		}
	}
}

func TestSessionServiceLockCleanup(t *testing.T) {
	t.Parallel()

	svc := NewSessionService(newMockSessionRepo(), 30*time.Minute)
	childID := uuid.New()

	if _, err := svc.Attach(context.Background(), childID); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.locks) != 0 {
		t.Errorf("expected lock map to be empty after attach, got %d entries", len(svc.locks))
	}
}

func TestSessionServiceAttachError(t *testing.T) {
	t.Parallel()

	repo := newMockSessionRepo()
	repo.attachErr = errors.New("connection refused")
	svc := NewSessionService(repo, 30*time.Minute)

	if _, err := svc.Attach(context.Background(), uuid.New()); err == nil {
		t.Error("expected attach error")
	}
}

func TestSessionServiceEnd(t *testing.T) {
	t.Parallel()

	repo := newMockSessionRepo()
	svc := NewSessionService(repo, 30*time.Minute)
	childID := uuid.New()

	session, err := svc.Attach(context.Background(), childID)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := svc.End(context.Background(), session.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	// The next attach starts a fresh session.
	next, err := svc.Attach(context.Background(), childID)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if next.ID == session.ID {
		t.Error("ended session was reused")
	}
}
