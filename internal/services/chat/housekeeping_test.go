package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHousekeeperSweep(t *testing.T) {
	t.Parallel()

	repo := newMockSessionRepo()
	h := NewHousekeeper(repo, zap.NewNop(), time.Hour, 30*time.Minute, 7*24*time.Hour, 30*24*time.Hour)

	before := time.Now()
	h.Sweep(context.Background())
	after := time.Now()

	assertCutoff := func(name string, got time.Time, retention time.Duration) {
		t.Helper()
		if got.Before(before.Add(-retention)) || got.After(after.Add(-retention)) {
			t.Errorf("%s cutoff %v outside expected window", name, got)
		}
	}
	assertCutoff("close idle", repo.closeIdleCutoff, 30*time.Minute)
	assertCutoff("purge messages", repo.purgeMessagesCutoff, 7*24*time.Hour)
	assertCutoff("purge sessions", repo.purgeSessionsCutoff, 30*24*time.Hour)
}

func TestHousekeeperSweepContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	repo := newMockSessionRepo()
	repo.closeIdleErr = errors.New("deadlock detected")
	h := NewHousekeeper(repo, zap.NewNop(), time.Hour, 30*time.Minute, 7*24*time.Hour, 30*24*time.Hour)

	h.Sweep(context.Background())

	if repo.purgeMessagesCutoff.IsZero() || repo.purgeSessionsCutoff.IsZero() {
		t.Error("purge steps should run even when closing idle sessions fails")
	}
}

func TestHousekeeperStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	repo := newMockSessionRepo()
	h := NewHousekeeper(repo, zap.NewNop(), 10*time.Millisecond, 30*time.Minute, 7*24*time.Hour, 30*24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("housekeeper did not stop after cancel")
	}

	if repo.closeIdleCutoff.IsZero() {
		t.Error("expected at least one sweep before cancel")
	}
}
