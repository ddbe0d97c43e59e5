package models

import (
	"testing"
	"time"
)

func TestChildAgeValid(t *testing.T) {
	t.Parallel()

	for _, age := range []int{MinChildAge, 8, MaxChildAge} {
		c := Child{Age: age}
		if !c.AgeValid() {
			t.Errorf("age %d should be valid", age)
		}
	}
	for _, age := range []int{0, MinChildAge - 1, MaxChildAge + 1} {
		c := Child{Age: age}
		if c.AgeValid() {
			t.Errorf("age %d should be invalid", age)
		}
	}
}

func TestSessionIdleSince(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := ConversationSession{LastActivity: now.Add(-time.Hour)}
	if !s.IdleSince(now.Add(-30 * time.Minute)) {
		t.Error("session inactive for an hour is idle past a 30m cutoff")
	}
	if s.IdleSince(now.Add(-2 * time.Hour)) {
		t.Error("session active after the cutoff is not idle")
	}
}
