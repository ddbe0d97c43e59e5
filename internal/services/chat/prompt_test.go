package chat

import (
	"strings"
	"testing"

	"github.com/kidchat/kidchat-api/internal/models"
)

func TestComposeAgeBands(t *testing.T) {
	t.Parallel()

	composer := NewComposer(0)

	tests := []struct {
		name string
		age  int
		want string
	}{
		{name: "preschool", age: 4, want: "4-6 YEARS OLD"},
		{name: "top of preschool band", age: 6, want: "4-6 YEARS OLD"},
		{name: "middle band", age: 8, want: "7-9 YEARS OLD"},
		{name: "oldest band", age: 12, want: "10-12 YEARS OLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, _ := composer.Compose(tt.age, models.MemoryContext{}, nil, "hello")
			if !strings.Contains(prompt, tt.want) {
				t.Errorf("prompt for age %d missing %q", tt.age, tt.want)
			}
			if !strings.Contains(prompt, "Kiko") {
				t.Error("prompt missing persona")
			}
		})
	}
}

func TestComposeMemoryFacts(t *testing.T) {
	t.Parallel()

	composer := NewComposer(0)
	memory := models.MemoryContext{
		Version:        1,
		Name:           "Mia",
		FavoriteColor:  "purple",
		FavoriteAnimal: "dolphin",
		Interests:      []string{"soccer", "drawing"},
	}

	prompt, _ := composer.Compose(8, memory, nil, "hi")
	for _, want := range []string{"Name: Mia", "Favorite color: purple", "Favorite animal: dolphin", "soccer, drawing"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// No memory section when there is nothing to say.
	prompt, _ = composer.Compose(8, models.MemoryContext{Version: 1}, nil, "hi")
	if strings.Contains(prompt, "WHAT YOU KNOW ABOUT THIS CHILD") {
		t.Error("empty memory should not produce a facts section")
	}
}

func TestComposeTurns(t *testing.T) {
	t.Parallel()

	composer := NewComposer(0)
	recent := []*models.SessionMessage{
		{Role: models.MessageRoleUser, Content: "what is a volcano"},
		{Role: models.MessageRoleAssistant, Content: "A mountain that can erupt! 🌋"},
	}

	_, turns := composer.Compose(9, models.MemoryContext{}, recent, "are they dangerous")
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("history roles wrong: %s, %s", turns[0].Role, turns[1].Role)
	}
	last := turns[len(turns)-1]
	if last.Role != "user" || last.Content != "are they dangerous" {
		t.Errorf("newest message must be the last turn, got %+v", last)
	}
}

func TestComposeBudgetDropsOldestHistory(t *testing.T) {
	t.Parallel()

	// Budget only slightly above the persona size forces history out.
	composer := NewComposer(len(basePersona) + 300)
	recent := []*models.SessionMessage{
		{Role: models.MessageRoleUser, Content: strings.Repeat("a", 400)},
		{Role: models.MessageRoleAssistant, Content: strings.Repeat("b", 400)},
		{Role: models.MessageRoleUser, Content: "short"},
	}

	_, turns := composer.Compose(9, models.MemoryContext{}, recent, "newest question")
	if len(turns) == 4 {
		t.Fatal("expected history to be trimmed")
	}
	last := turns[len(turns)-1]
	if last.Content != "newest question" {
		t.Errorf("newest message must survive trimming, got %q", last.Content)
	}

	// First dropped turns are the oldest ones.
	for _, turn := range turns {
		if strings.HasPrefix(turn.Content, "aaaa") {
			t.Error("oldest turn should have been dropped first")
		}
	}
}
