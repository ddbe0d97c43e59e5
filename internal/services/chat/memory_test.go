package chat

import (
	"context"
	"reflect"
	"testing"

	"github.com/kidchat/kidchat-api/internal/models"
)

func TestRegexExtractor(t *testing.T) {
	t.Parallel()

	extractor := NewRegexExtractor()

	tests := []struct {
		name    string
		message string
		want    models.MemoryContext
	}{
		{
			name:    "name introduction",
			message: "hi! my name is lucas",
			want:    models.MemoryContext{Version: 1, Name: "Lucas"},
		},
		{
			name:    "age statement",
			message: "I'm 8 years old today",
			want:    models.MemoryContext{Version: 1, Age: 8},
		},
		{
			name:    "age out of range ignored",
			message: "I am 42 years old",
			want:    models.MemoryContext{Version: 1},
		},
		{
			name:    "favorite color",
			message: "my favorite color is purple",
			want:    models.MemoryContext{Version: 1, FavoriteColor: "purple"},
		},
		{
			name:    "british spelling",
			message: "my favourite colour is green",
			want:    models.MemoryContext{Version: 1, FavoriteColor: "green"},
		},
		{
			name:    "favorite animal with article",
			message: "my favorite animal is a dolphin",
			want:    models.MemoryContext{Version: 1, FavoriteAnimal: "dolphin"},
		},
		{
			name:    "interest",
			message: "i love playing soccer!",
			want:    models.MemoryContext{Version: 1, Interests: []string{"playing soccer"}},
		},
		{
			name:    "multiple facts",
			message: "my name is mia and I'm 6 years old. i like drawing.",
			want:    models.MemoryContext{Version: 1, Name: "Mia", Age: 6, Interests: []string{"drawing"}},
		},
		{
			name:    "capitalized i am reads as name",
			message: "hello, I am Lucas",
			want:    models.MemoryContext{Version: 1, Name: "Lucas"},
		},
		{
			name:    "lowercase i am is not a name",
			message: "i am hungry",
			want:    models.MemoryContext{Version: 1},
		},
		{
			name:    "i am with trailing words is not a name",
			message: "i am bored today",
			want:    models.MemoryContext{Version: 1},
		},
		{
			name:    "no facts",
			message: "what is the tallest mountain?",
			want:    models.MemoryContext{Version: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.message)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %+v, want %+v", tt.message, got, tt.want)
			}
		})
	}
}

func TestMemoryServiceMerge(t *testing.T) {
	t.Parallel()

	children := newMockChildRepo()
	child := children.addChild("Nina", 7)
	svc := NewMemoryService(children)

	merged, err := svc.Merge(context.Background(), child.ID, models.MemoryContext{Version: 1, Name: "Nina", FavoriteColor: "red"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Name != "Nina" || merged.FavoriteColor != "red" {
		t.Errorf("unexpected merge result: %+v", merged)
	}

	// A later merge only overwrites what it sets.
	merged, err = svc.Merge(context.Background(), child.ID, models.MemoryContext{Version: 1, FavoriteColor: "blue"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Name != "Nina" {
		t.Errorf("merge dropped name: %+v", merged)
	}
	if merged.FavoriteColor != "blue" {
		t.Errorf("merge did not overwrite color: %+v", merged)
	}

	if children.merges != 2 {
		t.Fatalf("expected 2 repository merges, got %d", children.merges)
	}

	// Empty updates never hit the store.
	if _, err := svc.Merge(context.Background(), child.ID, models.MemoryContext{Version: 1}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if children.merges != 2 {
		t.Errorf("empty merge should short-circuit, got %d repository merges", children.merges)
	}
}
