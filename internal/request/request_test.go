package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kidchat/kidchat-api/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:   "remote addr only",
			remote: "10.0.0.1:1234",
			want:   "10.0.0.1:1234",
		},
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.5",
		},
		{
			name:    "x-forwarded-for chain uses first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 198.51.100.2"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.5",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.9",
		},
		{
			name: "x-forwarded-for wins over x-real-ip",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.5",
				"X-Real-IP":       "203.0.113.9",
			},
			remote: "10.0.0.1:1234",
			want:   "203.0.113.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParentFromContext(t *testing.T) {
	t.Parallel()

	parent := &models.Parent{ID: uuid.New(), Email: "parent@example.com"}

	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithParent(r.Context(), parent))

	got := ParentFromContext(r)
	if got == nil || got.ID != parent.ID {
		t.Errorf("expected parent %v, got %v", parent, got)
	}
}

func TestParentFromContext_Missing(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	if got := ParentFromContext(r); got != nil {
		t.Errorf("expected nil parent, got %v", got)
	}
}

func TestParentFromContext_WrongType(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(r.Context(), ParentContextKey(), "not-a-parent")
	if got := ParentFromContext(r.WithContext(ctx)); got != nil {
		t.Errorf("expected nil parent for wrong type, got %v", got)
	}
}
