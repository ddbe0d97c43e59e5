package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/kidchat/kidchat-api/internal/models"
)

type contextKey string

const parentContextKey contextKey = "parent"

// ParentContextKey returns the context key used for the parent. Exposed for tests that inject non-parent values.
func ParentContextKey() contextKey { return parentContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithParent returns a context with the parent attached.
func WithParent(ctx context.Context, parent *models.Parent) context.Context {
	return context.WithValue(ctx, parentContextKey, parent)
}

// ParentFromContext returns the parent from the request context, or nil if missing or wrong type.
func ParentFromContext(r *http.Request) *models.Parent {
	p, _ := r.Context().Value(parentContextKey).(*models.Parent)
	return p
}
