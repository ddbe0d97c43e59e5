package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/request"
	"github.com/kidchat/kidchat-api/internal/services/auth"
)

// Auth creates authentication middleware that validates bearer tokens and
// attaches the authenticated parent to the request context.
func Auth(tokens *auth.TokenService, parents *database.ParentRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			parentID, err := tokens.ParseAccessToken(parts[1])
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			parent, err := parents.GetByID(ctx, parentID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
					// Valid signature but the account is gone.
					respondError(w, http.StatusUnauthorized, "Account not found")
					return
				}
				log.Printf("Database error while fetching parent: %v", err)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			ctx = request.WithParent(ctx, parent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
