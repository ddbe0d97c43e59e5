package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/request"
	"github.com/kidchat/kidchat-api/internal/services/auth"
	"github.com/kidchat/kidchat-api/internal/validation"
)

// AuthHandler handles parent account registration and login
type AuthHandler struct {
	parentRepo database.ParentRepositoryInterface
	tokens     *auth.TokenService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(parentRepo database.ParentRepositoryInterface, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{parentRepo: parentRepo, tokens: tokens}
}

// RegisterRoutes registers auth routes on the given router
func (h *AuthHandler) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/register", h.Register).Methods("POST")
	public.HandleFunc("/login", h.Login).Methods("POST")
	public.HandleFunc("/refresh", h.Refresh).Methods("POST")
	protected.HandleFunc("/me", h.Me).Methods("GET")
}

// RegisterRequest represents a parent registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresAt    int64          `json:"expires_at"`
	Parent       *models.Parent `json:"parent"`
}

// Register creates a new parent account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	if err := validation.ValidatePassword(req.Password); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required")
		return
	}

	hash, err := h.tokens.HashPassword(req.Password)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create account")
		return
	}

	ctx := r.Context()
	parent := &models.Parent{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Role:         models.ParentRoleParent,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.parentRepo.Create(ctx, parent); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondJSONError(w, http.StatusConflict, "Conflict", "An account with this email already exists")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create account")
		return
	}

	h.respondWithToken(w, http.StatusCreated, parent)
}

// Login authenticates a parent and issues an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	ctx := r.Context()
	parent, err := h.parentRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same response for unknown email and bad password.
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		return
	}

	if !parent.IsActive || !h.tokens.VerifyPassword(req.Password, parent.PasswordHash) {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		return
	}

	h.respondWithToken(w, http.StatusOK, parent)
}

// Refresh exchanges a valid refresh token for a new token pair. Tokens
// are rotated: the response carries a fresh refresh token as well.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	parentID, err := h.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired refresh token")
		return
	}

	parent, err := h.parentRepo.GetByID(r.Context(), parentID)
	if err != nil || !parent.IsActive {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired refresh token")
		return
	}

	h.respondWithToken(w, http.StatusOK, parent)
}

// Me returns the authenticated parent's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}
	respondJSON(w, http.StatusOK, parent)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, parent *models.Parent) {
	access, exp, err := h.tokens.CreateAccessToken(parent.ID, parent.Email, string(parent.Role))
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to issue token")
		return
	}
	refresh, _, err := h.tokens.CreateRefreshToken(parent.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to issue token")
		return
	}
	respondJSON(w, status, TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    exp,
		Parent:       parent,
	})
}

// decodeBody decodes a JSON request body, writing an error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// validateStruct runs struct validation, writing an error response on failure.
func validateStruct(w http.ResponseWriter, req any) bool {
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return false
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}
