package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/request"
	"github.com/kidchat/kidchat-api/internal/validation"
)

// ChildHandler handles child profile requests
type ChildHandler struct {
	childRepo   *database.ChildRepository
	historyRepo *database.HistoryRepository
}

// NewChildHandler creates a new child handler
func NewChildHandler(childRepo *database.ChildRepository, historyRepo *database.HistoryRepository) *ChildHandler {
	return &ChildHandler{childRepo: childRepo, historyRepo: historyRepo}
}

// RegisterRoutes registers child profile routes on the given router.
// The router should already have the /children prefix.
func (h *ChildHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListChildren).Methods("GET")
	r.HandleFunc("", h.CreateChild).Methods("POST")
	r.HandleFunc("/{id}", h.GetChild).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateChild).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteChild).Methods("DELETE")
	r.HandleFunc("/{id}/memory", h.GetMemory).Methods("GET")
}

// CreateChildRequest represents a create child profile request
type CreateChildRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Age    int    `json:"age" validate:"required,child_age"`
	Avatar string `json:"avatar" validate:"omitempty,max=100"`
}

// UpdateChildRequest represents an update child profile request
type UpdateChildRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Age    *int    `json:"age,omitempty" validate:"omitempty,child_age"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,max=100"`
}

// ListChildren lists the authenticated parent's active child profiles
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	children, err := h.childRepo.GetByParentID(r.Context(), parent.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve children")
		return
	}

	respondJSON(w, http.StatusOK, children)
}

// CreateChild creates a new child profile
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	var req CreateChildRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	child := &models.Child{
		ID:            uuid.New(),
		ParentID:      parent.ID,
		Name:          req.Name,
		Age:           req.Age,
		Avatar:        validation.SanitizeText(req.Avatar),
		MemoryContext: models.NewMemoryContext(),
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := h.childRepo.Create(r.Context(), child); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create child profile")
		return
	}

	respondJSON(w, http.StatusCreated, child)
}

// GetChild retrieves a child profile by ID
func (h *ChildHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadOwnedChild(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// UpdateChild updates a child profile
func (h *ChildHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadOwnedChild(w, r)
	if !ok {
		return
	}

	var req UpdateChildRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		child.Name = name
	}
	if req.Age != nil {
		if err := validation.ValidateChildAge(*req.Age); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		child.Age = *req.Age
	}
	if req.Avatar != nil {
		child.Avatar = validation.SanitizeText(*req.Avatar)
	}

	if err := h.childRepo.Update(r.Context(), child); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update child profile")
		return
	}

	respondJSON(w, http.StatusOK, child)
}

// DeleteChild soft-deletes a child profile
func (h *ChildHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadOwnedChild(w, r)
	if !ok {
		return
	}

	if err := h.childRepo.SoftDelete(r.Context(), child.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete child profile")
		return
	}

	// A deleted profile will not chat again; close its open conversation.
	if err := h.historyRepo.EndConversation(r.Context(), child.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete child profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// GetMemory returns the child's stored memory context
func (h *ChildHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadOwnedChild(w, r)
	if !ok {
		return
	}

	memory, err := h.childRepo.GetMemoryContext(r.Context(), child.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve memory context")
		return
	}

	respondJSON(w, http.StatusOK, memory)
}

// loadOwnedChild parses the path ID, loads the child, and verifies the
// authenticated parent owns it. Writes the error response itself.
func (h *ChildHandler) loadOwnedChild(w http.ResponseWriter, r *http.Request) (*models.Child, bool) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return nil, false
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid child ID")
		return nil, false
	}

	child, err := h.childRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Child not found")
		return nil, false
	}

	if child.ParentID != parent.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Child does not belong to parent")
		return nil, false
	}
	if !child.IsActive {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Child not found")
		return nil, false
	}

	return child, true
}
