package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/request"
	"github.com/kidchat/kidchat-api/internal/services/chat"
)

// ChatHandler handles chat message requests
type ChatHandler struct {
	pipeline  *chat.Pipeline
	sessions  *chat.SessionService
	childRepo database.ChildRepositoryInterface
}

// NewChatHandler creates a new chat handler
func NewChatHandler(pipeline *chat.Pipeline, sessions *chat.SessionService, childRepo database.ChildRepositoryInterface) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, sessions: sessions, childRepo: childRepo}
}

// RegisterRoutes registers chat routes on the given router.
// The router should already have the /chat prefix.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/messages", h.SendMessage).Methods("POST")
	r.HandleFunc("/sessions/{session_id}", h.EndSession).Methods("DELETE")
	r.HandleFunc("/suggestions", h.Suggestions).Methods("GET")
}

// SendMessageRequest represents a chat message from a child.
// The length cap is enforced by the pipeline from configuration.
type SendMessageRequest struct {
	ChildID uuid.UUID `json:"child_id" validate:"required"`
	Message string    `json:"message" validate:"required"`
}

// SendMessage runs a child message through the pipeline and returns the reply
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	var req SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	// The child must belong to the authenticated parent.
	child, err := h.childRepo.GetByID(r.Context(), req.ChildID)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Child not found")
		return
	}
	if child.ParentID != parent.ID || !child.IsActive {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Child does not belong to parent")
		return
	}

	result, err := h.pipeline.SendMessage(r.Context(), req.ChildID, req.Message)
	if err != nil {
		if chat.IsValidationError(err) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// EndSession closes a conversation session explicitly, before the idle
// timeout would.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	sessionID, err := uuid.Parse(mux.Vars(r)["session_id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid session ID")
		return
	}

	ctx := r.Context()
	session, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	// The session's child must belong to the authenticated parent.
	child, err := h.childRepo.GetByID(ctx, session.ChildID)
	if err != nil || child.ParentID != parent.ID {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	if err := h.sessions.End(ctx, sessionID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Already closed; ending is idempotent from the client's view.
			respondJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "ended": true})
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to end session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "ended": true})
}

// conversation starters shown to a child with an empty input box
var suggestions = []string{
	"Can you tell me a story about a brave animal? 🦁",
	"What's the biggest dinosaur that ever lived? 🦕",
	"Let's play a riddle game! 🧩",
	"Why is the sky blue? ☁️",
	"Tell me a fun fact about space! 🚀",
	"Can you help me invent a superhero? 🦸",
}

// Suggestions returns conversation starter prompts
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
