package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/request"
)

const (
	// DefaultAlertLimit is the default number of alerts returned by the list endpoint
	DefaultAlertLimit = 50
	// MaxAlertLimit is the maximum number of alerts returned by the list endpoint
	MaxAlertLimit = 200
)

// AlertHandler handles parent alert requests
type AlertHandler struct {
	alertRepo *database.AlertRepository
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertRepo *database.AlertRepository) *AlertHandler {
	return &AlertHandler{alertRepo: alertRepo}
}

// RegisterRoutes registers alert routes on the given router.
// The router should already have the /alerts prefix.
func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListAlerts).Methods("GET")
	r.HandleFunc("/read-all", h.MarkAllRead).Methods("POST")
	r.HandleFunc("/{id}/read", h.MarkRead).Methods("POST")
}

// ListAlerts lists alerts for the authenticated parent. Pass unread=true to
// restrict to unread alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	ctx := r.Context()

	if r.URL.Query().Get("unread") == "true" {
		alerts, err := h.alertRepo.ListUnread(ctx, parent.ID)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve alerts")
			return
		}
		respondJSON(w, http.StatusOK, alerts)
		return
	}

	limit := DefaultAlertLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			if parsed > MaxAlertLimit {
				limit = MaxAlertLimit
			} else {
				limit = parsed
			}
		}
	}

	alerts, err := h.alertRepo.ListAll(ctx, parent.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve alerts")
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

// MarkRead acknowledges a single alert
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid alert ID")
		return
	}

	if err := h.alertRepo.MarkRead(r.Context(), id, parent.ID); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Alert not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"read": true})
}

// MarkAllRead acknowledges all of the parent's unread alerts
func (h *AlertHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	parent := request.ParentFromContext(r)
	if parent == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Parent not found in context")
		return
	}

	count, err := h.alertRepo.MarkAllRead(r.Context(), parent.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to mark alerts read")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"read_count": count})
}
