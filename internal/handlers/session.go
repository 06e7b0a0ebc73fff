package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/session"
)

// SessionController starts and stops the station's scan session
type SessionController interface {
	Begin(category models.Category) (session.Info, error)
	End() error
	Info() session.Info
}

// SessionHandler lets the operator pick a category and start or stop scanning
type SessionHandler struct {
	controller SessionController
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller SessionController) *SessionHandler {
	return &SessionHandler{controller: controller}
}

type beginRequest struct {
	Category string `json:"category"`
}

// HandleInfo returns the current session
func (h *SessionHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Info())
}

// HandleBegin replaces the current session with a new one for the requested
// category. An empty category starts a lookup-only session.
func (h *SessionHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return
	}

	var category models.Category
	if req.Category != "" {
		c, err := models.ParseCategory(req.Category)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		category = c
	}

	info, err := h.controller.Begin(category)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case errors.Is(err, session.ErrConfiguration):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrCameraUnavailable):
		log.Printf("Error starting scan session: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: session.MsgCameraUnavailable})
	default:
		log.Printf("Error starting scan session: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// HandleEnd stops the current session
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.End(); err != nil {
		log.Printf("Error stopping scan session: %v", err)
	}
	writeJSON(w, http.StatusOK, h.controller.Info())
}
