package handlers

import (
	"net/http"

	"attendance-scanner/internal/feedback"
)

// ToastSource exposes the toasts currently on screen
type ToastSource interface {
	Active() []feedback.Notification
	Dropped() int
}

// ToastHandler serves the active toasts to a station display
type ToastHandler struct {
	source ToastSource
}

// NewToastHandler creates a new toast handler
func NewToastHandler(source ToastSource) *ToastHandler {
	return &ToastHandler{source: source}
}

type toastsResponse struct {
	Active  []feedback.Notification `json:"active"`
	Dropped int                     `json:"dropped"`
}

// HandleActive lists toasts that have not been dismissed yet
func (h *ToastHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toastsResponse{Active: h.source.Active(), Dropped: h.source.Dropped()})
}
