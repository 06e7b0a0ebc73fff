// Package handlers provides HTTP handlers for API endpoints
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
	"attendance-scanner/internal/services"
)

// ParticipantService is the manual entry side of the attendance service
type ParticipantService interface {
	Status(ctx context.Context, srn string) (*models.Participant, error)
	Mark(ctx context.Context, srn string, category models.Category) services.Outcome
}

// ParticipantHandler serves manual attendance entry
type ParticipantHandler struct {
	service ParticipantService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(service ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{service: service}
}

// NewRouter wires the manual entry API and health check. The scan session
// and toast routes are registered when their handlers are non-nil.
func NewRouter(participants *ParticipantHandler, scans *SessionHandler, toasts *ToastHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/participants/{srn}", participants.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/participants/{srn}/attendance/{category}", participants.HandleMark).Methods(http.MethodPost)

	if scans != nil {
		r.HandleFunc("/api/session", scans.HandleInfo).Methods(http.MethodGet)
		r.HandleFunc("/api/session", scans.HandleBegin).Methods(http.MethodPost)
		r.HandleFunc("/api/session", scans.HandleEnd).Methods(http.MethodDelete)
	}
	if toasts != nil {
		r.HandleFunc("/api/toasts", toasts.HandleActive).Methods(http.MethodGet)
	}
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type markResponse struct {
	Status      services.OutcomeKind      `json:"status"`
	Message     string                    `json:"message"`
	Participant *models.ParticipantStatus `json:"participant,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// HandleStatus returns the current flags of one participant
func (h *ParticipantHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	srn := mux.Vars(r)["srn"]

	p, err := h.service.Status(r.Context(), srn)
	if errors.Is(err, repository.ErrParticipantNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: services.MsgParticipantNotFound})
		return
	}
	if err != nil {
		log.Printf("Error fetching participant %s: %v", srn, err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: services.MsgFetchFailed})
		return
	}

	writeJSON(w, http.StatusOK, p.Status())
}

// HandleMark marks one category done for a participant
func (h *ParticipantHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	srn := vars["srn"]

	category, err := models.ParseCategory(vars["category"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	out := h.service.Mark(r.Context(), srn, category)

	resp := markResponse{Status: out.Kind, Message: out.Message}
	if out.Participant != nil {
		status := out.Participant.Status()
		resp.Participant = &status
	}

	code := http.StatusOK
	switch out.Kind {
	case services.OutcomeNotFound:
		code = http.StatusNotFound
	case services.OutcomeFailed:
		log.Printf("Error marking %s for %s: %v", category, srn, out.Err)
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}
