package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
	"attendance-scanner/internal/services"
)

// mockParticipantService is a mock implementation for testing
type mockParticipantService struct {
	markCalled   bool
	lastSRN      string
	lastCategory models.Category
	participant  *models.Participant
	statusErr    error
	outcome      services.Outcome
}

func (m *mockParticipantService) Status(ctx context.Context, srn string) (*models.Participant, error) {
	m.lastSRN = srn
	return m.participant, m.statusErr
}

func (m *mockParticipantService) Mark(ctx context.Context, srn string, c models.Category) services.Outcome {
	m.markCalled = true
	m.lastSRN = srn
	m.lastCategory = c
	return m.outcome
}

// Ensure mock implements the interface
var _ ParticipantService = (*mockParticipantService)(nil)

// Ensure the real service implements the interface
var _ ParticipantService = (*services.AttendanceService)(nil)

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name           string
		participant    *models.Participant
		statusErr      error
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "Found",
			participant:    &models.Participant{SRN: "PES1UG20CS001", Entry: true},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"srn":"PES1UG20CS001","entry":true,"dinner":false,"snacks":false,"breakfast":false}`,
		},
		{
			name:           "Not found",
			statusErr:      repository.ErrParticipantNotFound,
			wantStatusCode: http.StatusNotFound,
			wantBody:       `{"error":"Participant not found"}`,
		},
		{
			name:           "Store failure",
			statusErr:      errors.New("dial tcp: connection refused"),
			wantStatusCode: http.StatusBadGateway,
			wantBody:       `{"error":"Failed to fetch participant data"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockParticipantService{participant: tt.participant, statusErr: tt.statusErr}
			router := NewRouter(NewParticipantHandler(mockService), nil, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/participants/PES1UG20CS001", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			assert.Equal(t, "PES1UG20CS001", mockService.lastSRN)
		})
	}
}

func TestHandleMark(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		outcome        services.Outcome
		wantStatusCode int
		wantCalled     bool
		wantStatus     services.OutcomeKind
	}{
		{
			name:   "Marked",
			method: http.MethodPost,
			path:   "/api/participants/PES1UG20CS001/attendance/dinner",
			outcome: services.Outcome{
				Kind:        services.OutcomeMarked,
				Message:     "Dinner for PES1UG20CS001 has been marked as done",
				Participant: &models.Participant{SRN: "PES1UG20CS001", Dinner: true},
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
			wantStatus:     services.OutcomeMarked,
		},
		{
			name:           "Already done",
			method:         http.MethodPost,
			path:           "/api/participants/PES1UG20CS001/attendance/Entry",
			outcome:        services.Outcome{Kind: services.OutcomeAlreadyDone, Message: "Entry for PES1UG20CS001 is already marked as done!"},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
			wantStatus:     services.OutcomeAlreadyDone,
		},
		{
			name:           "Not found",
			method:         http.MethodPost,
			path:           "/api/participants/PES1UG20CS001/attendance/snacks",
			outcome:        services.Outcome{Kind: services.OutcomeNotFound, Message: services.MsgParticipantNotFound},
			wantStatusCode: http.StatusNotFound,
			wantCalled:     true,
			wantStatus:     services.OutcomeNotFound,
		},
		{
			name:           "Store failure",
			method:         http.MethodPost,
			path:           "/api/participants/PES1UG20CS001/attendance/breakfast",
			outcome:        services.Outcome{Kind: services.OutcomeFailed, Message: services.MsgUpdateFailed, Err: errors.New("timeout")},
			wantStatusCode: http.StatusBadGateway,
			wantCalled:     true,
			wantStatus:     services.OutcomeFailed,
		},
		{
			name:           "Unknown category",
			method:         http.MethodPost,
			path:           "/api/participants/PES1UG20CS001/attendance/lunch",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "Invalid method - GET",
			method:         http.MethodGet,
			path:           "/api/participants/PES1UG20CS001/attendance/dinner",
			wantStatusCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockParticipantService{outcome: tt.outcome}
			router := NewRouter(NewParticipantHandler(mockService), nil, nil)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantCalled, mockService.markCalled)
			if !tt.wantCalled {
				return
			}

			var resp markResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.outcome.Message, resp.Message)
			assert.Equal(t, "PES1UG20CS001", mockService.lastSRN)
			if tt.outcome.Participant != nil {
				require.NotNil(t, resp.Participant)
				assert.True(t, resp.Participant.Dinner)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := NewRouter(NewParticipantHandler(&mockParticipantService{}), nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}
