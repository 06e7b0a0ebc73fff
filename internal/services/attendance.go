// Package services implements business logic for the application
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
)

// Resolution is the decision taken for one (participant, category) pair
type Resolution int

const (
	// NotFound means the store has no row for the identifier
	NotFound Resolution = iota
	// AlreadyDone means the flag is already set; no write is issued
	AlreadyDone
	// NeedsUpdate means the flag is unset and must be written
	NeedsUpdate
)

func (r Resolution) String() string {
	switch r {
	case NotFound:
		return "not_found"
	case AlreadyDone:
		return "already_done"
	case NeedsUpdate:
		return "needs_update"
	}
	return "unknown"
}

// Resolve decides what to do for a fetched participant. A nil participant
// means the lookup reported not-found.
func Resolve(p *models.Participant, c models.Category) Resolution {
	if p == nil {
		return NotFound
	}
	if p.Done(c) {
		return AlreadyDone
	}
	return NeedsUpdate
}

// OutcomeKind is the terminal result of one mark attempt
type OutcomeKind string

const (
	OutcomeNotFound    OutcomeKind = "not_found"
	OutcomeAlreadyDone OutcomeKind = "already_done"
	OutcomeMarked      OutcomeKind = "marked"
	OutcomeFailed      OutcomeKind = "failed"
)

// Outcome describes what happened to one mark attempt and what to tell the operator
type Outcome struct {
	Kind        OutcomeKind
	SRN         string
	Category    models.Category
	Participant *models.Participant
	Message     string
	Err         error
}

// Success reports whether the outcome should be shown as a success toast
func (o Outcome) Success() bool {
	return o.Kind == OutcomeMarked || o.Kind == OutcomeAlreadyDone
}

// Operator-facing messages
const (
	MsgParticipantNotFound = "Participant not found"
	MsgUpdateFailed        = "Failed to update attendance"
	MsgFetchFailed         = "Failed to fetch participant data"
)

func alreadyDoneMessage(c models.Category, srn string) string {
	return fmt.Sprintf("%s for %s is already marked as done!", c.Label(), srn)
}

func markedMessage(c models.Category, srn string) string {
	return fmt.Sprintf("%s for %s has been marked as done", c.Label(), srn)
}

// AttendanceMarker is the shared mark path used by the scan session and manual entry
type AttendanceMarker interface {
	Mark(ctx context.Context, srn string, category models.Category) Outcome
}

// AttendanceService handles attendance business logic
type AttendanceService struct {
	participants repository.ParticipantRepository
	timeout      time.Duration
}

// NewAttendanceService creates a new attendance service. timeout bounds each
// store call; zero disables the bound.
func NewAttendanceService(participants repository.ParticipantRepository, timeout time.Duration) *AttendanceService {
	return &AttendanceService{
		participants: participants,
		timeout:      timeout,
	}
}

func (s *AttendanceService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Status fetches a participant with all four flags
func (s *AttendanceService) Status(ctx context.Context, srn string) (*models.Participant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.participants.Lookup(ctx, srn)
}

// Mark looks the participant up, resolves against the fetched copy and writes
// only when the flag is unset.
//
// The check runs on a read that may be stale by the time the write lands and
// the write is an unconditional set, not a compare-and-swap. Two devices
// marking the same flag concurrently can both report success; flags are
// independent and never unset, so the race cannot lose or corrupt data.
func (s *AttendanceService) Mark(ctx context.Context, srn string, category models.Category) Outcome {
	out := Outcome{SRN: srn, Category: category}

	if !category.Valid() {
		out.Kind = OutcomeFailed
		out.Err = fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
		out.Message = MsgUpdateFailed
		return out
	}

	log.Printf("🔍 Processing %s for SRN: %s", category, srn)

	p, err := s.Status(ctx, srn)
	if err != nil && !errors.Is(err, repository.ErrParticipantNotFound) {
		log.Printf("❌ Error fetching participant %s: %v", srn, err)
		out.Kind = OutcomeFailed
		out.Err = fmt.Errorf("lookup %s: %w", srn, err)
		out.Message = MsgUpdateFailed
		return out
	}

	switch Resolve(p, category) {
	case NotFound:
		out.Kind = OutcomeNotFound
		out.Message = MsgParticipantNotFound
		return out
	case AlreadyDone:
		out.Kind = OutcomeAlreadyDone
		out.Participant = p
		out.Message = alreadyDoneMessage(category, p.SRN)
		return out
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.participants.MarkDone(ctx, p.SRN, category)
	if errors.Is(err, repository.ErrParticipantNotFound) {
		// deleted between the read and the write
		out.Kind = OutcomeNotFound
		out.Message = MsgParticipantNotFound
		return out
	}
	if err != nil {
		log.Printf("❌ Error updating attendance for %s: %v", srn, err)
		out.Kind = OutcomeFailed
		out.Err = fmt.Errorf("mark %s %s: %w", category, srn, err)
		out.Message = MsgUpdateFailed
		return out
	}

	log.Printf("✅ %s marked done for %s", category.Label(), p.SRN)
	out.Kind = OutcomeMarked
	out.Participant = updated
	out.Message = markedMessage(category, p.SRN)
	return out
}
