// Package repository defines repository interfaces for data access
package repository

import (
	"context"
	"errors"

	"attendance-scanner/internal/models"
)

// ErrParticipantNotFound is returned when no participant row matches the identifier.
// It is an expected outcome, distinct from transport or backend failures.
var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantRepository defines the interface for participant data access
type ParticipantRepository interface {
	// Lookup retrieves a participant by exact SRN match
	Lookup(ctx context.Context, srn string) (*models.Participant, error)
	// MarkDone unconditionally sets one attendance flag to done and returns the updated row
	MarkDone(ctx context.Context, srn string, category models.Category) (*models.Participant, error)
}

// HealthChecker is implemented by repositories backed by a remote service
type HealthChecker interface {
	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

// Provisioner is implemented by local stores that can register participants
type Provisioner interface {
	// Provision adds participants with no flags set, leaving existing rows untouched
	Provision(ctx context.Context, srns ...string) error
}
