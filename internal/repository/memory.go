package repository

import (
	"context"
	"fmt"
	"sync"

	"attendance-scanner/internal/models"
)

// MemoryParticipantRepository keeps participants in memory (development/testing use)
type MemoryParticipantRepository struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
}

// NewMemoryParticipantRepository creates a repository seeded with the given participants
func NewMemoryParticipantRepository(seed ...models.Participant) *MemoryParticipantRepository {
	r := &MemoryParticipantRepository{participants: make(map[string]models.Participant, len(seed))}
	for _, p := range seed {
		r.participants[p.SRN] = p
	}
	return r
}

// Lookup returns a copy of the stored participant
func (r *MemoryParticipantRepository) Lookup(_ context.Context, srn string) (*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[srn]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

// MarkDone sets the flag in place
func (r *MemoryParticipantRepository) MarkDone(_ context.Context, srn string, category models.Category) (*models.Participant, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[srn]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	p.MarkDone(category)
	r.participants[srn] = p
	return &p, nil
}

// Provision adds participants that are not present yet
func (r *MemoryParticipantRepository) Provision(_ context.Context, srns ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, srn := range srns {
		if _, ok := r.participants[srn]; !ok {
			r.participants[srn] = models.Participant{SRN: srn}
		}
	}
	return nil
}

// Ping always succeeds
func (r *MemoryParticipantRepository) Ping(context.Context) error { return nil }
