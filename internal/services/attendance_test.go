package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
)

// mockParticipantRepository wraps the memory repository and counts calls
type mockParticipantRepository struct {
	*repository.MemoryParticipantRepository
	lookupCalls   int
	markDoneCalls int
	lookupErr     error
	markDoneErr   error
	block         bool
}

func (m *mockParticipantRepository) Lookup(ctx context.Context, srn string) (*models.Participant, error) {
	m.lookupCalls++
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.MemoryParticipantRepository.Lookup(ctx, srn)
}

func (m *mockParticipantRepository) MarkDone(ctx context.Context, srn string, c models.Category) (*models.Participant, error) {
	m.markDoneCalls++
	if m.markDoneErr != nil {
		return nil, m.markDoneErr
	}
	return m.MemoryParticipantRepository.MarkDone(ctx, srn, c)
}

var _ repository.ParticipantRepository = (*mockParticipantRepository)(nil)

func newMockRepo(seed ...models.Participant) *mockParticipantRepository {
	return &mockParticipantRepository{MemoryParticipantRepository: repository.NewMemoryParticipantRepository(seed...)}
}

const srn = "PES1UG20CS001"

func TestResolve(t *testing.T) {
	for _, c := range models.Categories {
		t.Run(string(c), func(t *testing.T) {
			assert.Equal(t, NotFound, Resolve(nil, c))

			p := &models.Participant{SRN: srn}
			assert.Equal(t, NeedsUpdate, Resolve(p, c))

			p.MarkDone(c)
			assert.Equal(t, AlreadyDone, Resolve(p, c))

			// other flags are independent
			for _, other := range models.Categories {
				if other == c {
					continue
				}
				assert.Equal(t, NeedsUpdate, Resolve(p, other))
			}
		})
	}
}

func TestMark(t *testing.T) {
	transportErr := errors.New("connection reset by peer")

	tests := []struct {
		name          string
		seed          []models.Participant
		category      models.Category
		lookupErr     error
		markDoneErr   error
		wantKind      OutcomeKind
		wantMessage   string
		wantMarkCalls int
		wantDone      bool
	}{
		{
			name:        "Not found",
			category:    models.CategoryDinner,
			wantKind:    OutcomeNotFound,
			wantMessage: "Participant not found",
		},
		{
			name:        "Already done - no update issued",
			seed:        []models.Participant{{SRN: srn, Entry: true}},
			category:    models.CategoryEntry,
			wantKind:    OutcomeAlreadyDone,
			wantMessage: "Entry for PES1UG20CS001 is already marked as done!",
			wantDone:    true,
		},
		{
			name:          "Needs update",
			seed:          []models.Participant{{SRN: srn}},
			category:      models.CategoryBreakfast,
			wantKind:      OutcomeMarked,
			wantMessage:   "Breakfast for PES1UG20CS001 has been marked as done",
			wantMarkCalls: 1,
			wantDone:      true,
		},
		{
			name:          "Update transport error leaves flag unset",
			seed:          []models.Participant{{SRN: srn}},
			category:      models.CategoryBreakfast,
			markDoneErr:   transportErr,
			wantKind:      OutcomeFailed,
			wantMessage:   "Failed to update attendance",
			wantMarkCalls: 1,
		},
		{
			name:        "Lookup transport error",
			seed:        []models.Participant{{SRN: srn}},
			category:    models.CategorySnacks,
			lookupErr:   transportErr,
			wantKind:    OutcomeFailed,
			wantMessage: "Failed to update attendance",
		},
		{
			name:        "Unknown category",
			seed:        []models.Participant{{SRN: srn}},
			category:    models.Category("lunch"),
			wantKind:    OutcomeFailed,
			wantMessage: "Failed to update attendance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo(tt.seed...)
			repo.lookupErr = tt.lookupErr
			repo.markDoneErr = tt.markDoneErr
			svc := NewAttendanceService(repo, time.Second)

			out := svc.Mark(context.Background(), srn, tt.category)

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.Equal(t, tt.wantMarkCalls, repo.markDoneCalls)
			if tt.wantKind == OutcomeFailed {
				assert.Error(t, out.Err)
			}

			if len(tt.seed) > 0 && tt.category.Valid() {
				p, err := repo.MemoryParticipantRepository.Lookup(context.Background(), srn)
				require.NoError(t, err)
				assert.Equal(t, tt.wantDone, p.Done(tt.category))
			}
		})
	}
}

func TestMarkIdempotent(t *testing.T) {
	repo := newMockRepo(models.Participant{SRN: srn})
	svc := NewAttendanceService(repo, time.Second)

	first := svc.Mark(context.Background(), srn, models.CategoryDinner)
	second := svc.Mark(context.Background(), srn, models.CategoryDinner)

	assert.Equal(t, OutcomeMarked, first.Kind)
	assert.Equal(t, OutcomeAlreadyDone, second.Kind)
	assert.Equal(t, 1, repo.markDoneCalls, "second mark must not reach the store")
	assert.Equal(t, 2, repo.lookupCalls)

	p, err := svc.Status(context.Background(), srn)
	require.NoError(t, err)
	assert.True(t, p.Dinner)
	assert.False(t, p.Entry)
}

func TestMarkTimesOut(t *testing.T) {
	repo := newMockRepo(models.Participant{SRN: srn})
	repo.block = true
	svc := NewAttendanceService(repo, 20*time.Millisecond)

	start := time.Now()
	out := svc.Mark(context.Background(), srn, models.CategoryEntry)

	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOutcomeSuccess(t *testing.T) {
	assert.True(t, Outcome{Kind: OutcomeMarked}.Success())
	assert.True(t, Outcome{Kind: OutcomeAlreadyDone}.Success())
	assert.False(t, Outcome{Kind: OutcomeNotFound}.Success())
	assert.False(t, Outcome{Kind: OutcomeFailed}.Success())
}
