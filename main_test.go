package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-scanner/config"
	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
	"attendance-scanner/internal/services"
)

type recordingNotifier struct {
	kind, message string
}

func (n *recordingNotifier) Success(m string) { n.kind, n.message = "success", m }
func (n *recordingNotifier) Error(m string)   { n.kind, n.message = "error", m }
func (n *recordingNotifier) Info(m string)    { n.kind, n.message = "info", m }

func TestLookupStation(t *testing.T) {
	repo := repository.NewMemoryParticipantRepository(models.Participant{SRN: "PES1UG20CS001", Entry: true})
	svc := services.NewAttendanceService(repo, time.Second)

	tests := []struct {
		name        string
		srn         string
		wantKind    string
		wantMessage string
	}{
		{
			name:        "Known participant",
			srn:         "PES1UG20CS001",
			wantKind:    "info",
			wantMessage: "PES1UG20CS001 entry ✔ dinner ✖ snacks ✖ breakfast ✖",
		},
		{
			name:        "Unknown participant",
			srn:         "PES1UG20CS999",
			wantKind:    "error",
			wantMessage: services.MsgParticipantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			lookupStation(svc, n)(tt.srn)

			assert.Equal(t, tt.wantKind, n.kind)
			assert.Equal(t, tt.wantMessage, n.message)
		})
	}

	p, err := repo.Lookup(t.Context(), "PES1UG20CS001")
	assert.NoError(t, err)
	assert.False(t, p.Dinner, "lookup must not write")
}

func TestInitRepositorySeedsLocalStores(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{name: "Memory", backend: config.BackendMemory},
		{name: "SQLite", backend: config.BackendSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				StoreBackend: tt.backend,
				SQLitePath:   filepath.Join(t.TempDir(), "attendance.db"),
				SeedSRNs:     []string{"PES1UG20CS001", " PES1UG20CS002 "},
			}

			repo, closeStore, err := initRepository(t.Context(), cfg)
			require.NoError(t, err)
			defer closeStore()

			svc := services.NewAttendanceService(repo, time.Second)
			out := svc.Mark(t.Context(), "PES1UG20CS002", models.CategoryEntry)
			assert.Equal(t, services.OutcomeMarked, out.Kind)
			assert.Equal(t, "Entry for PES1UG20CS002 has been marked as done", out.Message)

			out = svc.Mark(t.Context(), "PES1UG20CS003", models.CategoryEntry)
			assert.Equal(t, services.OutcomeNotFound, out.Kind)
		})
	}
}

func TestLogClose(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	logClose("SQLite", func() error { return nil })()
	assert.Empty(t, buf.String())

	logClose("SQLite", func() error { return errors.New("database is locked") })()
	assert.Contains(t, buf.String(), "SQLite close error: database is locked")
}
