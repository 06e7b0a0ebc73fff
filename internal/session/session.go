// Package session drives the scan-to-update pipeline for one camera view.
//
// A Session owns a single reader. Each decoded code stops the reader before
// the store is touched, runs lookup, resolve and update, posts feedback, and
// restarts the reader after a settle delay. At most one scan is in flight per
// session and no decode is accepted until the reader is back.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-scanner/internal/feedback"
	"attendance-scanner/internal/models"
	"attendance-scanner/internal/reader"
	"attendance-scanner/internal/services"
)

var (
	// ErrConfiguration is returned by Begin when neither a category nor a raw scan consumer is set
	ErrConfiguration = errors.New("no attendance category selected")
	// ErrCameraUnavailable is returned by Begin when the capture device cannot be acquired
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrSessionStopped is returned by Begin on a session that has ended
	ErrSessionStopped = errors.New("session stopped")
	// ErrAlreadyStarted is returned by a second Begin on a running session
	ErrAlreadyStarted = errors.New("session already started")
)

// MsgCameraUnavailable is shown when the camera cannot be acquired
const MsgCameraUnavailable = "Failed to start camera. Please check permissions."

// DefaultSettleDelay keeps the last toast legible before scanning resumes
const DefaultSettleDelay = 1500 * time.Millisecond

// State is the lifecycle state of a session
type State string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateActive     State = "active"
	StateProcessing State = "processing"
	StateStopped    State = "stopped"
)

// RawScanFunc receives decoded identifiers when no category is preset
type RawScanFunc func(srn string)

// Config configures one session
type Config struct {
	// Category is the flag marked for every scan. Empty selects raw mode.
	Category models.Category
	// OnRawScan receives identifiers in raw mode
	OnRawScan RawScanFunc
	// Reader is passed to the camera on every (re)start
	Reader reader.Config
	// SettleDelay is the pause between feedback and resuming the reader
	SettleDelay time.Duration
	// OnStateChange observes transitions. It runs with the session locked
	// and must not call back into the session.
	OnStateChange func(from, to State)
}

// Session is a single-use scan loop. After End, create a new one.
type Session struct {
	id       string
	cfg      Config
	reader   *reader.Reader
	marker   services.AttendanceMarker
	notifier feedback.Notifier
	noise    *noiseLog

	// ctx ends when the session is torn down; it is created up front so End
	// can cancel an in-progress acquisition without taking mu.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	gen       uint64
	stopWatch func() bool
	wg        sync.WaitGroup
}

// New creates an idle session over camera
func New(camera reader.Camera, marker services.AttendanceMarker, notifier feedback.Notifier, cfg Config) *Session {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Session{
		id:       id,
		cfg:      cfg,
		reader:   reader.New(camera),
		marker:   marker,
		notifier: notifier,
		noise:    newNoiseLog(id),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}
}

// ID identifies the session in logs
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setStateLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	log.Printf("📷 [%s] %s -> %s", s.id[:8], from, to)
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(from, to)
	}
}

// Begin acquires the camera and starts scanning. The session is torn down
// when ctx is canceled. Camera failures stop the session without retry.
func (s *Session) Begin(ctx context.Context) error {
	if s.cfg.Category == "" && s.cfg.OnRawScan == nil {
		return ErrConfiguration
	}
	if s.cfg.Category != "" && !s.cfg.Category.Valid() {
		return fmt.Errorf("%w: %w", ErrConfiguration, models.ErrUnknownCategory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
	case StateStopped:
		return ErrSessionStopped
	default:
		return ErrAlreadyStarted
	}

	s.setStateLocked(StateStarting)
	s.stopWatch = context.AfterFunc(ctx, func() { s.End() })

	if err := s.startReaderLocked(); err != nil {
		tornDown := s.ctx.Err() != nil
		s.haltLocked()
		if tornDown {
			return ErrSessionStopped
		}
		log.Printf("❌ [%s] Camera start failed: %v", s.id[:8], err)
		s.notifier.Error(MsgCameraUnavailable)
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	s.setStateLocked(StateActive)
	return nil
}

// End stops scanning and releases the camera. It is safe to call in any
// state, any number of times. A store call already in flight finishes in the
// background but never reopens the camera.
func (s *Session) End() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return nil
	}
	return s.haltLocked()
}

func (s *Session) haltLocked() error {
	s.setStateLocked(StateStopped)
	s.cancel()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	return s.reader.Stop()
}

// Wait blocks until in-flight scans have finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// startReaderLocked opens the reader with callbacks bound to a new
// generation, so results from an earlier stream can never be accepted.
func (s *Session) startReaderLocked() error {
	s.gen++
	gen := s.gen
	onDecode := func(ev models.ScanEvent) { s.handleDecode(gen, ev) }
	return s.reader.Start(s.ctx, s.cfg.Reader, onDecode, s.handleNoise)
}

func (s *Session) handleDecode(gen uint64, ev models.ScanEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || gen != s.gen {
		return
	}
	s.setStateLocked(StateProcessing)

	// the reader is off before any store access
	if err := s.reader.Stop(); err != nil {
		log.Printf("⚠️  [%s] Reader stop error: %v", s.id[:8], err)
	}

	s.wg.Add(1)
	go s.process(ev)
}

func (s *Session) handleNoise(err error) {
	s.noise.record(err)
}

func (s *Session) process(ev models.ScanEvent) {
	defer s.wg.Done()

	log.Printf("📷 [%s] Scanned %q (scan %s)", s.id[:8], ev.Text, ev.ID[:8])

	if s.cfg.Category == "" {
		s.cfg.OnRawScan(ev.Text)
	} else {
		// the store call is not canceled by End; the service bounds it with a timeout
		out := s.marker.Mark(context.WithoutCancel(s.ctx), ev.Text, s.cfg.Category)
		if out.Success() {
			s.notifier.Success(out.Message)
		} else {
			s.notifier.Error(out.Message)
		}
	}

	timer := time.NewTimer(s.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
	}

	s.resume()
}

func (s *Session) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing {
		return
	}

	if err := s.startReaderLocked(); err != nil {
		tornDown := s.ctx.Err() != nil
		s.haltLocked()
		if tornDown {
			return
		}
		log.Printf("❌ [%s] Camera restart failed: %v", s.id[:8], err)
		s.notifier.Error(MsgCameraUnavailable)
		return
	}
	s.setStateLocked(StateActive)
}
