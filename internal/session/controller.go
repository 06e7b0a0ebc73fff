package session

import (
	"context"
	"log"
	"sync"
	"time"

	"attendance-scanner/internal/feedback"
	"attendance-scanner/internal/models"
	"attendance-scanner/internal/reader"
	"attendance-scanner/internal/services"
)

// Info describes the controller's current session
type Info struct {
	ID       string          `json:"id,omitempty"`
	State    State           `json:"state"`
	Category models.Category `json:"category,omitempty"`
}

// ControllerConfig holds the settings shared by every session a Controller starts
type ControllerConfig struct {
	Reader      reader.Config
	SettleDelay time.Duration
	// OnRawScan is used for sessions started without a category
	OnRawScan RawScanFunc
	// OnStateChange is passed through to every session
	OnStateChange func(from, to State)
}

// Controller owns at most one scan session over a shared camera. Every Begin
// builds a fresh session, so a camera failure is retried by beginning again.
type Controller struct {
	ctx      context.Context
	camera   reader.Camera
	marker   services.AttendanceMarker
	notifier feedback.Notifier
	cfg      ControllerConfig

	mu      sync.Mutex
	current *Session
}

// NewController creates a controller. Sessions it starts are torn down when
// ctx is canceled.
func NewController(ctx context.Context, camera reader.Camera, marker services.AttendanceMarker, notifier feedback.Notifier, cfg ControllerConfig) *Controller {
	return &Controller{
		ctx:      ctx,
		camera:   camera,
		marker:   marker,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Begin ends the current session, if any, and starts a new one for category.
// An empty category starts a raw scan session.
func (c *Controller) Begin(category models.Category) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endLocked()

	s := New(c.camera, c.marker, c.notifier, Config{
		Category:      category,
		OnRawScan:     c.cfg.OnRawScan,
		Reader:        c.cfg.Reader,
		SettleDelay:   c.cfg.SettleDelay,
		OnStateChange: c.cfg.OnStateChange,
	})
	c.current = s

	err := s.Begin(c.ctx)
	if err == nil {
		log.Printf("📷 Scan session %s started (category=%q)", s.ID()[:8], category)
	}
	return c.infoLocked(), err
}

// End stops the current session and waits for its in-flight scan
func (c *Controller) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endLocked()
}

func (c *Controller) endLocked() error {
	if c.current == nil {
		return nil
	}
	s := c.current
	c.current = nil

	err := s.End()
	s.Wait()
	return err
}

// Info reports the current session, or StateIdle when there is none
func (c *Controller) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked()
}

func (c *Controller) infoLocked() Info {
	if c.current == nil {
		return Info{State: StateIdle}
	}
	return Info{
		ID:       c.current.ID(),
		State:    c.current.State(),
		Category: c.current.cfg.Category,
	}
}
