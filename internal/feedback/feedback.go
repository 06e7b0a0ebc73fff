// Package feedback delivers transient operator notifications (toasts).
//
// Posting never blocks the caller: notifications are queued and handed to
// sinks by a single delivery goroutine. Each toast stays in the active set
// until its duration elapses.
package feedback

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one toast
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	PostedAt  time.Time `json:"posted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink receives notifications from the delivery goroutine
type Sink interface {
	Deliver(n Notification)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Notification)

// Deliver calls f(n)
func (f SinkFunc) Deliver(n Notification) { f(n) }

// Notifier is the fire-and-forget side of the channel
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

const defaultQueueSize = 32

// Channel is a bounded, non-blocking notification queue
type Channel struct {
	queue    chan Notification
	sinks    []Sink
	duration time.Duration
	now      func() time.Time

	mu      sync.Mutex
	active  []Notification
	dropped int
}

// Option configures a Channel
type Option func(*Channel)

// WithDuration sets how long a toast stays active
func WithDuration(d time.Duration) Option {
	return func(c *Channel) { c.duration = d }
}

// WithQueueSize sets the queue capacity
func WithQueueSize(n int) Option {
	return func(c *Channel) { c.queue = make(chan Notification, n) }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

// NewChannel creates a channel delivering to sinks
func NewChannel(sinks []Sink, opts ...Option) *Channel {
	c := &Channel{
		queue:    make(chan Notification, defaultQueueSize),
		sinks:    sinks,
		duration: 3 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Success posts a success toast
func (c *Channel) Success(message string) { c.Post(KindSuccess, message) }

// Error posts an error toast
func (c *Channel) Error(message string) { c.Post(KindError, message) }

// Info posts an informational toast
func (c *Channel) Info(message string) { c.Post(KindInfo, message) }

// Post enqueues a notification. When the queue is full the notification is
// dropped rather than blocking the caller.
func (c *Channel) Post(kind Kind, message string) {
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		PostedAt:  now,
		ExpiresAt: now.Add(c.duration),
	}

	c.mu.Lock()
	c.active = append(c.pruneLocked(now), n)
	c.mu.Unlock()

	select {
	case c.queue <- n:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		log.Printf("⚠️  Feedback queue full, dropped %s: %s", kind, message)
	}
}

// Run delivers queued notifications to sinks until ctx is canceled
func (c *Channel) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-c.queue:
			for _, s := range c.sinks {
				s.Deliver(n)
			}
		}
	}
}

// Active returns the toasts that have not yet been dismissed
func (c *Channel) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = c.pruneLocked(c.now())
	out := make([]Notification, len(c.active))
	copy(out, c.active)
	return out
}

// Dropped returns how many notifications were discarded on a full queue
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Channel) pruneLocked(now time.Time) []Notification {
	kept := c.active[:0]
	for _, n := range c.active {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	return kept
}

var _ Notifier = (*Channel)(nil)
