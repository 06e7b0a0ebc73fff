package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LineCamera is a Camera backed by a device that already decodes symbols and
// emits one payload per line: USB keyboard-wedge and serial barcode scanners,
// or stdin for operator testing. Blank lines count as empty frames.
//
// The source is opened on the first Open and read for the life of the process.
// Lines arriving while no stream is open are discarded, as a camera that is
// off captures nothing.
type LineCamera struct {
	open func() (io.Reader, error)

	mu      sync.Mutex
	started bool
	current *lineStream
}

// NewLineCamera reads lines from r
func NewLineCamera(r io.Reader) *LineCamera {
	return &LineCamera{open: func() (io.Reader, error) { return r, nil }}
}

// NewDeviceCamera reads lines from the device at path. Permission and
// missing-device errors surface from Open.
func NewDeviceCamera(path string) *LineCamera {
	return &LineCamera{open: func() (io.Reader, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scanner device %s: %w", path, err)
		}
		return f, nil
	}}
}

// Open acquires the device. Only one stream may be open at a time.
func (c *LineCamera) Open(ctx context.Context, cfg Config) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, ErrDeviceBusy
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.started {
		src, err := c.open()
		if err != nil {
			return nil, err
		}
		c.started = true
		go c.readLoop(src)
	}

	limit := rate.Inf
	if cfg.FPS > 0 {
		limit = rate.Limit(cfg.FPS)
	}
	s := &lineStream{
		owner:   c,
		results: make(chan Result, 1),
		limiter: rate.NewLimiter(limit, 1),
	}
	c.current = s
	return s, nil
}

func (c *LineCamera) readLoop(src io.Reader) {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()

		c.mu.Lock()
		s := c.current
		c.mu.Unlock()

		if s != nil {
			s.deliver(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("❌ Scanner device read error: %v", err)
	}
}

func (c *LineCamera) release(s *lineStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.current = nil
	}
}

type lineStream struct {
	owner   *LineCamera
	results chan Result
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

func (s *lineStream) Results() <-chan Result { return s.results }

// deliver hands one line to the consumer. Lines faster than the configured
// frame rate, or arriving while the consumer is still busy, are skipped.
func (s *lineStream) deliver(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if !s.limiter.Allow() {
		return
	}

	res := Result{Text: line, At: time.Now()}
	if line == "" {
		res.Err = ErrNoCode
	}
	select {
	case s.results <- res:
	default:
	}
}

func (s *lineStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.results)
	s.mu.Unlock()

	s.owner.release(s)
	return nil
}
