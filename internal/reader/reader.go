// Package reader wraps an external capture-and-decode device behind a
// start/stop lifecycle.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"attendance-scanner/internal/models"
)

var (
	// ErrNoCode is reported for frames that did not contain a recognizable symbol
	ErrNoCode = errors.New("no code detected in frame")
	// ErrDeviceBusy is returned when the device is already held by another stream
	ErrDeviceBusy = errors.New("capture device busy")
)

// Facing selects which camera to prefer
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Format is an accepted symbology
type Format string

const (
	FormatQRCode     Format = "qr_code"
	FormatDataMatrix Format = "data_matrix"
	FormatEAN13      Format = "ean_13"
	FormatEAN8       Format = "ean_8"
	FormatCode39     Format = "code_39"
)

// DefaultFormats is the mixed 2D/1D set used when none are configured
var DefaultFormats = []Format{FormatQRCode, FormatDataMatrix, FormatEAN13, FormatEAN8, FormatCode39}

// Box is the detection region in pixels
type Box struct {
	Width  int
	Height int
}

// Config is the capture configuration handed to the device
type Config struct {
	FPS         float64
	Box         Box
	AspectRatio float64
	Facing      Facing
	Formats     []Format
}

// DefaultConfig returns the rear-camera configuration used for scanning badges
func DefaultConfig() Config {
	return Config{
		FPS:         5,
		Box:         Box{Width: 300, Height: 300},
		AspectRatio: 1.0,
		Facing:      FacingEnvironment,
		Formats:     DefaultFormats,
	}
}

// ParseFormats parses a comma separated list of format names
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case FormatQRCode, FormatDataMatrix, FormatEAN13, FormatEAN8, FormatCode39:
			out = append(out, f)
		default:
			return nil, fmt.Errorf("unknown symbol format %q", part)
		}
	}
	if len(out) == 0 {
		return DefaultFormats, nil
	}
	return out, nil
}

// Result is one decoded frame. Err is set for frames without a symbol.
type Result struct {
	Text string
	At   time.Time
	Err  error
}

// Stream is an open capture session on a device
type Stream interface {
	// Results yields decode results. The channel is closed once Close has been called.
	Results() <-chan Result
	// Close releases the device
	Close() error
}

// Camera is the external capture-and-decode capability
type Camera interface {
	// Open acquires the device and starts decoding
	Open(ctx context.Context, cfg Config) (Stream, error)
}

// DecodeFunc receives successfully decoded scans
type DecodeFunc func(models.ScanEvent)

// NoiseFunc receives per-frame decode failures
type NoiseFunc func(error)

// Reader owns at most one open stream on a Camera. Callers serialize
// Start and Stop; Stop is safe at any time, including before a successful Start.
type Reader struct {
	camera Camera

	mu     sync.Mutex
	stream Stream
}

// New creates a reader for camera
func New(camera Camera) *Reader {
	return &Reader{camera: camera}
}

// Start opens the camera and pumps results into the callbacks. A failed
// Start holds no device.
func (r *Reader) Start(ctx context.Context, cfg Config, onDecode DecodeFunc, onNoise NoiseFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return nil
	}

	stream, err := r.camera.Open(ctx, cfg)
	if err != nil {
		return err
	}
	r.stream = stream

	go r.pump(stream, onDecode, onNoise)
	return nil
}

// Active reports whether a stream is open
func (r *Reader) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Stop closes the open stream, if any. It does not wait for the pump to
// exit, so it may be called from inside a callback.
func (r *Reader) Stop() error {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.Close()
}

func (r *Reader) pump(stream Stream, onDecode DecodeFunc, onNoise NoiseFunc) {
	for res := range stream.Results() {
		// results still buffered in a stopped stream are discarded
		if !r.owns(stream) {
			return
		}
		if res.Err != nil || strings.TrimSpace(res.Text) == "" {
			if onNoise != nil {
				err := res.Err
				if err == nil {
					err = ErrNoCode
				}
				onNoise(err)
			}
			continue
		}
		at := res.At
		if at.IsZero() {
			at = time.Now()
		}
		onDecode(models.NewScanEvent(res.Text, at))
	}
}

func (r *Reader) owns(stream Stream) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream == stream
}
