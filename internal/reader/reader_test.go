package reader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-scanner/internal/models"
)

type fakeStream struct {
	results chan Result
	once    sync.Once
}

func (s *fakeStream) Results() <-chan Result { return s.results }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.results) })
	return nil
}

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	opens   int
	streams []*fakeStream
}

func (c *fakeCamera) Open(context.Context, Config) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.openErr != nil {
		return nil, c.openErr
	}
	s := &fakeStream{results: make(chan Result, 8)}
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *fakeCamera) last() *fakeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[len(c.streams)-1]
}

var _ Camera = (*fakeCamera)(nil)

type collector struct {
	mu     sync.Mutex
	scans  []models.ScanEvent
	noises []error
}

func (c *collector) decode(ev models.ScanEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans = append(c.scans, ev)
}

func (c *collector) noise(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noises = append(c.noises, err)
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scans), len(c.noises)
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	r := New(&fakeCamera{})
	assert.NoError(t, r.Stop())
	assert.NoError(t, r.Stop())
	assert.False(t, r.Active())
}

func TestStartFailureHoldsNoDevice(t *testing.T) {
	denied := errors.New("permission denied")
	r := New(&fakeCamera{openErr: denied})

	err := r.Start(context.Background(), DefaultConfig(), func(models.ScanEvent) {}, nil)

	assert.ErrorIs(t, err, denied)
	assert.False(t, r.Active())
	assert.NoError(t, r.Stop())
}

func TestStartDeliversDecodesAndNoise(t *testing.T) {
	cam := &fakeCamera{}
	r := New(cam)
	c := &collector{}

	require.NoError(t, r.Start(context.Background(), DefaultConfig(), c.decode, c.noise))
	assert.True(t, r.Active())

	s := cam.last()
	s.results <- Result{Err: ErrNoCode}
	s.results <- Result{Text: "   "}
	s.results <- Result{Text: " PES1UG20CS001\n"}

	require.Eventually(t, func() bool {
		scans, noises := c.counts()
		return scans == 1 && noises == 2
	}, time.Second, 5*time.Millisecond)

	c.mu.Lock()
	assert.Equal(t, "PES1UG20CS001", c.scans[0].Text)
	assert.NotEmpty(t, c.scans[0].ID)
	assert.False(t, c.scans[0].CapturedAt.IsZero())
	assert.ErrorIs(t, c.noises[1], ErrNoCode)
	c.mu.Unlock()

	require.NoError(t, r.Stop())
	assert.False(t, r.Active())
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	cam := &fakeCamera{}
	r := New(cam)
	c := &collector{}

	require.NoError(t, r.Start(context.Background(), DefaultConfig(), c.decode, nil))
	require.NoError(t, r.Start(context.Background(), DefaultConfig(), c.decode, nil))

	assert.Equal(t, 1, cam.opens)
}

func TestRestartAfterStop(t *testing.T) {
	cam := &fakeCamera{}
	r := New(cam)
	c := &collector{}

	require.NoError(t, r.Start(context.Background(), DefaultConfig(), c.decode, nil))
	first := cam.last()
	require.NoError(t, r.Stop())

	require.NoError(t, r.Start(context.Background(), DefaultConfig(), c.decode, nil))
	second := cam.last()
	assert.NotSame(t, first, second)

	second.results <- Result{Text: "B"}
	require.Eventually(t, func() bool {
		scans, _ := c.counts()
		return scans == 1
	}, time.Second, 5*time.Millisecond)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Format
		wantErr bool
	}{
		{name: "Empty uses defaults", in: "", want: DefaultFormats},
		{name: "Subset", in: "qr_code, EAN_13", want: []Format{FormatQRCode, FormatEAN13}},
		{name: "Unknown", in: "qr_code,pdf417", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineCamera(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	cam := NewLineCamera(pr)
	cfg := DefaultConfig()
	cfg.FPS = 0

	s, err := cam.Open(context.Background(), cfg)
	require.NoError(t, err)

	_, err = cam.Open(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrDeviceBusy)

	_, err = io.WriteString(pw, "PES1UG20CS001\n")
	require.NoError(t, err)

	select {
	case res := <-s.Results():
		assert.Equal(t, "PES1UG20CS001", res.Text)
		assert.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	_, err = io.WriteString(pw, "\n")
	require.NoError(t, err)
	select {
	case res := <-s.Results():
		assert.ErrorIs(t, res.Err, ErrNoCode)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-s.Results()
	assert.False(t, ok, "results must be closed after Close")

	// the read loop outlives the stream
	s2, err := cam.Open(context.Background(), cfg)
	require.NoError(t, err)
	_, err = io.WriteString(pw, "PES1UG20CS002\n")
	require.NoError(t, err)

	select {
	case res := <-s2.Results():
		assert.Equal(t, "PES1UG20CS002", res.Text)
	case <-time.After(time.Second):
		t.Fatal("no result delivered after reopen")
	}
}

func TestDeviceCameraMissingDevice(t *testing.T) {
	cam := NewDeviceCamera(filepath.Join(t.TempDir(), "missing"))

	_, err := cam.Open(context.Background(), DefaultConfig())

	assert.ErrorIs(t, err, os.ErrNotExist)
}
