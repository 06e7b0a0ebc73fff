package session

import (
	"errors"
	"log"
	"sync"

	"attendance-scanner/internal/reader"
)

const maxDistinctNoise = 64

// noiseLog is the diagnostic sink for frame decode failures. Empty frames are
// dropped outright; other errors are logged once per distinct message.
type noiseLog struct {
	id string

	mu   sync.Mutex
	seen map[string]struct{}
}

func newNoiseLog(sessionID string) *noiseLog {
	return &noiseLog{id: sessionID, seen: make(map[string]struct{})}
}

// record returns true when the error was logged
func (n *noiseLog) record(err error) bool {
	if err == nil || errors.Is(err, reader.ErrNoCode) {
		return false
	}

	msg := err.Error()

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.seen[msg]; ok {
		return false
	}
	if len(n.seen) >= maxDistinctNoise {
		return false
	}
	n.seen[msg] = struct{}{}
	log.Printf("⚠️  [%s] Scanning error: %v", n.id[:8], err)
	return true
}
