package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints toasts to a terminal
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a sink writing to out
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	infoStyle    = color.New(color.FgCyan)
)

// Deliver writes one line per toast
func (s *ConsoleSink) Deliver(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n.Kind {
	case KindSuccess:
		successStyle.Fprint(s.out, "✔ ")
	case KindError:
		errorStyle.Fprint(s.out, "✖ ")
	default:
		infoStyle.Fprint(s.out, "ℹ ")
	}
	fmt.Fprintln(s.out, n.Message)
}
