// Package bot provides a wrapper for the Telegram bot to implement the feedback sink
package bot

import "attendance-scanner/internal/feedback"

// Notifier mirrors scanner error toasts to the admin chat
type Notifier struct {
	send func(message string)
}

// NewNotifier creates a new bot notifier
func NewNotifier() *Notifier {
	return &Notifier{send: SendNotification}
}

// Deliver forwards error toasts; successes stay on the scanning device
func (n *Notifier) Deliver(note feedback.Notification) {
	if note.Kind != feedback.KindError {
		return
	}
	n.send("⚠️ Scanner: " + note.Message)
}

// Ensure Notifier implements the feedback.Sink interface
var _ feedback.Sink = (*Notifier)(nil)
