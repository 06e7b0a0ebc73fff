// Package models contains data structures for the application
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownCategory is returned when a category is not one of the four attendance flags
var ErrUnknownCategory = errors.New("unknown attendance category")

// Category selects one attendance flag on a participant record
type Category string

const (
	CategoryEntry     Category = "entry"
	CategoryDinner    Category = "dinner"
	CategorySnacks    Category = "snacks"
	CategoryBreakfast Category = "breakfast"
)

// Categories lists every attendance category in display order
var Categories = []Category{CategoryEntry, CategoryDinner, CategorySnacks, CategoryBreakfast}

// ParseCategory converts user input into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryEntry, CategoryDinner, CategorySnacks, CategoryBreakfast:
		return true
	}
	return false
}

// Label returns the capitalized category name used in operator messages
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// FlagDone is the literal value the store holds for a completed category
const FlagDone = "done"

// Participant represents one row of the participant table.
// Flags only ever move from unset to done.
type Participant struct {
	SRN       string
	Entry     bool
	Dinner    bool
	Snacks    bool
	Breakfast bool
}

// Done reports whether the flag for c is set
func (p *Participant) Done(c Category) bool {
	switch c {
	case CategoryEntry:
		return p.Entry
	case CategoryDinner:
		return p.Dinner
	case CategorySnacks:
		return p.Snacks
	case CategoryBreakfast:
		return p.Breakfast
	}
	return false
}

// MarkDone sets the flag for c on the local copy
func (p *Participant) MarkDone(c Category) {
	switch c {
	case CategoryEntry:
		p.Entry = true
	case CategoryDinner:
		p.Dinner = true
	case CategorySnacks:
		p.Snacks = true
	case CategoryBreakfast:
		p.Breakfast = true
	}
}

// ParticipantStatus is the JSON view of a participant used by the manual entry API
type ParticipantStatus struct {
	SRN       string `json:"srn"`
	Entry     bool   `json:"entry"`
	Dinner    bool   `json:"dinner"`
	Snacks    bool   `json:"snacks"`
	Breakfast bool   `json:"breakfast"`
}

// Status converts the participant into its API view
func (p *Participant) Status() ParticipantStatus {
	return ParticipantStatus{
		SRN:       p.SRN,
		Entry:     p.Entry,
		Dinner:    p.Dinner,
		Snacks:    p.Snacks,
		Breakfast: p.Breakfast,
	}
}

// ScanEvent is one decoded code, alive only for a single pipeline pass
type ScanEvent struct {
	ID         string
	Text       string
	CapturedAt time.Time
}

// NewScanEvent stamps decoded text with an ID and capture time
func NewScanEvent(text string, at time.Time) ScanEvent {
	return ScanEvent{
		ID:         uuid.NewString(),
		Text:       strings.TrimSpace(text),
		CapturedAt: at,
	}
}
