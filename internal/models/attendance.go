package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttendanceLog is one accepted check-in. IdentityID refers to Identity.DigitalID
// without ownership; deleting an identity leaves its logs in place.
type AttendanceLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID string    `json:"user_id" db:"identity_id"`
	Event      string    `json:"event" db:"event"`
	Venue      string    `json:"venue" db:"venue"`
	Confidence float64   `json:"confidence_score" db:"confidence"`
	OccurredAt time.Time `json:"timestamp" db:"occurred_at"`
	Title      string    `json:"title" db:"title"`
}

func (l *AttendanceLog) Validate() error {
	switch {
	case l.ID == uuid.Nil:
		return fmt.Errorf("%w: log id is empty", ErrInvalidRecord)
	case strings.TrimSpace(l.IdentityID) == "":
		return fmt.Errorf("%w: log %s has no identity", ErrInvalidRecord, l.ID)
	case strings.TrimSpace(l.Event) == "":
		return fmt.Errorf("%w: log %s has no event", ErrInvalidRecord, l.ID)
	case l.OccurredAt.IsZero():
		return fmt.Errorf("%w: log %s has no timestamp", ErrInvalidRecord, l.ID)
	case math.IsNaN(l.Confidence) || math.IsInf(l.Confidence, 0):
		return fmt.Errorf("%w: log %s has a non-finite confidence", ErrInvalidRecord, l.ID)
	}
	return nil
}

// DedupKey identifies the single entry of record for an identity at an event
// on one civil day.
type DedupKey struct {
	IdentityID string
	Event      string
	Day        string // YYYY-MM-DD in the configured timezone
}

func (k DedupKey) String() string {
	return k.IdentityID + "|" + k.Event + "|" + k.Day
}

// CheckInEvent is published after a new attendance entry is written.
type CheckInEvent struct {
	Log       AttendanceLog `json:"log"`
	Name      string        `json:"name"`
	Published time.Time     `json:"published_at"`
}
