package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRecord = errors.New("invalid record")

// Identity is an enrolled person. Template holds the sealed embedding and is
// never exposed over the API.
type Identity struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DigitalID  string    `json:"digital_id" db:"digital_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Phone      string    `json:"phone" db:"phone"`
	Event      string    `json:"event" db:"event"`
	Template   string    `json:"-" db:"template"`
	PhotoKey   string    `json:"photo_key,omitempty" db:"photo_key"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields every stored identity must carry.
func (i *Identity) Validate() error {
	switch {
	case i.ID == uuid.Nil:
		return fmt.Errorf("%w: identity id is empty", ErrInvalidRecord)
	case strings.TrimSpace(i.DigitalID) == "":
		return fmt.Errorf("%w: identity %s has no digital id", ErrInvalidRecord, i.ID)
	case strings.TrimSpace(i.Name) == "":
		return fmt.Errorf("%w: identity %s has no name", ErrInvalidRecord, i.DigitalID)
	case i.EnrolledAt.IsZero():
		return fmt.Errorf("%w: identity %s has no enrollment time", ErrInvalidRecord, i.DigitalID)
	}
	return nil
}

// HasTemplate reports whether the identity can take part in matching.
func (i *Identity) HasTemplate() bool {
	return i.Template != ""
}
