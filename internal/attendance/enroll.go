package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
)

const maxDigitalIDAttempts = 10

// TemplateSealer seals an embedding for storage.
type TemplateSealer interface {
	Seal(e models.Embedding) (string, error)
}

// IdentityWriter is the write side of the identity store.
type IdentityWriter interface {
	CreateIdentity(ctx context.Context, ident *models.Identity) error
	UpdateIdentity(ctx context.Context, ident *models.Identity) error
}

// Enrollment is the input to Enroll.
type Enrollment struct {
	Name      string
	Email     string
	Phone     string
	Event     string
	Embedding models.Embedding
	// Photo is optional; it is kept only when a photo store is configured.
	Photo            []byte
	PhotoContentType string
}

// Enroller registers new identities.
type Enroller struct {
	identities IdentityWriter
	sealer     TemplateSealer
	photos     storage.PhotoStore
	prefix     string
	nextNumber func() int
	now        func() time.Time
}

// NewEnroller builds an Enroller. photos may be nil.
func NewEnroller(identities IdentityWriter, sealer TemplateSealer, photos storage.PhotoStore, prefix string) *Enroller {
	return &Enroller{
		identities: identities,
		sealer:     sealer,
		photos:     photos,
		prefix:     prefix,
		nextNumber: func() int { return 1000 + rand.Intn(9000) },
		now:        time.Now,
	}
}

// Enroll seals the embedding and stores a new identity under a fresh digital
// id of the form PREFIX-NNNN, drawing again when the id is taken.
func (e *Enroller) Enroll(ctx context.Context, in Enrollment) (*models.Identity, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidRecord)
	}

	sealed, err := e.sealer.Seal(in.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: seal template: %w", ErrEnrollment, err)
	}

	now := e.now().UTC()
	ident := &models.Identity{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Event:      strings.TrimSpace(in.Event),
		Template:   sealed,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	keepPhoto := e.photos != nil && len(in.Photo) > 0

	for attempt := 1; ; attempt++ {
		ident.DigitalID = fmt.Sprintf("%s-%04d", e.prefix, e.nextNumber())
		if keepPhoto {
			ident.PhotoKey = storage.PhotoKey(ident.DigitalID, in.PhotoContentType)
		}

		err = e.identities.CreateIdentity(ctx, ident)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrConflict) || attempt == maxDigitalIDAttempts {
			return nil, fmt.Errorf("%w: %w", ErrEnrollment, err)
		}
		slog.Debug("digital id taken, drawing another", "digital_id", ident.DigitalID)
	}

	if keepPhoto {
		if err := e.photos.PutPhoto(ctx, ident.PhotoKey, in.Photo, in.PhotoContentType); err != nil {
			slog.Warn("store enrollment photo", "digital_id", ident.DigitalID, "error", err)
			ident.PhotoKey = ""
			if err := e.identities.UpdateIdentity(ctx, ident); err != nil {
				slog.Warn("clear photo key", "digital_id", ident.DigitalID, "error", err)
			}
		}
	}

	slog.Info("identity enrolled", "digital_id", ident.DigitalID, "event", ident.Event)
	return ident, nil
}
