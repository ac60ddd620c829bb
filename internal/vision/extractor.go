package vision

import (
	"errors"
	"image"

	"github.com/your-org/attendance/internal/models"
)

var (
	// ErrNoFace means the image decoded but no face was found in it.
	ErrNoFace = errors.New("no face detected")
	// ErrInvalidImage means the payload could not be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
)

// Extractor turns an image into face embeddings, strongest detection first.
// It returns ErrNoFace rather than an empty slice.
type Extractor interface {
	Extract(img image.Image) ([]models.Embedding, error)
}
