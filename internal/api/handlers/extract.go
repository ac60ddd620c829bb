package handlers

import (
	"fmt"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/vision"
)

// probe decodes a capture and returns the embedding of its strongest face.
func probe(extractor vision.Extractor, payload string) (*vision.Image, models.Embedding, error) {
	if extractor == nil {
		return nil, models.Embedding{}, errVisionUnavailable
	}
	img, err := vision.DecodeImage(payload)
	if err != nil {
		return nil, models.Embedding{}, err
	}
	faces, err := extractor.Extract(img.Image)
	if err != nil {
		return nil, models.Embedding{}, fmt.Errorf("extract face: %w", err)
	}
	if len(faces) == 0 {
		return nil, models.Embedding{}, vision.ErrNoFace
	}
	return img, faces[0], nil
}
