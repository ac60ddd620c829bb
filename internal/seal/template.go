package seal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/your-org/attendance/internal/models"
)

// templateBytes is the raw size of an encoded embedding: 128 little-endian float64.
const templateBytes = models.EmbeddingDim * 8

// EncodeEmbedding lays out e as little-endian float64 values.
func EncodeEmbedding(e models.Embedding) []byte {
	buf := make([]byte, templateBytes)
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(b []byte) (models.Embedding, error) {
	var e models.Embedding
	if len(b) != templateBytes {
		return e, fmt.Errorf("%w: template is %d bytes, want %d", models.ErrInvalidEmbedding, len(b), templateBytes)
	}
	for i := range e {
		e[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return e, nil
}

// Templates seals and opens embeddings with a Sealer.
type Templates struct {
	sealer Sealer
}

func NewTemplates(s Sealer) *Templates {
	return &Templates{sealer: s}
}

func (t *Templates) Seal(e models.Embedding) (string, error) {
	sealed, err := t.sealer.Seal(EncodeEmbedding(e))
	if err != nil {
		return "", fmt.Errorf("seal template: %w", err)
	}
	return sealed, nil
}

// Open unseals and decodes a stored template. Failures wrap ErrMalformed or
// models.ErrInvalidEmbedding; callers scanning many templates skip them.
func (t *Templates) Open(sealed string) (models.Embedding, error) {
	raw, err := t.sealer.Unseal(sealed)
	if err != nil {
		return models.Embedding{}, fmt.Errorf("unseal template: %w", err)
	}
	return DecodeEmbedding(raw)
}
