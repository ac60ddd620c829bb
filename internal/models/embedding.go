package models

import (
	"errors"
	"fmt"
)

// EmbeddingDim is the length of every face embedding handled by the service.
const EmbeddingDim = 128

var ErrInvalidEmbedding = errors.New("invalid embedding")

// Embedding is a fixed-length face descriptor. The array type makes the
// length invariant hold at compile time; slices enter only through NewEmbedding.
type Embedding [EmbeddingDim]float64

// NewEmbedding copies v into an Embedding, rejecting any other length.
func NewEmbedding(v []float64) (Embedding, error) {
	var e Embedding
	if len(v) != EmbeddingDim {
		return e, fmt.Errorf("%w: got %d values, want %d", ErrInvalidEmbedding, len(v), EmbeddingDim)
	}
	copy(e[:], v)
	return e, nil
}

// NewEmbeddingFromFloat32 widens a model output vector into an Embedding.
func NewEmbeddingFromFloat32(v []float32) (Embedding, error) {
	var e Embedding
	if len(v) != EmbeddingDim {
		return e, fmt.Errorf("%w: got %d values, want %d", ErrInvalidEmbedding, len(v), EmbeddingDim)
	}
	for i, x := range v {
		e[i] = float64(x)
	}
	return e, nil
}

func (e Embedding) Slice() []float64 {
	out := make([]float64, EmbeddingDim)
	copy(out, e[:])
	return out
}
