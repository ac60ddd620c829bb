package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedding(t *testing.T) {
	v := make([]float64, EmbeddingDim)
	v[5] = 0.5
	e, err := NewEmbedding(v)
	require.NoError(t, err)
	assert.Equal(t, 0.5, e[5])

	v[5] = 1
	assert.Equal(t, 0.5, e[5], "embedding must not alias the input")
	assert.Equal(t, e[:], e.Slice())

	_, err = NewEmbedding(make([]float64, 127))
	assert.ErrorIs(t, err, ErrInvalidEmbedding)
	_, err = NewEmbeddingFromFloat32(make([]float32, 129))
	assert.ErrorIs(t, err, ErrInvalidEmbedding)

	f := make([]float32, EmbeddingDim)
	f[0] = 0.25
	e, err = NewEmbeddingFromFloat32(f)
	require.NoError(t, err)
	assert.Equal(t, 0.25, e[0])
}

func validIdentity() Identity {
	return Identity{
		ID:         uuid.New(),
		DigitalID:  "BIL-1000",
		Name:       "Ana",
		EnrolledAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestIdentityValidate(t *testing.T) {
	ok := validIdentity()
	require.NoError(t, ok.Validate())
	assert.False(t, ok.HasTemplate())

	tests := map[string]func(*Identity){
		"no id":         func(i *Identity) { i.ID = uuid.Nil },
		"no digital id": func(i *Identity) { i.DigitalID = " " },
		"no name":       func(i *Identity) { i.Name = "" },
		"no enrollment": func(i *Identity) { i.EnrolledAt = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			ident := validIdentity()
			mutate(&ident)
			assert.ErrorIs(t, ident.Validate(), ErrInvalidRecord)
		})
	}
}

func validLog() AttendanceLog {
	return AttendanceLog{
		ID:         uuid.New(),
		IdentityID: "BIL-1000",
		Event:      "Gala",
		Confidence: 0.91,
		OccurredAt: time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC),
	}
}

func TestAttendanceLogValidate(t *testing.T) {
	ok := validLog()
	require.NoError(t, ok.Validate())

	// confidence outside [0, 1] is allowed, it is derived from distance
	ok.Confidence = -0.2
	require.NoError(t, ok.Validate())

	tests := map[string]func(*AttendanceLog){
		"no id":        func(l *AttendanceLog) { l.ID = uuid.Nil },
		"no identity":  func(l *AttendanceLog) { l.IdentityID = "" },
		"no event":     func(l *AttendanceLog) { l.Event = "  " },
		"no timestamp": func(l *AttendanceLog) { l.OccurredAt = time.Time{} },
		"nan":          func(l *AttendanceLog) { l.Confidence = math.NaN() },
		"inf":          func(l *AttendanceLog) { l.Confidence = math.Inf(1) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			l := validLog()
			mutate(&l)
			assert.ErrorIs(t, l.Validate(), ErrInvalidRecord)
		})
	}
}

func TestDedupKey(t *testing.T) {
	k := DedupKey{IdentityID: "BIL-1000", Event: "Gala", Day: "2024-05-01"}
	assert.Equal(t, "BIL-1000|Gala|2024-05-01", k.String())
}
