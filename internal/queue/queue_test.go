package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/attendance/internal/models"
)

type fakeMsg struct {
	data              []byte
	acked, naked, ter bool
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return CheckInSubject }
func (m *fakeMsg) Ack() error      { m.acked = true; return nil }
func (m *fakeMsg) Nak() error      { m.naked = true; return nil }
func (m *fakeMsg) Term() error     { m.ter = true; return nil }

func sampleEvent() models.CheckInEvent {
	return models.CheckInEvent{
		Log: models.AttendanceLog{
			ID:         uuid.New(),
			IdentityID: "BIL-1234",
			Event:      "Gala",
			Venue:      "Hall A",
			Confidence: 0.912,
			OccurredAt: time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC),
			Title:      "Ana checked in to Gala",
		},
		Name:      "Ana",
		Published: time.Date(2024, 5, 1, 1, 0, 1, 0, time.UTC),
	}
}

func TestCheckInCodec(t *testing.T) {
	ev := sampleEvent()
	data, err := EncodeCheckIn(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":"BIL-1234"`)

	got, err := DecodeCheckIn(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = DecodeCheckIn([]byte("{"))
	assert.Error(t, err)
}

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig()
	assert.Equal(t, StreamName, cfg.Name)
	assert.Equal(t, []string{"attendance.>"}, cfg.Subjects)
	assert.Positive(t, cfg.Duplicates)
}

func TestHandleMessage(t *testing.T) {
	data, err := EncodeCheckIn(sampleEvent())
	require.NoError(t, err)

	t.Run("ack on success", func(t *testing.T) {
		msg := &fakeMsg{data: data}
		var got models.CheckInEvent
		handleMessage(context.Background(), msg, func(_ context.Context, ev models.CheckInEvent) error {
			got = ev
			return nil
		})
		assert.True(t, msg.acked)
		assert.Equal(t, "BIL-1234", got.Log.IdentityID)
	})

	t.Run("nak on handler error", func(t *testing.T) {
		msg := &fakeMsg{data: data}
		handleMessage(context.Background(), msg, func(context.Context, models.CheckInEvent) error {
			return errors.New("boom")
		})
		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
	})

	t.Run("term on malformed payload", func(t *testing.T) {
		msg := &fakeMsg{data: []byte("not json")}
		called := false
		handleMessage(context.Background(), msg, func(context.Context, models.CheckInEvent) error {
			called = true
			return nil
		})
		assert.True(t, msg.ter)
		assert.False(t, called)
	})
}
