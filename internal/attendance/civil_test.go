package attendance

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	// 2024-03-04 20:30 UTC is 2024-03-05 03:30 in WIB
	now := time.Date(2024, 3, 4, 20, 30, 0, 0, time.UTC)

	start, end := DayBounds(now, wib)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, wib), start)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, wib), end)
	assert.Equal(t, "2024-03-05", CivilDate(now, wib))
}

func TestDayBounds_DSTDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// clocks spring forward on 2024-03-10
	start, end := DayBounds(time.Date(2024, 3, 10, 12, 0, 0, 0, ny), ny)
	assert.Equal(t, 23*time.Hour, end.Sub(start))

	start, end = DayBounds(time.Date(2024, 11, 3, 12, 0, 0, 0, ny), ny)
	assert.Equal(t, 25*time.Hour, end.Sub(start))
}

func TestRoundConfidence(t *testing.T) {
	assert.Equal(t, 0.912, roundConfidence(0.91234))
	assert.Equal(t, 1.0, roundConfidence(0.9996))
	assert.Equal(t, 1.0, roundConfidence(1))
}
