package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

// LogWriter is the conditional write used to persist an entry.
type LogWriter interface {
	CreateLogIfAbsent(ctx context.Context, key models.DedupKey, log *models.AttendanceLog, dayStart, dayEnd time.Time) (*models.AttendanceLog, bool, error)
}

// Recorder turns an accepted match into a persisted attendance entry.
type Recorder struct {
	logs LogWriter
	loc  *time.Location
}

func NewRecorder(logs LogWriter, loc *time.Location) *Recorder {
	return &Recorder{logs: logs, loc: loc}
}

// Record writes one entry for ident at event. If an entry for the same day
// already exists, it is returned with created=false and nothing is written.
// Failures are not retried.
func (r *Recorder) Record(ctx context.Context, ident *models.Identity, event, venue string, confidence float64, now time.Time) (*models.AttendanceLog, bool, error) {
	entry := &models.AttendanceLog{
		ID:         uuid.New(),
		IdentityID: ident.DigitalID,
		Event:      event,
		Venue:      venue,
		Confidence: roundConfidence(confidence),
		OccurredAt: now.UTC(),
		Title:      fmt.Sprintf("%s checked in to %s", ident.Name, event),
	}

	start, end := DayBounds(now, r.loc)
	key := models.DedupKey{IdentityID: ident.DigitalID, Event: event, Day: CivilDate(now, r.loc)}

	stored, created, err := r.logs.CreateLogIfAbsent(ctx, key, entry, start.UTC(), end.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return stored, created, nil
}

func roundConfidence(c float64) float64 {
	return math.Round(c*1000) / 1000
}
