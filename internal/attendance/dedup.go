package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
)

// LogReader is the read side of the attendance log.
type LogReader interface {
	ListLogs(ctx context.Context, f storage.LogFilter) ([]models.AttendanceLog, int, error)
}

// Deduplicator answers whether an identity already checked in to an event
// during the current civil day.
type Deduplicator struct {
	logs LogReader
	loc  *time.Location
}

func NewDeduplicator(logs LogReader, loc *time.Location) *Deduplicator {
	return &Deduplicator{logs: logs, loc: loc}
}

// AlreadyLogged returns the earliest entry for identityID at event within
// the civil day of now, or nil when there is none.
func (d *Deduplicator) AlreadyLogged(ctx context.Context, identityID, event string, now time.Time) (*models.AttendanceLog, error) {
	start, end := DayBounds(now, d.loc)
	start, end = start.UTC(), end.UTC()

	logs, _, err := d.logs.ListLogs(ctx, storage.LogFilter{
		IdentityID: identityID,
		Event:      event,
		From:       &start,
		To:         &end,
		Sort:       "timestamp",
		Order:      storage.OrderAsc,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("check existing attendance: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}
