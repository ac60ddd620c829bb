// Package analytics turns the attendance log into dashboard statistics.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/your-org/attendance/internal/attendance"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
)

const DefaultLatestLimit = 10

// MaxWindowDays bounds Params.WindowDays. Larger windows are clamped.
const MaxWindowDays = 366

// Params controls one aggregation.
type Params struct {
	TotalIdentities int
	// WindowDays limits the heatmap to the most recent N local dates, zero
	// filled. Zero means every populated cell over the whole history. Values
	// above MaxWindowDays are treated as MaxWindowDays.
	WindowDays int
	// Event restricts every figure to one event; empty means all events.
	Event       string
	Now         time.Time
	Location    *time.Location
	OnTime      Window
	LatestLimit int
}

// Aggregate computes stats over logs. It does not modify logs and is safe to
// call concurrently.
func Aggregate(logs []models.AttendanceLog, p Params) models.AttendanceStats {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	latestLimit := p.LatestLimit
	if latestLimit <= 0 {
		latestLimit = DefaultLatestLimit
	}

	matching := make([]models.AttendanceLog, 0, len(logs))
	for _, l := range logs {
		if p.Event == "" || l.Event == p.Event {
			matching = append(matching, l)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].OccurredAt.Before(matching[j].OccurredAt)
	})

	todayStart, todayEnd := attendance.DayBounds(p.Now, loc)
	onTime := make(map[string]bool) // identity -> classified on time
	daily := make(map[string]map[string]struct{})
	hourly := make(map[string]*[24]int)

	for _, l := range matching {
		local := l.OccurredAt.In(loc)
		date := local.Format(attendance.DateLayout)

		if !l.OccurredAt.Before(todayStart) && l.OccurredAt.Before(todayEnd) {
			if _, seen := onTime[l.IdentityID]; !seen {
				onTime[l.IdentityID] = p.OnTime.Contains(local)
			}
		}

		ids, ok := daily[date]
		if !ok {
			ids = make(map[string]struct{})
			daily[date] = ids
		}
		ids[l.IdentityID] = struct{}{}

		hours, ok := hourly[date]
		if !ok {
			hours = &[24]int{}
			hourly[date] = hours
		}
		hours[local.Hour()]++
	}

	stats := models.AttendanceStats{
		TotalIdentities: p.TotalIdentities,
		DailySeries:     dailySeries(daily),
		HourlyHeatmap:   heatmap(hourly, p.WindowDays, p.Now, loc),
		LatestLogs:      latest(matching, latestLimit),
	}
	for _, ok := range onTime {
		if ok {
			stats.AttendedToday++
		} else {
			stats.LateToday++
		}
	}
	stats.AbsentToday = p.TotalIdentities - stats.AttendedToday - stats.LateToday
	return stats
}

func dailySeries(daily map[string]map[string]struct{}) []models.DailyCount {
	out := make([]models.DailyCount, 0, len(daily))
	for date, ids := range daily {
		out = append(out, models.DailyCount{Date: date, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func heatmap(hourly map[string]*[24]int, windowDays int, now time.Time, loc *time.Location) []models.HourlyCount {
	if windowDays <= 0 {
		dates := make([]string, 0, len(hourly))
		for date := range hourly {
			dates = append(dates, date)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		var out []models.HourlyCount
		for _, date := range dates {
			for hour, count := range hourly[date] {
				if count > 0 {
					out = append(out, models.HourlyCount{Date: date, Hour: hour, Count: count})
				}
			}
		}
		if out == nil {
			out = []models.HourlyCount{}
		}
		return out
	}

	if windowDays > MaxWindowDays {
		windowDays = MaxWindowDays
	}
	y, m, d := now.In(loc).Date()
	out := make([]models.HourlyCount, 0, windowDays*24)
	for i := windowDays - 1; i >= 0; i-- {
		date := time.Date(y, m, d-i, 0, 0, 0, 0, loc).Format(attendance.DateLayout)
		hours := hourly[date]
		for hour := 0; hour < 24; hour++ {
			count := 0
			if hours != nil {
				count = hours[hour]
			}
			out = append(out, models.HourlyCount{Date: date, Hour: hour, Count: count})
		}
	}
	return out
}

// latest returns the newest n entries of a chronologically sorted slice, newest first.
func latest(sorted []models.AttendanceLog, n int) []models.AttendanceLog {
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]models.AttendanceLog, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		out = append(out, sorted[i])
	}
	return out
}

// Source is the read access Compute needs.
type Source interface {
	CountIdentities(ctx context.Context) (int, error)
	ListLogs(ctx context.Context, f storage.LogFilter) ([]models.AttendanceLog, int, error)
}

// Compute loads the identity count and the full log for p.Event from src in
// one unpaged ListLogs call and aggregates them. p.TotalIdentities is filled in from src.
func Compute(ctx context.Context, src Source, p Params) (models.AttendanceStats, error) {
	total, err := src.CountIdentities(ctx)
	if err != nil {
		return models.AttendanceStats{}, fmt.Errorf("count identities: %w", err)
	}
	logs, _, err := src.ListLogs(ctx, storage.LogFilter{Event: p.Event, Order: storage.OrderAsc})
	if err != nil {
		return models.AttendanceStats{}, fmt.Errorf("load attendance logs: %w", err)
	}
	p.TotalIdentities = total
	return Aggregate(logs, p), nil
}
