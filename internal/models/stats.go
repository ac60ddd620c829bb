package models

// DailyCount is the number of distinct identities seen on a local date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourlyCount is the number of entries in one local date+hour cell.
type HourlyCount struct {
	Date  string `json:"date"`
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

// AttendanceStats is derived on every dashboard request and never stored.
type AttendanceStats struct {
	TotalIdentities int             `json:"total_user"`
	AttendedToday   int             `json:"total_attendance_today"`
	LateToday       int             `json:"total_late_today"`
	AbsentToday     int             `json:"total_absence_today"`
	DailySeries     []DailyCount    `json:"daily_attendance"`
	HourlyHeatmap   []HourlyCount   `json:"hourly_attendance"`
	LatestLogs      []AttendanceLog `json:"latest_log"`
}
