package dto

import "github.com/your-org/attendance/internal/models"

type ScanRequest struct {
	Image string `json:"image" binding:"required"`
	Event string `json:"event"`
	Venue string `json:"venue"`
}

type ScanResponse struct {
	Match         bool                  `json:"match"`
	UserID        string                `json:"user_id,omitempty"`
	Name          string                `json:"name,omitempty"`
	Confidence    float64               `json:"confidence,omitempty"`
	AlreadyLogged bool                  `json:"already_logged,omitempty"`
	Log           *models.AttendanceLog `json:"log,omitempty"`
}

// UpdateLogRequest edits the descriptive fields of an entry. Identity,
// timestamp and confidence are fixed at write time.
type UpdateLogRequest struct {
	Event *string `json:"event"`
	Venue *string `json:"venue"`
	Title *string `json:"title"`
}

type LogListResponse struct {
	Logs []models.AttendanceLog `json:"logs"`
	Page
}

// WSEvent is a WebSocket message for real-time check-in delivery.
type WSEvent struct {
	Type  string              `json:"type"` // checkin
	Event string              `json:"event"`
	Data  models.CheckInEvent `json:"data"`
}
