package dto

import "github.com/your-org/attendance/internal/models"

type RegisterRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Event string `json:"event"`
	// Image is a data URL or bare base64 JPEG, PNG, WebP or BMP.
	Image string `json:"image" binding:"required"`
}

type RegisterResponse struct {
	DigitalID string          `json:"digital_id"`
	User      models.Identity `json:"user"`
}

// UpdateUserRequest changes only the fields that are present.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Event *string `json:"event"`
}

type UserListResponse struct {
	Users []models.Identity `json:"users"`
	Page
}

type UserDetailResponse struct {
	User models.Identity        `json:"user"`
	Log  []models.AttendanceLog `json:"log"`
}
