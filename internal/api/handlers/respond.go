package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/attendance"
	"github.com/your-org/attendance/internal/lock"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/internal/vision"
	"github.com/your-org/attendance/pkg/dto"
)

var (
	errInvalidQuery      = errors.New("invalid query parameter")
	errVisionUnavailable = errors.New("vision pipeline not initialized")
)

func success(c *gin.Context, status int, data any) {
	c.JSON(status, dto.Success(data))
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, dto.Fail(message))
}

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, vision.ErrNoFace):
		return http.StatusUnprocessableEntity, "No face detected"
	case errors.Is(err, errVisionUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, vision.ErrInvalidImage),
		errors.Is(err, models.ErrInvalidRecord),
		errors.Is(err, models.ErrInvalidEmbedding),
		errors.Is(err, storage.ErrInvalidFilter),
		errors.Is(err, errInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, lock.ErrTimeout):
		return http.StatusServiceUnavailable, "check-in in progress, retry"
	case errors.Is(err, attendance.ErrPersistence):
		return http.StatusInternalServerError, "failed to record attendance"
	}
	return http.StatusInternalServerError, err.Error()
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	fail(c, status, msg)
}
