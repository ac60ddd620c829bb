package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/attendance"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/vision"
	"github.com/your-org/attendance/pkg/dto"
)

// CheckInService records attendance for a probe embedding.
type CheckInService interface {
	CheckIn(ctx context.Context, probe models.Embedding, event, venue string) (*attendance.CheckInResult, error)
}

type ScanHandler struct {
	extractor vision.Extractor
	checkins  CheckInService
}

// NewScanHandler builds the face scanner endpoint. extractor may be nil
// when the vision runtime failed to load.
func NewScanHandler(extractor vision.Extractor, checkins CheckInService) *ScanHandler {
	return &ScanHandler{extractor: extractor, checkins: checkins}
}

// Scan matches the captured face and records today's attendance. A repeat
// scan on the same day returns the entry already on record.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	_, emb, err := probe(h.extractor, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.checkins.CheckIn(c.Request.Context(), emb, req.Event, req.Venue)
	if errors.Is(err, attendance.ErrNoMatch) {
		c.JSON(http.StatusNotFound, dto.Response{
			Status:  dto.StatusFail,
			Message: "No match found",
			Data:    dto.ScanResponse{Match: false},
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	// a duplicate scan reports the entry already on record
	msg := "Attendance recorded"
	confidence := res.Match.Confidence
	if res.AlreadyLogged {
		msg = "Attendance already recorded today"
		if res.Log != nil {
			confidence = res.Log.Confidence
		}
	}
	c.JSON(http.StatusOK, dto.Response{
		Status:  dto.StatusSuccess,
		Message: msg,
		Data: dto.ScanResponse{
			Match:         true,
			UserID:        res.Identity.DigitalID,
			Name:          res.Identity.Name,
			Confidence:    confidence,
			AlreadyLogged: res.AlreadyLogged,
			Log:           res.Log,
		},
	})
}
