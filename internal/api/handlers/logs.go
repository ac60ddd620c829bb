package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/pkg/dto"
)

type LogHandler struct {
	logs storage.LogStore
	loc  *time.Location
}

// NewLogHandler builds the attendance log endpoints. Bare dates in from/to
// are read in loc.
func NewLogHandler(logs storage.LogStore, loc *time.Location) *LogHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LogHandler{logs: logs, loc: loc}
}

func (h *LogHandler) List(c *gin.Context) {
	f, err := h.filter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	logs, total, err := h.logs.ListLogs(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AttendanceLog{}
	}

	success(c, http.StatusOK, dto.LogListResponse{
		Logs: logs,
		Page: dto.Page{Total: total, Limit: f.Limit, Offset: f.Offset},
	})
}

func (h *LogHandler) filter(c *gin.Context) (storage.LogFilter, error) {
	f := storage.LogFilter{
		IdentityID: c.Query("user_id"),
		Event:      c.Query("event"),
		Venue:      c.Query("venue"),
		Search:     strings.TrimSpace(c.Query("search")),
		Sort:       c.Query("sort"),
		Order:      c.Query("order"),
	}

	var err error
	if f.From, err = timeQuery(c, "from", h.loc, false); err != nil {
		return f, err
	}
	if f.To, err = timeQuery(c, "to", h.loc, true); err != nil {
		return f, err
	}
	f.Limit, f.Offset, err = pageQuery(c)
	return f, err
}

func (h *LogHandler) Get(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	success(c, http.StatusOK, entry)
}

func (h *LogHandler) Update(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.UpdateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Event != nil {
		entry.Event = strings.TrimSpace(*req.Event)
	}
	if req.Venue != nil {
		entry.Venue = strings.TrimSpace(*req.Venue)
	}
	if req.Title != nil {
		entry.Title = strings.TrimSpace(*req.Title)
	}

	if err := h.logs.UpdateLog(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	success(c, http.StatusOK, entry)
}

func (h *LogHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid log id")
		return
	}
	if err := h.logs.DeleteLog(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Response{Status: dto.StatusSuccess, Message: "deleted"})
}

func (h *LogHandler) lookup(c *gin.Context) (*models.AttendanceLog, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid log id")
		return nil, false
	}
	entry, err := h.logs.GetLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if entry == nil {
		fail(c, http.StatusNotFound, "log not found")
		return nil, false
	}
	return entry, true
}
