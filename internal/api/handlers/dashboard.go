package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/analytics"
)

// DefaultDashboardDays is the heatmap window when ?days= is absent.
const DefaultDashboardDays = 7

type DashboardHandler struct {
	source analytics.Source
	base   analytics.Params
	now    func() time.Time
}

// NewDashboardHandler serves aggregate stats. base carries the location,
// on-time window and latest-log limit; the rest is taken per request.
func NewDashboardHandler(source analytics.Source, base analytics.Params) *DashboardHandler {
	return &DashboardHandler{source: source, base: base, now: time.Now}
}

// Get handles GET /v1/dashboard?days=N&event=E. days defaults to
// DefaultDashboardDays, 0 covers the whole history and anything above
// analytics.MaxWindowDays is rejected with 400. An empty event means all events.
func (h *DashboardHandler) Get(c *gin.Context) {
	days, err := intQuery(c, "days", DefaultDashboardDays)
	if err != nil {
		respondError(c, err)
		return
	}
	if days > analytics.MaxWindowDays {
		respondError(c, fmt.Errorf("%w: days must be at most %d", errInvalidQuery, analytics.MaxWindowDays))
		return
	}

	p := h.base
	p.WindowDays = days
	p.Event = c.Query("event")
	p.Now = h.now()

	stats, err := analytics.Compute(c.Request.Context(), h.source, p)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, http.StatusOK, stats)
}
