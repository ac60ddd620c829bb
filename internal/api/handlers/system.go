package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/pkg/dto"
)

// Check is one dependency probed by /readyz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type SystemHandler struct {
	checks []Check
}

func NewSystemHandler(checks ...Check) *SystemHandler {
	return &SystemHandler{checks: checks}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Response{Status: dto.StatusSuccess, Message: "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for _, chk := range h.checks {
		if err := chk.Ping(ctx); err != nil {
			checks[chk.Name] = err.Error()
			healthy = false
			continue
		}
		checks[chk.Name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Status: dto.StatusFail, Message: "not ready", Data: checks})
		return
	}
	c.JSON(http.StatusOK, dto.Response{Status: dto.StatusSuccess, Message: "ready", Data: checks})
}
