package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/attendance"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errInvalidQuery, name)
	}
	return n, nil
}

func pageQuery(c *gin.Context) (limit, offset int, err error) {
	if limit, err = intQuery(c, "limit", defaultPageLimit); err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset, err = intQuery(c, "offset", 0)
	return limit, offset, err
}

// timeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date in loc. A bare
// date used as an upper bound means the end of that day, so that ?to=DATE
// includes DATE.
func timeQuery(c *gin.Context, name string, loc *time.Location, upper bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation(attendance.DateLayout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", errInvalidQuery, name)
	}
	if upper {
		d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	}
	return &d, nil
}
