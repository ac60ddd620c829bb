package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

var (
	// ErrNotFound is returned by updates and deletes that match no record.
	// Lookups return nil, nil instead.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would break a uniqueness constraint.
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrInvalidFilter is returned for unknown sort fields or orders.
	ErrInvalidFilter = errors.New("invalid filter")
)

// IdentityFilter narrows ListIdentities. Search is a case-insensitive
// substring match over name, email, phone and digital id. Limit 0 means no limit.
type IdentityFilter struct {
	Event  string
	Search string
	Sort   string
	Order  string
	Limit  int
	Offset int
}

// LogFilter narrows ListLogs. From is inclusive and To exclusive. Search is a
// case-insensitive substring match over identity, event, venue and title.
type LogFilter struct {
	IdentityID string
	Event      string
	Venue      string
	From       *time.Time
	To         *time.Time
	Search     string
	Sort       string
	Order      string
	Limit      int
	Offset     int
}

// Sort fields accepted by the list operations, mapped to column names.
var (
	identitySortColumns = map[string]string{
		"":            "enrolled_at",
		"enrolled_at": "enrolled_at",
		"name":        "name",
		"digital_id":  "digital_id",
		"event":       "event",
	}
	logSortColumns = map[string]string{
		"":                 "occurred_at",
		"timestamp":        "occurred_at",
		"confidence_score": "confidence",
		"user_id":          "identity_id",
		"event":            "event",
		"venue":            "venue",
	}
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// IdentityStore persists enrolled identities.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, ident *models.Identity) error
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	GetIdentityByDigitalID(ctx context.Context, digitalID string) (*models.Identity, error)
	ListIdentities(ctx context.Context, f IdentityFilter) ([]models.Identity, int, error)
	UpdateIdentity(ctx context.Context, ident *models.Identity) error
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
	// ListTemplates returns every identity carrying a template, oldest enrollment first.
	ListTemplates(ctx context.Context) ([]models.Identity, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, template string) error
	CountIdentities(ctx context.Context) (int, error)
}

// LogStore persists attendance entries.
type LogStore interface {
	CreateLog(ctx context.Context, log *models.AttendanceLog) error
	// CreateLogIfAbsent inserts log unless an entry for key.IdentityID and
	// key.Event already exists in [dayStart, dayEnd). It returns the stored
	// entry and whether it was created by this call.
	CreateLogIfAbsent(ctx context.Context, key models.DedupKey, log *models.AttendanceLog, dayStart, dayEnd time.Time) (*models.AttendanceLog, bool, error)
	GetLog(ctx context.Context, id uuid.UUID) (*models.AttendanceLog, error)
	ListLogs(ctx context.Context, f LogFilter) ([]models.AttendanceLog, int, error)
	UpdateLog(ctx context.Context, log *models.AttendanceLog) error
	DeleteLog(ctx context.Context, id uuid.UUID) error
}

type Store interface {
	IdentityStore
	LogStore
	Ping(ctx context.Context) error
	Close()
}

func normalizeOrder(order string, def string) (string, error) {
	switch strings.ToLower(order) {
	case "":
		return def, nil
	case OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	}
	return "", fmt.Errorf("%w: order %q", ErrInvalidFilter, order)
}

// identitySort resolves the sort column and direction for f.
func identitySort(f IdentityFilter) (column, order string, err error) {
	column, ok := identitySortColumns[f.Sort]
	if !ok {
		return "", "", fmt.Errorf("%w: cannot sort identities by %q", ErrInvalidFilter, f.Sort)
	}
	order, err = normalizeOrder(f.Order, OrderAsc)
	return column, order, err
}

// logSort resolves the sort column and direction for f. Logs default to newest first.
func logSort(f LogFilter) (column, order string, err error) {
	column, ok := logSortColumns[f.Sort]
	if !ok {
		return "", "", fmt.Errorf("%w: cannot sort logs by %q", ErrInvalidFilter, f.Sort)
	}
	order, err = normalizeOrder(f.Order, OrderDesc)
	return column, order, err
}

// page applies offset and limit to a slice of n items.
func page(n, limit, offset int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end = n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
