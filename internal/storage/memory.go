package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/your-org/attendance/internal/models"
)

// MemoryStore keeps identities and logs in process memory. It backs the
// "memory" store driver and doubles as the store in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]models.Identity
	logs       map[uuid.UUID]models.AttendanceLog

	// Error injection
	CreateIdentityError error
	ListTemplatesError  error
	CountError          error
	CreateLogError      error
	ListLogsError       error
	PingError           error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[uuid.UUID]models.Identity),
		logs:       make(map[uuid.UUID]models.AttendanceLog),
	}
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.PingError
}

// --- Identities ---

func (m *MemoryStore) CreateIdentity(ctx context.Context, ident *models.Identity) error {
	if m.CreateIdentityError != nil {
		return m.CreateIdentityError
	}
	if err := ident.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[ident.ID]; ok {
		return ErrConflict
	}
	for _, other := range m.identities {
		if other.DigitalID == ident.DigitalID {
			return ErrConflict
		}
	}
	if ident.UpdatedAt.IsZero() {
		ident.UpdatedAt = ident.EnrolledAt
	}
	m.identities[ident.ID] = *ident
	return nil
}

func (m *MemoryStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

func (m *MemoryStore) GetIdentityByDigitalID(ctx context.Context, digitalID string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ident := range m.identities {
		if ident.DigitalID == digitalID {
			return &ident, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListIdentities(ctx context.Context, f IdentityFilter) ([]models.Identity, int, error) {
	column, order, err := identitySort(f)
	if err != nil {
		return nil, 0, err
	}
	needle := fold(f.Search)

	m.mu.RLock()
	var out []models.Identity
	for _, ident := range m.identities {
		if f.Event != "" && ident.Event != f.Event {
			continue
		}
		if needle != "" && !containsFolded(needle, ident.Name, ident.Email, ident.Phone, ident.DigitalID) {
			continue
		}
		out = append(out, ident)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		c := compareIdentities(out[i], out[j], column)
		if c == 0 {
			c = strings.Compare(out[i].ID.String(), out[j].ID.String())
		}
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})

	total := len(out)
	start, end := page(total, f.Limit, f.Offset)
	return out[start:end], total, nil
}

func compareIdentities(a, b models.Identity, column string) int {
	switch column {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "digital_id":
		return strings.Compare(a.DigitalID, b.DigitalID)
	case "event":
		return strings.Compare(a.Event, b.Event)
	default:
		return a.EnrolledAt.Compare(b.EnrolledAt)
	}
}

func (m *MemoryStore) UpdateIdentity(ctx context.Context, ident *models.Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.identities[ident.ID]
	if !ok {
		return ErrNotFound
	}
	ident.UpdatedAt = time.Now()
	stored.Name = ident.Name
	stored.Email = ident.Email
	stored.Phone = ident.Phone
	stored.Event = ident.Event
	stored.PhotoKey = ident.PhotoKey
	stored.UpdatedAt = ident.UpdatedAt
	m.identities[ident.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return ErrNotFound
	}
	delete(m.identities, id)
	return nil
}

func (m *MemoryStore) ListTemplates(ctx context.Context) ([]models.Identity, error) {
	if m.ListTemplatesError != nil {
		return nil, m.ListTemplatesError
	}
	m.mu.RLock()
	var out []models.Identity
	for _, ident := range m.identities {
		if ident.HasTemplate() {
			out = append(out, ident)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].EnrolledAt.Compare(out[j].EnrolledAt); c != 0 {
			return c < 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *MemoryStore) UpdateTemplate(ctx context.Context, id uuid.UUID, template string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	ident.Template = template
	ident.UpdatedAt = time.Now()
	m.identities[id] = ident
	return nil
}

func (m *MemoryStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// --- Attendance logs ---

func (m *MemoryStore) CreateLog(ctx context.Context, log *models.AttendanceLog) error {
	if m.CreateLogError != nil {
		return m.CreateLogError
	}
	if err := log.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[log.ID]; ok {
		return ErrConflict
	}
	m.logs[log.ID] = *log
	return nil
}

func (m *MemoryStore) CreateLogIfAbsent(ctx context.Context, key models.DedupKey, log *models.AttendanceLog, dayStart, dayEnd time.Time) (*models.AttendanceLog, bool, error) {
	if m.CreateLogError != nil {
		return nil, false, m.CreateLogError
	}
	if err := log.Validate(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *models.AttendanceLog
	for _, l := range m.logs {
		if l.IdentityID != key.IdentityID || l.Event != key.Event {
			continue
		}
		if l.OccurredAt.Before(dayStart) || !l.OccurredAt.Before(dayEnd) {
			continue
		}
		if existing == nil || l.OccurredAt.Before(existing.OccurredAt) {
			found := l
			existing = &found
		}
	}
	if existing != nil {
		return existing, false, nil
	}
	if _, ok := m.logs[log.ID]; ok {
		return nil, false, ErrConflict
	}
	m.logs[log.ID] = *log
	stored := *log
	return &stored, true, nil
}

func (m *MemoryStore) GetLog(ctx context.Context, id uuid.UUID) (*models.AttendanceLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log, ok := m.logs[id]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (m *MemoryStore) ListLogs(ctx context.Context, f LogFilter) ([]models.AttendanceLog, int, error) {
	if m.ListLogsError != nil {
		return nil, 0, m.ListLogsError
	}
	column, order, err := logSort(f)
	if err != nil {
		return nil, 0, err
	}
	needle := fold(f.Search)

	m.mu.RLock()
	var out []models.AttendanceLog
	for _, l := range m.logs {
		if f.IdentityID != "" && l.IdentityID != f.IdentityID {
			continue
		}
		if f.Event != "" && l.Event != f.Event {
			continue
		}
		if f.Venue != "" && l.Venue != f.Venue {
			continue
		}
		if f.From != nil && l.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !l.OccurredAt.Before(*f.To) {
			continue
		}
		if needle != "" && !containsFolded(needle, l.IdentityID, l.Event, l.Venue, l.Title) {
			continue
		}
		out = append(out, l)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		c := compareLogs(out[i], out[j], column)
		if c == 0 {
			c = strings.Compare(out[i].ID.String(), out[j].ID.String())
		}
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})

	total := len(out)
	start, end := page(total, f.Limit, f.Offset)
	return out[start:end], total, nil
}

func compareLogs(a, b models.AttendanceLog, column string) int {
	switch column {
	case "confidence":
		switch {
		case a.Confidence < b.Confidence:
			return -1
		case a.Confidence > b.Confidence:
			return 1
		}
		return 0
	case "identity_id":
		return strings.Compare(a.IdentityID, b.IdentityID)
	case "event":
		return strings.Compare(a.Event, b.Event)
	case "venue":
		return strings.Compare(a.Venue, b.Venue)
	default:
		return a.OccurredAt.Compare(b.OccurredAt)
	}
}

func (m *MemoryStore) UpdateLog(ctx context.Context, log *models.AttendanceLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[log.ID]; !ok {
		return ErrNotFound
	}
	m.logs[log.ID] = *log
	return nil
}

func (m *MemoryStore) DeleteLog(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[id]; !ok {
		return ErrNotFound
	}
	delete(m.logs, id)
	return nil
}

// fold case-folds s for caseless comparison. Casers are not safe for
// concurrent use, so each call builds its own.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

func containsFolded(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(fold(f), needle) {
			return true
		}
	}
	return false
}
