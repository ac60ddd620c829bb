package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/attendance/internal/lock"
	"github.com/your-org/attendance/internal/matcher"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/seal"
	"github.com/your-org/attendance/internal/storage"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	store     *storage.MemoryStore
	templates *seal.Templates
	service   *Service
	published []models.CheckInEvent
	pubErr    error
	mu        sync.Mutex
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key := make([]byte, seal.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	sealer, err := seal.NewAEADSealer(key)
	require.NoError(t, err)

	f := &fixture{
		store:     storage.NewMemoryStore(),
		templates: seal.NewTemplates(sealer),
		now:       time.Date(2024, 3, 4, 8, 0, 0, 0, wib),
	}
	pub := PublisherFunc(func(ctx context.Context, ev models.CheckInEvent) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, ev)
		return f.pubErr
	})
	f.service = NewService(f.store, matcher.New(matcher.DefaultTolerance, matcher.StrategyFirst),
		f.templates, lock.NewKeyedMutex(), pub, Options{
			Location:     wib,
			DefaultVenue: "Unknown Venue",
			DefaultEvent: "General",
			Now: func() time.Time {
				f.mu.Lock()
				defer f.mu.Unlock()
				return f.now
			},
		})
	return f
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func face(seed float64) models.Embedding {
	var e models.Embedding
	for i := range e {
		e[i] = seed
	}
	return e
}

func (f *fixture) enroll(t *testing.T, digitalID, name, event string, emb models.Embedding) *models.Identity {
	t.Helper()
	sealed, err := f.templates.Seal(emb)
	require.NoError(t, err)
	ident := &models.Identity{
		ID:         uuid.New(),
		DigitalID:  digitalID,
		Name:       name,
		Event:      event,
		Template:   sealed,
		EnrolledAt: time.Now(),
	}
	require.NoError(t, f.store.CreateIdentity(context.Background(), ident))
	return ident
}

func (f *fixture) logCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.store.ListLogs(context.Background(), storage.LogFilter{})
	require.NoError(t, err)
	return total
}

func TestCheckIn_RecordsThenDeduplicates(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))
	ctx := context.Background()

	first, err := f.service.CheckIn(ctx, face(0.1), "", "")
	require.NoError(t, err)
	assert.False(t, first.AlreadyLogged)
	assert.Equal(t, "BIL-1001", first.Identity.DigitalID)
	assert.Equal(t, "Seminar", first.Log.Event, "falls back to the registered event")
	assert.Equal(t, "Unknown Venue", first.Log.Venue)
	assert.Equal(t, 1.0, first.Log.Confidence)
	assert.Equal(t, "Ayu checked in to Seminar", first.Log.Title)

	f.setNow(f.now.Add(3 * time.Hour))
	second, err := f.service.CheckIn(ctx, face(0.1), "Seminar", "Hall B")
	require.NoError(t, err)
	assert.True(t, second.AlreadyLogged)
	assert.Equal(t, first.Log.ID, second.Log.ID)

	assert.Equal(t, 1, f.logCount(t))
	assert.Len(t, f.published, 1)
}

func TestCheckIn_NewCivilDayRecordsAgain(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))
	ctx := context.Background()

	f.setNow(time.Date(2024, 3, 4, 23, 59, 59, 0, wib))
	_, err := f.service.CheckIn(ctx, face(0.1), "", "")
	require.NoError(t, err)

	f.setNow(time.Date(2024, 3, 5, 0, 0, 0, 0, wib))
	res, err := f.service.CheckIn(ctx, face(0.1), "", "")
	require.NoError(t, err)
	assert.False(t, res.AlreadyLogged)
	assert.Equal(t, 2, f.logCount(t))
}

func TestCheckIn_DifferentEventsAreSeparate(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "", face(0.1))
	ctx := context.Background()

	a, err := f.service.CheckIn(ctx, face(0.1), "", "")
	require.NoError(t, err)
	assert.Equal(t, "General", a.Log.Event)

	b, err := f.service.CheckIn(ctx, face(0.1), "Workshop", "")
	require.NoError(t, err)
	assert.False(t, b.AlreadyLogged)
	assert.Equal(t, 2, f.logCount(t))
}

func TestCheckIn_NoMatch(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))

	_, err := f.service.CheckIn(context.Background(), face(0.9), "", "")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, 0, f.logCount(t))
	assert.Empty(t, f.published)
}

func TestCheckIn_SkipsCorruptTemplate(t *testing.T) {
	f := newFixture(t)
	broken := &models.Identity{
		ID: uuid.New(), DigitalID: "BIL-0999", Name: "Broken",
		Template: "not-a-sealed-blob", EnrolledAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.store.CreateIdentity(context.Background(), broken))
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))

	res, err := f.service.CheckIn(context.Background(), face(0.1), "", "")
	require.NoError(t, err)
	assert.Equal(t, "BIL-1001", res.Identity.DigitalID)
}

func TestCheckIn_PersistenceError(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))
	f.store.CreateLogError = errors.New("disk full")

	_, err := f.service.CheckIn(context.Background(), face(0.1), "", "")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, f.published)
}

func TestCheckIn_StoreReadError(t *testing.T) {
	f := newFixture(t)
	f.store.ListTemplatesError = errors.New("connection refused")

	_, err := f.service.CheckIn(context.Background(), face(0.1), "", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestCheckIn_PublishFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))
	f.pubErr = errors.New("nats down")

	res, err := f.service.CheckIn(context.Background(), face(0.1), "", "")
	require.NoError(t, err)
	assert.False(t, res.AlreadyLogged)
	assert.Equal(t, 1, f.logCount(t))
}

func TestCheckIn_ConcurrentScansWriteOnce(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "BIL-1001", "Ayu", "Seminar", face(0.1))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*CheckInResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.service.CheckIn(ctx, face(0.1), "Seminar", "")
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, r := range results {
		require.NotNil(t, r)
		if !r.AlreadyLogged {
			fresh++
		}
		assert.Equal(t, results[0].Log.ID, r.Log.ID)
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, f.logCount(t))
}

func TestDeduplicator_DayBoundary(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	late := &models.AttendanceLog{
		ID: uuid.New(), IdentityID: "BIL-1001", Event: "Seminar", Confidence: 0.9,
		OccurredAt: time.Date(2024, 3, 4, 23, 59, 59, 0, wib),
	}
	require.NoError(t, store.CreateLog(ctx, late))

	d := NewDeduplicator(store, wib)

	got, err := d.AlreadyLogged(ctx, "BIL-1001", "Seminar", time.Date(2024, 3, 4, 7, 0, 0, 0, wib))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, late.ID, got.ID)

	got, err = d.AlreadyLogged(ctx, "BIL-1001", "Seminar", time.Date(2024, 3, 5, 0, 0, 0, 0, wib))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = d.AlreadyLogged(ctx, "BIL-1001", "Workshop", time.Date(2024, 3, 4, 9, 0, 0, 0, wib))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecorder_ReturnsExistingWhenRaceLost(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, wib)
	ident := &models.Identity{DigitalID: "BIL-1001", Name: "Ayu"}

	r := NewRecorder(store, wib)
	first, created, err := r.Record(ctx, ident, "Seminar", "Hall A", 0.87654, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0.877, first.Confidence)

	second, created, err := r.Record(ctx, ident, "Seminar", "Hall A", 0.9, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
