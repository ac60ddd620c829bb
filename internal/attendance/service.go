package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/your-org/attendance/internal/lock"
	"github.com/your-org/attendance/internal/matcher"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
)

// Store is everything a check-in needs from the record store.
type Store interface {
	LogReader
	LogWriter
	ListTemplates(ctx context.Context) ([]models.Identity, error)
}

// Publisher receives every newly written entry.
type Publisher interface {
	PublishCheckIn(ctx context.Context, ev models.CheckInEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev models.CheckInEvent) error

func (f PublisherFunc) PublishCheckIn(ctx context.Context, ev models.CheckInEvent) error {
	return f(ctx, ev)
}

type Options struct {
	Location     *time.Location
	DefaultVenue string
	DefaultEvent string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// CheckInResult is the outcome of a scan that matched an identity.
type CheckInResult struct {
	Identity      *models.Identity
	Log           *models.AttendanceLog
	Match         matcher.Result
	AlreadyLogged bool
}

// Service runs the check-in flow: match, dedup, record, publish.
type Service struct {
	store     Store
	matcher   *matcher.Matcher
	opener    matcher.TemplateOpener
	locker    lock.Locker
	publisher Publisher
	dedup     *Deduplicator
	recorder  *Recorder
	opts      Options
}

// NewService wires a check-in service. publisher may be nil.
func NewService(store Store, m *matcher.Matcher, opener matcher.TemplateOpener, locker lock.Locker, publisher Publisher, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		matcher:   m,
		opener:    opener,
		locker:    locker,
		publisher: publisher,
		dedup:     NewDeduplicator(store, opts.Location),
		recorder:  NewRecorder(store, opts.Location),
		opts:      opts,
	}
}

func (s *Service) Location() *time.Location { return s.opts.Location }

// CheckIn matches probe against enrolled templates and records attendance
// for the matched identity. An empty event falls back to the identity's
// registered event, then to the default event. ErrNoMatch is returned when
// nobody is within tolerance.
func (s *Service) CheckIn(ctx context.Context, probe models.Embedding, event, venue string) (*CheckInResult, error) {
	identities, err := s.store.ListTemplates(ctx)
	if err != nil {
		observability.ScansTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	start := time.Now()
	res, ident, stats := s.matcher.MatchTemplates(probe, identities, s.opener)
	observability.MatchDuration.Observe(time.Since(start).Seconds())
	if stats.Skipped > 0 {
		observability.TemplatesSkipped.Add(float64(stats.Skipped))
	}

	if ident == nil {
		observability.ScansTotal.WithLabelValues(observability.OutcomeNoMatch).Inc()
		slog.Info("scan did not match", "evaluated", stats.Evaluated, "skipped", stats.Skipped)
		return nil, ErrNoMatch
	}

	event = s.resolveEvent(event, ident)
	if venue == "" {
		venue = s.opts.DefaultVenue
	}

	result, err := s.record(ctx, ident, res, event, venue)
	if err != nil {
		observability.ScansTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	if result.AlreadyLogged {
		observability.ScansTotal.WithLabelValues(observability.OutcomeDuplicate).Inc()
		slog.Info("attendance already recorded today",
			"digital_id", ident.DigitalID, "event", event, "log_id", result.Log.ID)
		return result, nil
	}

	observability.ScansTotal.WithLabelValues(observability.OutcomeRecorded).Inc()
	observability.CheckInsRecorded.WithLabelValues(event).Inc()
	slog.Info("attendance recorded",
		"digital_id", ident.DigitalID, "event", event, "venue", venue,
		"confidence", result.Log.Confidence, "log_id", result.Log.ID)

	s.publish(ctx, ident, result.Log)
	return result, nil
}

// record holds the per-key lock across the dedup check and the write.
func (s *Service) record(ctx context.Context, ident *models.Identity, res matcher.Result, event, venue string) (*CheckInResult, error) {
	now := s.opts.Now()
	key := models.DedupKey{IdentityID: ident.DigitalID, Event: event, Day: CivilDate(now, s.opts.Location)}

	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("lock check-in: %w", err)
	}
	defer unlock()

	result := &CheckInResult{Identity: ident, Match: res}

	prior, err := s.dedup.AlreadyLogged(ctx, ident.DigitalID, event, now)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		result.Log = prior
		result.AlreadyLogged = true
		return result, nil
	}

	entry, created, err := s.recorder.Record(ctx, ident, event, venue, res.Confidence, now)
	if err != nil {
		return nil, err
	}
	result.Log = entry
	result.AlreadyLogged = !created
	return result, nil
}

func (s *Service) resolveEvent(event string, ident *models.Identity) string {
	switch {
	case event != "":
		return event
	case ident.Event != "":
		return ident.Event
	default:
		return s.opts.DefaultEvent
	}
}

func (s *Service) publish(ctx context.Context, ident *models.Identity, entry *models.AttendanceLog) {
	if s.publisher == nil {
		return
	}
	ev := models.CheckInEvent{Log: *entry, Name: ident.Name, Published: time.Now().UTC()}
	if err := s.publisher.PublishCheckIn(ctx, ev); err != nil {
		slog.Warn("publish check-in", "log_id", entry.ID, "error", err)
	}
}
