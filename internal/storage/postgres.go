package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/models"
)

const uniqueViolation = "23505"

const (
	identityColumns = `id, digital_id, name, email, phone, event, template, photo_key, enrolled_at, updated_at`
	logColumns      = `id, identity_id, event, venue, confidence, occurred_at, title`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	var i models.Identity
	if err := row.Scan(&i.ID, &i.DigitalID, &i.Name, &i.Email, &i.Phone, &i.Event,
		&i.Template, &i.PhotoKey, &i.EnrolledAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return &i, nil
}

func scanLog(row pgx.Row) (*models.AttendanceLog, error) {
	var l models.AttendanceLog
	if err := row.Scan(&l.ID, &l.IdentityID, &l.Event, &l.Venue, &l.Confidence, &l.OccurredAt, &l.Title); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, ident *models.Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	if ident.UpdatedAt.IsZero() {
		ident.UpdatedAt = ident.EnrolledAt
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ident.ID, ident.DigitalID, ident.Name, ident.Email, ident.Phone, ident.Event,
		ident.Template, ident.PhotoKey, ident.EnrolledAt, ident.UpdatedAt)
	if err != nil {
		return mapWriteError("create identity", err)
	}
	return nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	ident, err := scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) GetIdentityByDigitalID(ctx context.Context, digitalID string) (*models.Identity, error) {
	ident, err := scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE digital_id = $1`, digitalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity by digital id: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context, f IdentityFilter) ([]models.Identity, int, error) {
	column, order, err := identitySort(f)
	if err != nil {
		return nil, 0, err
	}
	where, args := identityWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM identities %s ORDER BY %s %s, id %s",
		identityColumns, where, column, order, order)
	query, args = appendPage(query, args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, *ident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) UpdateIdentity(ctx context.Context, ident *models.Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	ident.UpdatedAt = time.Now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE identities SET name = $1, email = $2, phone = $3, event = $4, photo_key = $5, updated_at = $6
		 WHERE id = $7`,
		ident.Name, ident.Email, ident.Phone, ident.Event, ident.PhotoKey, ident.UpdatedAt, ident.ID)
	if err != nil {
		return mapWriteError("update identity", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE template <> '' ORDER BY enrolled_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, *ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateTemplate(ctx context.Context, id uuid.UUID, template string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE identities SET template = $1, updated_at = $2 WHERE id = $3`, template, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// --- Attendance logs ---

func (s *PostgresStore) CreateLog(ctx context.Context, log *models.AttendanceLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if err := insertLog(ctx, s.pool, log); err != nil {
		return mapWriteError("create log", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertLog(ctx context.Context, db execer, log *models.AttendanceLog) error {
	_, err := db.Exec(ctx,
		`INSERT INTO attendance_logs (`+logColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.IdentityID, log.Event, log.Venue, log.Confidence, log.OccurredAt, log.Title)
	return err
}

// CreateLogIfAbsent serialises writers of one key with a transaction-scoped
// advisory lock, so the existence check and the insert cannot interleave
// with another replica doing the same.
func (s *PostgresStore) CreateLogIfAbsent(ctx context.Context, key models.DedupKey, log *models.AttendanceLog, dayStart, dayEnd time.Time) (*models.AttendanceLog, bool, error) {
	if err := log.Validate(); err != nil {
		return nil, false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}

	existing, err := scanLog(tx.QueryRow(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE identity_id = $1 AND event = $2 AND occurred_at >= $3 AND occurred_at < $4
		 ORDER BY occurred_at ASC LIMIT 1`,
		key.IdentityID, key.Event, dayStart.UTC(), dayEnd.UTC()))
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit tx: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, fmt.Errorf("check existing log: %w", err)
	}

	if err := insertLog(ctx, tx, log); err != nil {
		return nil, false, mapWriteError("create log", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	return log, true, nil
}

func (s *PostgresStore) GetLog(ctx context.Context, id uuid.UUID) (*models.AttendanceLog, error) {
	log, err := scanLog(s.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM attendance_logs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get log: %w", err)
	}
	return log, nil
}

func (s *PostgresStore) ListLogs(ctx context.Context, f LogFilter) ([]models.AttendanceLog, int, error) {
	column, order, err := logSort(f)
	if err != nil {
		return nil, 0, err
	}
	where, args := logWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM attendance_logs %s ORDER BY %s %s, id %s",
		logColumns, where, column, order, order)
	query, args = appendPage(query, args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) UpdateLog(ctx context.Context, log *models.AttendanceLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE attendance_logs SET identity_id = $1, event = $2, venue = $3, confidence = $4, occurred_at = $5, title = $6
		 WHERE id = $7`,
		log.IdentityID, log.Event, log.Venue, log.Confidence, log.OccurredAt, log.Title, log.ID)
	if err != nil {
		return fmt.Errorf("update log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteLog(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attendance_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Query building ---

type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

// search adds one ILIKE clause over columns sharing a single parameter.
func (w *whereBuilder) search(term string, columns ...string) {
	w.args = append(w.args, "%"+escapeLike(term)+"%")
	n := len(w.args)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", c, n)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) build() (string, []any) {
	if len(w.clauses) == 0 {
		return "", w.args
	}
	return "WHERE " + strings.Join(w.clauses, " AND "), w.args
}

func identityWhere(f IdentityFilter) (string, []any) {
	var w whereBuilder
	if f.Event != "" {
		w.add("event = $%d", f.Event)
	}
	if f.Search != "" {
		w.search(f.Search, "name", "email", "phone", "digital_id")
	}
	return w.build()
}

func logWhere(f LogFilter) (string, []any) {
	var w whereBuilder
	if f.IdentityID != "" {
		w.add("identity_id = $%d", f.IdentityID)
	}
	if f.Event != "" {
		w.add("event = $%d", f.Event)
	}
	if f.Venue != "" {
		w.add("venue = $%d", f.Venue)
	}
	if f.From != nil {
		w.add("occurred_at >= $%d", f.From.UTC())
	}
	if f.To != nil {
		w.add("occurred_at < $%d", f.To.UTC())
	}
	if f.Search != "" {
		w.search(f.Search, "identity_id", "event", "venue", "title")
	}
	return w.build()
}

func appendPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
