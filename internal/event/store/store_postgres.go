package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fudign/kfa-sub000/internal/event/models"
	pgplatform "github.com/fudign/kfa-sub000/internal/platform/postgres"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	txcontext "github.com/fudign/kfa-sub000/pkg/platform/tx"
)

type PostgresStore struct {
	db     *sql.DB
	runner *txcontext.PostgresRunner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewPostgresRunner(db, 0)}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Querier {
	return txcontext.Executor(ctx, s.db)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

const eventColumns = `
	id, title, description, event_type, status, location, starts_at, ends_at,
	registration_deadline, max_participants, registered_count, requires_approval, price,
	member_price, cpe_hours, issues_certificate, created_at, updated_at, deleted_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Type, &e.Status, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.RegistrationDeadline, &e.MaxParticipants, &e.RegisteredCount, &e.RequiresApproval, &e.Price,
		&e.MemberPrice, &e.CPEHours, &e.IssuesCertificate, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *models.Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		e.ID, e.Title, e.Description, e.Type, e.Status, e.Location, e.StartsAt, e.EndsAt,
		e.RegistrationDeadline, e.MaxParticipants, e.RegisteredCount, e.RequiresApproval, e.Price,
		e.MemberPrice, e.CPEHours, e.IssuesCertificate, e.CreatedAt, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) findEvent(ctx context.Context, eventID id.EventID, suffix string) (*models.Event, error) {
	e, err := scanEvent(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`+suffix, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.findEvent(ctx, eventID, "")
}

// LockEvent reads the event with a row lock held until the surrounding tx
// ends, so capacity checks and counter updates do not interleave.
func (s *PostgresStore) LockEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.findEvent(ctx, eventID, " FOR UPDATE")
}

func eventWhere(filter models.EventFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.PublicOnly {
		conds = append(conds, "status <> 'draft'")
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("event_type = $%d", filter.Type)
	}
	if filter.Upcoming {
		add("starts_at > $%d", filter.At)
	}
	if filter.Search != "" {
		add("title ILIKE $%d", "%"+escapeLike(filter.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter models.EventFilter, page pagination.Params) ([]*models.Event, int, error) {
	clause, args := eventWhere(filter)
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM events WHERE %s ORDER BY starts_at ASC LIMIT $%d OFFSET $%d`,
		eventColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, eventID id.EventID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE events SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, eventID, now)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountLive(ctx context.Context, eventID id.EventID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM event_registrations
		WHERE event_id = $1 AND status <> 'cancelled' AND deleted_at IS NULL`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live registrations: %w", err)
	}
	return n, nil
}

// AdjustRegistered applies delta in place; the CHECK constraint rejects a
// negative count.
func (s *PostgresStore) AdjustRegistered(ctx context.Context, eventID id.EventID, delta int) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE events SET registered_count = registered_count + $2 WHERE id = $1`, eventID, delta)
	if err != nil {
		return fmt.Errorf("adjust registered_count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

const registrationColumns = `
	id, event_id, user_id, user_name, user_email, status, answers, amount_paid, approved_at,
	approved_by, attended_at, cpe_hours_earned, certificate_issued_at, cancelled_at, notes,
	created_at, updated_at, deleted_at`

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r       models.Registration
		answers []byte
	)
	if err := row.Scan(
		&r.ID, &r.EventID, &r.UserID, &r.UserName, &r.UserEmail, &r.Status, &answers, &r.AmountPaid, &r.ApprovedAt,
		&r.ApprovedBy, &r.AttendedAt, &r.CPEHoursEarned, &r.CertificateIssuedAt, &r.CancelledAt, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt, &r.DeletedAt,
	); err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		r.Answers = append([]byte(nil), answers...)
	}
	return &r, nil
}

func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (s *PostgresStore) Exists(ctx context.Context, eventID id.EventID, userID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM event_registrations WHERE event_id = $1 AND user_id = $2 AND deleted_at IS NULL)`,
		eventID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO event_registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		r.ID, r.EventID, r.UserID, r.UserName, r.UserEmail, r.Status, jsonArg(r.Answers), r.AmountPaid, r.ApprovedAt,
		r.ApprovedBy, r.AttendedAt, r.CPEHoursEarned, r.CertificateIssuedAt, r.CancelledAt, r.Notes,
		r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "event_registrations_event_user_unique") {
			return fmt.Errorf("already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	r, err := scanRegistration(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE id = $1 AND deleted_at IS NULL`, regID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Execute(ctx context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	var result *models.Registration
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		q := s.execer(ctx)
		r, err := scanRegistration(q.QueryRowContext(ctx,
			`SELECT `+registrationColumns+` FROM event_registrations WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, regID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock registration: %w", err)
		}
		if err := validate(r); err != nil {
			return err
		}
		mutate(r)
		_, err = q.ExecContext(ctx, `
			UPDATE event_registrations
			SET status = $2, answers = $3, amount_paid = $4, approved_at = $5, approved_by = $6,
				attended_at = $7, cpe_hours_earned = $8, certificate_issued_at = $9, cancelled_at = $10,
				notes = $11, updated_at = $12
			WHERE id = $1`,
			r.ID, r.Status, jsonArg(r.Answers), r.AmountPaid, r.ApprovedAt, r.ApprovedBy,
			r.AttendedAt, r.CPEHoursEarned, r.CertificateIssuedAt, r.CancelledAt,
			r.Notes, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, regID id.RegistrationID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE event_registrations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		regID, now)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// where renders filter against event_registrations aliased as r.
func where(filter models.ListFilter) (string, []any) {
	conds := []string{"r.deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.EventID != nil {
		add("r.event_id = $?", *filter.EventID)
	}
	if filter.UserID != nil {
		add("r.user_id = $?", *filter.UserID)
	}
	if filter.Status != "" {
		add("r.status = $?", filter.Status)
	}
	if filter.Search != "" {
		add("(r.user_name ILIKE $? OR r.user_email ILIKE $?)", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.Upcoming {
		add("EXISTS (SELECT 1 FROM events e WHERE e.id = r.event_id AND e.starts_at > $?)", filter.At)
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// prefixed qualifies every column in a column list with alias.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Registration, int, error) {
	clause, args := where(filter)
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations r WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM event_registrations r WHERE %s ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`,
		prefixed(registrationColumns, "r."), clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var out []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) Stats(ctx context.Context, eventID *id.EventID) (models.Stats, error) {
	clause, args := where(models.ListFilter{EventID: eventID})
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT r.status, COUNT(*),
			COUNT(*) FILTER (WHERE r.certificate_issued_at IS NOT NULL),
			COALESCE(SUM(r.cpe_hours_earned), 0)
		FROM event_registrations r WHERE `+clause+` GROUP BY r.status`, args...)
	if err != nil {
		return models.Stats{}, fmt.Errorf("registration stats: %w", err)
	}
	defer rows.Close()
	stats := models.Stats{ByStatus: make(map[models.Status]int)}
	for rows.Next() {
		var (
			status models.Status
			n      int
			certs  int
			hours  float64
		)
		if err := rows.Scan(&status, &n, &certs, &hours); err != nil {
			return models.Stats{}, fmt.Errorf("scan registration stats: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Total += n
		stats.CertificatesIssued += certs
		stats.TotalCPEHoursEarned += hours
	}
	if err := rows.Err(); err != nil {
		return models.Stats{}, fmt.Errorf("iterate registration stats: %w", err)
	}
	return stats, nil
}
