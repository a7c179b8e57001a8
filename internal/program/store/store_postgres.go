package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pgplatform "github.com/fudign/kfa-sub000/internal/platform/postgres"
	"github.com/fudign/kfa-sub000/internal/program/models"
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
// Programs
// -----------------------------------------------------------------------------

const programColumns = `
	id, title, description, program_type, status, starts_at, ends_at, enrollment_deadline,
	max_students, enrolled_count, requires_approval, price, member_price, cpe_hours, has_exam,
	passing_score, issues_certificate, created_at, updated_at, deleted_at`

func scanProgram(row rowScanner) (*models.Program, error) {
	var p models.Program
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Type, &p.Status, &p.StartsAt, &p.EndsAt, &p.EnrollmentDeadline,
		&p.MaxStudents, &p.EnrolledCount, &p.RequiresApproval, &p.Price, &p.MemberPrice, &p.CPEHours, &p.HasExam,
		&p.PassingScore, &p.IssuesCertificate, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProgram(ctx context.Context, p *models.Program) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO programs (`+programColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		p.ID, p.Title, p.Description, p.Type, p.Status, p.StartsAt, p.EndsAt, p.EnrollmentDeadline,
		p.MaxStudents, p.EnrolledCount, p.RequiresApproval, p.Price, p.MemberPrice, p.CPEHours, p.HasExam,
		p.PassingScore, p.IssuesCertificate, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

func (s *PostgresStore) findProgram(ctx context.Context, programID id.ProgramID, suffix string) (*models.Program, error) {
	p, err := scanProgram(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = $1 AND deleted_at IS NULL`+suffix, programID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	return s.findProgram(ctx, programID, "")
}

// LockProgram holds the program row until the surrounding tx ends.
func (s *PostgresStore) LockProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	return s.findProgram(ctx, programID, " FOR UPDATE")
}

func programWhere(filter models.ProgramFilter) (string, []any) {
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
		add("program_type = $%d", filter.Type)
	}
	if filter.Search != "" {
		add("title ILIKE $%d", "%"+escapeLike(filter.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func (s *PostgresStore) ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) ([]*models.Program, int, error) {
	clause, args := programWhere(filter)
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM programs WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM programs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		programColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()
	var out []*models.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan program: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate programs: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) DeleteProgram(ctx context.Context, programID id.ProgramID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE programs SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, programID, now)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountLive(ctx context.Context, programID id.ProgramID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM program_enrollments
		WHERE program_id = $1 AND status NOT IN ('cancelled', 'dropped') AND deleted_at IS NULL`, programID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live enrollments: %w", err)
	}
	return n, nil
}

// AdjustEnrolled applies delta in place; the CHECK constraint rejects a
// negative count.
func (s *PostgresStore) AdjustEnrolled(ctx context.Context, programID id.ProgramID, delta int) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE programs SET enrolled_count = enrolled_count + $2 WHERE id = $1`, programID, delta)
	if err != nil {
		return fmt.Errorf("adjust enrolled_count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Enrollments
// -----------------------------------------------------------------------------

const enrollmentColumns = `
	id, program_id, user_id, user_name, user_email, status, amount_paid, progress, approved_at,
	approved_by, started_at, completed_at, exam_score, passed, cpe_hours_earned,
	certificate_issued_at, certificate_url, cancelled_at, notes, created_at, updated_at, deleted_at`

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := row.Scan(
		&e.ID, &e.ProgramID, &e.UserID, &e.UserName, &e.UserEmail, &e.Status, &e.AmountPaid, &e.Progress, &e.ApprovedAt,
		&e.ApprovedBy, &e.StartedAt, &e.CompletedAt, &e.ExamScore, &e.Passed, &e.CPEHoursEarned,
		&e.CertificateIssuedAt, &e.CertificateURL, &e.CancelledAt, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) Exists(ctx context.Context, programID id.ProgramID, userID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM program_enrollments WHERE program_id = $1 AND user_id = $2 AND deleted_at IS NULL)`,
		programID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Enrollment) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO program_enrollments (`+enrollmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		e.ID, e.ProgramID, e.UserID, e.UserName, e.UserEmail, e.Status, e.AmountPaid, e.Progress, e.ApprovedAt,
		e.ApprovedBy, e.StartedAt, e.CompletedAt, e.ExamScore, e.Passed, e.CPEHoursEarned,
		e.CertificateIssuedAt, e.CertificateURL, e.CancelledAt, e.Notes, e.CreatedAt, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "program_enrollments_program_user_unique") {
			return fmt.Errorf("already enrolled: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	e, err := scanEnrollment(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM program_enrollments WHERE id = $1 AND deleted_at IS NULL`, enrollmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Execute(ctx context.Context, enrollmentID id.EnrollmentID, validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error) {
	var result *models.Enrollment
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		q := s.execer(ctx)
		e, err := scanEnrollment(q.QueryRowContext(ctx,
			`SELECT `+enrollmentColumns+` FROM program_enrollments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, enrollmentID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock enrollment: %w", err)
		}
		if err := validate(e); err != nil {
			return err
		}
		mutate(e)
		_, err = q.ExecContext(ctx, `
			UPDATE program_enrollments
			SET status = $2, progress = $3, approved_at = $4, approved_by = $5, started_at = $6,
				completed_at = $7, exam_score = $8, passed = $9, cpe_hours_earned = $10,
				certificate_issued_at = $11, certificate_url = $12, cancelled_at = $13, notes = $14,
				updated_at = $15
			WHERE id = $1`,
			e.ID, e.Status, e.Progress, e.ApprovedAt, e.ApprovedBy, e.StartedAt,
			e.CompletedAt, e.ExamScore, e.Passed, e.CPEHoursEarned,
			e.CertificateIssuedAt, e.CertificateURL, e.CancelledAt, e.Notes,
			e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, enrollmentID id.EnrollmentID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE program_enrollments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		enrollmentID, now)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func where(filter models.ListFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.ProgramID != nil {
		add("program_id = $?", *filter.ProgramID)
	}
	if filter.UserID != nil {
		add("user_id = $?", *filter.UserID)
	}
	if filter.Status != "" {
		add("status = $?", filter.Status)
	}
	if filter.Active {
		conds = append(conds, "status IN ('approved', 'active')")
	}
	if filter.Search != "" {
		add("(user_name ILIKE $? OR user_email ILIKE $?)", "%"+escapeLike(filter.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Enrollment, int, error) {
	clause, args := where(filter)
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM program_enrollments WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM program_enrollments WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		enrollmentColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()
	var out []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, total, nil
}

// Stats folds one row per status into the aggregate; progress is summed per
// status so the average can be restricted to active and completed rows.
func (s *PostgresStore) Stats(ctx context.Context, programID *id.ProgramID) (models.Stats, error) {
	clause, args := where(models.ListFilter{ProgramID: programID})
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT status, COUNT(*),
			COUNT(*) FILTER (WHERE passed),
			COUNT(*) FILTER (WHERE certificate_issued_at IS NOT NULL),
			COALESCE(SUM(cpe_hours_earned), 0),
			COALESCE(SUM(progress), 0)
		FROM program_enrollments WHERE `+clause+` GROUP BY status`, args...)
	if err != nil {
		return models.Stats{}, fmt.Errorf("enrollment stats: %w", err)
	}
	defer rows.Close()
	stats := models.Stats{ByStatus: make(map[models.Status]int)}
	progressSum, progressRows := 0, 0
	for rows.Next() {
		var (
			status   models.Status
			n        int
			passed   int
			certs    int
			hours    float64
			progress int
		)
		if err := rows.Scan(&status, &n, &passed, &certs, &hours, &progress); err != nil {
			return models.Stats{}, fmt.Errorf("scan enrollment stats: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Total += n
		stats.Passed += passed
		stats.CertificatesIssued += certs
		stats.TotalCPEHoursEarned += hours
		switch status {
		case models.StatusActive, models.StatusCompleted:
			stats.Started += n
			progressSum += progress
			progressRows += n
		case models.StatusFailed:
			stats.Started += n
		}
	}
	if err := rows.Err(); err != nil {
		return models.Stats{}, fmt.Errorf("iterate enrollment stats: %w", err)
	}
	if progressRows > 0 {
		stats.AverageProgress = float64(progressSum) / float64(progressRows)
	}
	return stats, nil
}
