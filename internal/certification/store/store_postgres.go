package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fudign/kfa-sub000/internal/certification/models"
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
// Programs
// -----------------------------------------------------------------------------

const programColumns = `
	id, name, code, type, description, validity_months, cpe_hours_required, is_active,
	created_at, updated_at, deleted_at`

func scanProgram(row rowScanner) (*models.Program, error) {
	var p models.Program
	if err := row.Scan(
		&p.ID, &p.Name, &p.Code, &p.Type, &p.Description, &p.ValidityMonths, &p.CPEHoursRequired, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProgram(ctx context.Context, p *models.Program) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO certification_programs (`+programColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Code, p.Type, p.Description, p.ValidityMonths, p.CPEHoursRequired, p.IsActive,
		p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "certification_programs_code_unique") {
			return fmt.Errorf("program code %s taken: %w", p.Code, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindProgram(ctx context.Context, programID id.CertificationProgramID) (*models.Program, error) {
	p, err := scanProgram(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM certification_programs WHERE id = $1 AND deleted_at IS NULL`, programID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPrograms(ctx context.Context, filter models.ProgramFilter, page pagination.Params) ([]*models.Program, int, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	clause := strings.Join(conds, " AND ")

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certification_programs WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM certification_programs WHERE %s
		ORDER BY name LIMIT $%d OFFSET $%d`, programColumns, clause, len(args)-1, len(args)), args...)
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

func (s *PostgresStore) DeleteProgram(ctx context.Context, programID id.CertificationProgramID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE certification_programs SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		programID, now)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountHeld(ctx context.Context, programID id.CertificationProgramID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM certifications
		WHERE program_id = $1 AND status = ANY($2) AND deleted_at IS NULL`,
		programID, pq.Array([]string{string(models.StatusInProgress), string(models.StatusPassed)}),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count held certifications: %w", err)
	}
	return n, nil
}

// NextSequence draws the next number for prefix. Concurrent callers get
// distinct values; the row lock is held until the surrounding tx ends.
func (s *PostgresStore) NextSequence(ctx context.Context, prefix string) (int, error) {
	var next int
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO certificate_sequences (prefix, last_value) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET last_value = certificate_sequences.last_value + 1
		RETURNING last_value`, prefix).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next certificate sequence: %w", err)
	}
	return next, nil
}

// -----------------------------------------------------------------------------
// Certifications
// -----------------------------------------------------------------------------

const certificationColumns = `
	id, user_id, program_id, certificate_number, holder_name, status, exam_score, exam_date,
	exam_results, issued_date, expiry_date, issued_by, reviewed_by, reviewed_at, revoked_by,
	revoked_at, notes, created_at, updated_at, deleted_at`

func scanCertification(row rowScanner) (*models.Certification, error) {
	var (
		c       models.Certification
		results []byte
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &c.ProgramID, &c.CertificateNumber, &c.HolderName, &c.Status, &c.ExamScore, &c.ExamDate,
		&results, &c.IssuedDate, &c.ExpiryDate, &c.IssuedBy, &c.ReviewedBy, &c.ReviewedAt, &c.RevokedBy,
		&c.RevokedAt, &c.Notes, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	); err != nil {
		return nil, err
	}
	if len(results) > 0 {
		c.ExamResults = append([]byte(nil), results...)
	}
	return &c, nil
}

func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (s *PostgresStore) HasLive(ctx context.Context, userID id.UserID, programID id.CertificationProgramID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM certifications
		WHERE user_id = $1 AND program_id = $2 AND status = ANY($3) AND deleted_at IS NULL)`,
		userID, programID, pq.Array(statusStrings(models.LiveStatuses)),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check live certification: %w", err)
	}
	return exists, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Certification) error {
	_, err := s.execer(ctx).ExecContext(ctx, `INSERT INTO certifications (`+certificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		c.ID, c.UserID, c.ProgramID, c.CertificateNumber, c.HolderName, c.Status, c.ExamScore, c.ExamDate,
		jsonArg(c.ExamResults), c.IssuedDate, c.ExpiryDate, c.IssuedBy, c.ReviewedBy, c.ReviewedAt, c.RevokedBy,
		c.RevokedAt, c.Notes, c.CreatedAt, c.UpdatedAt, c.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "certifications_live_per_program", "certifications_number_unique") {
			return fmt.Errorf("insert certification: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert certification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	c, err := scanCertification(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+certificationColumns+` FROM certifications WHERE id = $1 AND deleted_at IS NULL`, certID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find certification: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindVerification(ctx context.Context, number string) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT c.certificate_number, c.status, c.holder_name, p.name, c.issued_date, c.expiry_date
		FROM certifications c JOIN certification_programs p ON p.id = c.program_id
		WHERE c.certificate_number = $1 AND c.deleted_at IS NULL`, number,
	).Scan(&rec.CertificateNumber, &rec.Status, &rec.Holder, &rec.Program, &rec.IssuedDate, &rec.ExpiryDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Execute(ctx context.Context, certID id.CertificationID, validate func(*models.Certification) error, mutate func(*models.Certification)) (*models.Certification, error) {
	var result *models.Certification
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		q := s.execer(ctx)
		c, err := scanCertification(q.QueryRowContext(ctx,
			`SELECT `+certificationColumns+` FROM certifications WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, certID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock certification: %w", err)
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		_, err = q.ExecContext(ctx, `
			UPDATE certifications
			SET status = $2, exam_score = $3, exam_date = $4, exam_results = $5, issued_date = $6,
				expiry_date = $7, issued_by = $8, reviewed_by = $9, reviewed_at = $10, revoked_by = $11,
				revoked_at = $12, notes = $13, updated_at = $14
			WHERE id = $1`,
			c.ID, c.Status, c.ExamScore, c.ExamDate, jsonArg(c.ExamResults), c.IssuedDate,
			c.ExpiryDate, c.IssuedBy, c.ReviewedBy, c.ReviewedAt, c.RevokedBy,
			c.RevokedAt, c.Notes, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update certification: %w", err)
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, certID id.CertificationID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE certifications SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		certID, now)
	if err != nil {
		return fmt.Errorf("delete certification: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// where renders filter against the certifications table aliased as c.
func where(filter models.ListFilter) (string, []any) {
	conds := []string{"c.deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.UserID != nil {
		add("c.user_id = $?", *filter.UserID)
	}
	if filter.ProgramID != nil {
		add("c.program_id = $?", *filter.ProgramID)
	}
	if filter.Status != "" {
		add("c.status = $?", filter.Status)
	}
	if filter.Active {
		add("c.status = 'passed' AND (c.expiry_date IS NULL OR c.expiry_date >= $?)", filter.At)
	}
	if filter.Expired {
		add("c.status = 'passed' AND c.expiry_date < $?", filter.At)
	}
	if filter.Search != "" {
		add("(c.certificate_number ILIKE $? OR c.holder_name ILIKE $?)", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.HolderSearch != "" {
		add("c.holder_name ILIKE $?", "%"+escapeLike(filter.HolderSearch)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) count(ctx context.Context, filter models.ListFilter) (int, error) {
	clause, args := where(filter)
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certifications c WHERE `+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count certifications: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Certification, int, error) {
	total, err := s.count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	clause, args := where(filter)
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM certifications c WHERE %s
		ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`,
		prefixed(certificationColumns, "c."), clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list certifications: %w", err)
	}
	defer rows.Close()
	var out []*models.Certification
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan certification: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate certifications: %w", err)
	}
	return out, total, nil
}

// prefixed qualifies every column in a column list with alias.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (s *PostgresStore) Registry(ctx context.Context, filter models.RegistryFilter, page pagination.Params) ([]models.RegistryEntry, int, error) {
	lf := filter.ListFilter()
	total, err := s.count(ctx, lf)
	if err != nil {
		return nil, 0, err
	}
	clause, args := where(lf)
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT c.id, c.certificate_number, c.holder_name, c.program_id, p.name, p.code, c.issued_date, c.expiry_date
		FROM certifications c JOIN certification_programs p ON p.id = c.program_id
		WHERE %s ORDER BY lower(c.holder_name) LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registry: %w", err)
	}
	defer rows.Close()
	var out []models.RegistryEntry
	for rows.Next() {
		var e models.RegistryEntry
		if err := rows.Scan(&e.CertificationID, &e.CertificateNumber, &e.Holder, &e.ProgramID,
			&e.ProgramName, &e.ProgramCode, &e.IssuedDate, &e.ExpiryDate); err != nil {
			return nil, 0, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registry: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM certifications WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Status]int)
	for rows.Next() {
		var st models.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountExpired(ctx context.Context, now time.Time) (int, error) {
	return s.count(ctx, models.ListFilter{Expired: true, At: now})
}

func (s *PostgresStore) CountActive(ctx context.Context, now time.Time) (int, error) {
	return s.count(ctx, models.ListFilter{Active: true, At: now})
}

func (s *PostgresStore) CountPassedByProgram(ctx context.Context) ([]models.ProgramCount, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT p.id, p.name, p.code, COUNT(*)
		FROM certifications c JOIN certification_programs p ON p.id = c.program_id
		WHERE c.status = 'passed' AND c.deleted_at IS NULL
		GROUP BY p.id, p.name, p.code
		ORDER BY p.code`)
	if err != nil {
		return nil, fmt.Errorf("count by program: %w", err)
	}
	defer rows.Close()
	var out []models.ProgramCount
	for rows.Next() {
		var pc models.ProgramCount
		if err := rows.Scan(&pc.ProgramID, &pc.Name, &pc.Code, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan program count: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
