package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fudign/kfa-sub000/internal/cpe/models"
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

const activityColumns = `
	id, user_id, activity_type, source_id, title, description, category, hours,
	activity_date, evidence, status, approver_id, approved_at, rejection_reason,
	created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	err := row.Scan(
		&a.ID, &a.UserID, &a.ActivityType, &a.SourceID, &a.Title, &a.Description, &a.Category, &a.Hours,
		&a.ActivityDate, &a.Evidence, &a.Status, &a.ApproverID, &a.ApprovedAt, &a.RejectionReason,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ActivityDate = models.DateOnly(a.ActivityDate)
	return &a, nil
}

// Create inserts the activity. Credits use ON CONFLICT DO NOTHING so a
// duplicate leaves the surrounding transaction usable.
func (s *PostgresStore) Create(ctx context.Context, a *models.Activity) error {
	query := `INSERT INTO cpe_activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	if a.SourceID != nil {
		query += ` ON CONFLICT DO NOTHING`
	}
	res, err := s.execer(ctx).ExecContext(ctx, query,
		a.ID, a.UserID, a.ActivityType, a.SourceID, a.Title, a.Description, a.Category, a.Hours,
		a.ActivityDate, a.Evidence, a.Status, a.ApproverID, a.ApprovedAt, a.RejectionReason,
		a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "cpe_activities_source_unique") {
			return fmt.Errorf("credit already recorded: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	if a.SourceID != nil {
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("credit already recorded: %w", sentinel.ErrConflict)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	a, err := scanActivity(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM cpe_activities WHERE id = $1 AND deleted_at IS NULL`, activityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find activity: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindBySource(ctx context.Context, activityType models.ActivityType, sourceID uuid.UUID, userID id.UserID) (*models.Activity, error) {
	a, err := scanActivity(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM cpe_activities WHERE activity_type = $1 AND source_id = $2 AND user_id = $3`,
		activityType, sourceID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credit not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credit: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Execute(ctx context.Context, activityID id.ActivityID, validate func(*models.Activity) error, mutate func(*models.Activity)) (*models.Activity, error) {
	var result *models.Activity
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		q := s.execer(ctx)
		a, err := scanActivity(q.QueryRowContext(ctx,
			`SELECT `+activityColumns+` FROM cpe_activities WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, activityID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock activity: %w", err)
		}
		if err := validate(a); err != nil {
			return err
		}
		mutate(a)
		_, err = q.ExecContext(ctx, `
			UPDATE cpe_activities
			SET title = $2, description = $3, category = $4, hours = $5, activity_date = $6, evidence = $7,
				status = $8, approver_id = $9, approved_at = $10, rejection_reason = $11, updated_at = $12
			WHERE id = $1`,
			a.ID, a.Title, a.Description, a.Category, a.Hours, a.ActivityDate, a.Evidence,
			a.Status, a.ApproverID, a.ApprovedAt, a.RejectionReason, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, activityID id.ActivityID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cpe_activities SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		activityID, now)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// where renders filter as a SQL condition with positional arguments.
func where(filter models.ListFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.ActivityType != "" {
		add("activity_type = $%d", filter.ActivityType)
	}
	if filter.Window.From != nil {
		add("activity_date >= $%d", models.DateOnly(*filter.Window.From))
	}
	if filter.Window.To != nil {
		add("activity_date <= $%d", models.DateOnly(*filter.Window.To))
	}
	if filter.Search != "" {
		add("title ILIKE $%d", "%"+escapeLike(filter.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Activity, int, error) {
	clause, args := where(filter)
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cpe_activities WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	rows, err := s.execer(ctx).QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM cpe_activities WHERE %s
		ORDER BY activity_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		activityColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	var out []*models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activities: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) SumApprovedHours(ctx context.Context, userID *id.UserID, w models.Window) (float64, error) {
	clause, args := where(models.ListFilter{UserID: userID, Status: models.StatusApproved, Window: w})
	var total float64
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM cpe_activities WHERE `+clause, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum hours: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) ApprovedHoursByCategory(ctx context.Context, userID *id.UserID, w models.Window) (map[models.Category]float64, error) {
	clause, args := where(models.ListFilter{UserID: userID, Status: models.StatusApproved, Window: w})
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT category, SUM(hours) FROM cpe_activities WHERE `+clause+` GROUP BY category`, args...)
	if err != nil {
		return nil, fmt.Errorf("sum hours by category: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Category]float64)
	for rows.Next() {
		var c models.Category
		var hours float64
		if err := rows.Scan(&c, &hours); err != nil {
			return nil, fmt.Errorf("scan category hours: %w", err)
		}
		out[c] = hours
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByStatus(ctx context.Context, userID *id.UserID, w models.Window) (map[models.Status]int, error) {
	clause, args := where(models.ListFilter{UserID: userID, Window: w})
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM cpe_activities WHERE `+clause+` GROUP BY status`, args...)
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
