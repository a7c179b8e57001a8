package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	pgplatform "github.com/fudign/kfa-sub000/internal/platform/postgres"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
	txcontext "github.com/fudign/kfa-sub000/pkg/platform/tx"
)

// PostgresStore persists applications and the member directory.
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

const applicationColumns = `
	id, user_id, membership_type, first_name, last_name, organization_name, position,
	email, phone, experience, motivation, status, reviewed_by, reviewed_at,
	rejection_reason, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID, &a.UserID, &a.MembershipType, &a.FirstName, &a.LastName, &a.OrganizationName, &a.Position,
		&a.Email, &a.Phone, &a.Experience, &a.Motivation, &a.Status, &a.ReviewedBy, &a.ReviewedAt,
		&a.RejectionReason, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `INSERT INTO membership_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		app.ID, app.UserID, app.MembershipType, app.FirstName, app.LastName, app.OrganizationName, app.Position,
		app.Email, app.Phone, app.Experience, app.Motivation, app.Status, app.ReviewedBy, app.ReviewedAt,
		app.RejectionReason, app.CreatedAt, app.UpdatedAt, app.DeletedAt,
	)
	if err != nil {
		if pgplatform.IsUniqueViolation(err, "membership_applications_open_per_user") {
			return fmt.Errorf("open application exists for user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM membership_applications WHERE id = $1 AND deleted_at IS NULL`
	app, err := scanApplication(s.execer(ctx).QueryRowContext(ctx, query, appID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) HasOpenApplication(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM membership_applications
			WHERE user_id = $1 AND status = ANY($2) AND deleted_at IS NULL
		)`, userID, pq.Array([]string{string(models.StatusPending), string(models.StatusReviewing)}),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open application: %w", err)
	}
	return exists, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the mutable columns back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	var result *models.Application
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		q := s.execer(ctx)
		query := `SELECT ` + applicationColumns + ` FROM membership_applications WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
		app, err := scanApplication(q.QueryRowContext(ctx, query, appID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock application: %w", err)
		}
		if err := validate(app); err != nil {
			return err
		}
		mutate(app)
		_, err = q.ExecContext(ctx, `
			UPDATE membership_applications
			SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5, updated_at = $6
			WHERE id = $1`,
			app.ID, app.Status, app.ReviewedBy, app.ReviewedAt, app.RejectionReason, app.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		result = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, appID id.ApplicationID, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE membership_applications SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		appID, now)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Application, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.MembershipType != "" {
		args = append(args, filter.MembershipType)
		where = append(where, fmt.Sprintf("membership_type = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM membership_applications WHERE `+clause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM membership_applications WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, applicationColumns, clause, len(args)-1, len(args))
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, total, nil
}

func (s *PostgresStore) UpsertMember(ctx context.Context, member models.Member) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO members (user_id, application_id, membership_type, name, email, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			application_id = EXCLUDED.application_id,
			membership_type = EXCLUDED.membership_type,
			name = EXCLUDED.name,
			email = EXCLUDED.email`,
		member.UserID, member.ApplicationID, member.MembershipType, member.Name, member.Email, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsMember(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return exists, nil
}
