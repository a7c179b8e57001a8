package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// PostgresRunner runs fn inside a database transaction. A call made while a
// transaction is already in the context joins it instead of nesting.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRunner builds a runner; timeout <= 0 selects the default.
func NewPostgresRunner(db *sql.DB, timeout time.Duration) *PostgresRunner {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &PostgresRunner{db: db, timeout: timeout}
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
