package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pavuchara/nextgen/internal/models"
)

// ErrDuplicateSlug is returned when a slug unique constraint rejects a
// write. The service layer turns it into a request for another candidate.
var ErrDuplicateSlug = errors.New("slug already taken")

// PostgreSQL error codes the store translates into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeStringTooLong        = "22001"
)

// slugConstraints names the unique constraints that guard slug columns.
var slugConstraints = map[string]bool{
	"posts_slug_key":      true,
	"categories_slug_key": true,
	"profiles_slug_key":   true,
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including when fn panics.
func withTx(ctx context.Context, db *sql.DB, reason string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx (%s): %w", reason, mapError(err))
	}
	slog.Debug("tx begin", "reason", reason)

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("tx rollback failed", "reason", reason, "error", rbErr)
		} else {
			slog.Debug("tx rollback", "reason", reason)
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx (%s): %w", reason, mapError(err))
	}
	committed = true
	slog.Debug("tx commit", "reason", reason)
	return nil
}

// mapError translates PostgreSQL failures into the domain sentinels while
// keeping the driver error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrDuplicateSlug, models.ErrDuplicate, models.ErrReferenced,
		models.ErrConcurrentModification, models.ErrInvalidValue,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		if slugConstraints[pgErr.ConstraintName] {
			return fmt.Errorf("%w: %w", ErrDuplicateSlug, err)
		}
		return fmt.Errorf("%w: %w", models.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", models.ErrReferenced, err)
	case codeStringTooLong:
		return fmt.Errorf("%w: %w", models.ErrInvalidValue, err)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", models.ErrConcurrentModification, err)
	}
	return err
}

// notFound wraps sql.ErrNoRows as models.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return err
}
