package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

// Querier is what repositories need from a pool or a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLSTATE codes mapped onto domain errors.
const (
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeLockNotAvailable    = "55P03"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeQueryCanceled       = "57014"
)

// isUniqueViolation reports whether err is a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// translateError wraps driver errors into the domain error kinds. op names the failed statement.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Errorf(domain.ErrTimeout, "%s: %v", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeCheckViolation, codeForeignKeyViolation, codeNotNullViolation:
			return domain.Errorf(domain.ErrPersistence, "%s: %s (%s)", op, pgErr.Message, pgErr.ConstraintName)
		case codeLockNotAvailable, codeSerialization, codeDeadlock:
			return domain.Errorf(domain.ErrBusy, "%s: %s", op, pgErr.Message)
		case codeQueryCanceled:
			return domain.Errorf(domain.ErrTimeout, "%s: %s", op, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
