package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ncruces/go-sqlite3"
	"github.com/phrazzld/tasksync/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
// Both PostgreSQL and SQLite constraint failures are recognized.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	switch {
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: foreign key violation: %v", store.ErrInvalidEntity, err)
	case isCheckViolation(err):
		return fmt.Errorf("%w: check constraint violation: %v", store.ErrInvalidEntity, err)
	case isNotNullViolation(err):
		return fmt.Errorf("%w: not null violation: %v", store.ErrInvalidEntity, err)
	}

	return err
}

// IsUniqueViolation reports whether err is a unique or primary key violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolationCode ||
		sqliteCode(err) == sqlite3.CONSTRAINT_UNIQUE ||
		sqliteCode(err) == sqlite3.CONSTRAINT_PRIMARYKEY
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == foreignKeyViolationCode ||
		sqliteCode(err) == sqlite3.CONSTRAINT_FOREIGNKEY
}

func isCheckViolation(err error) bool {
	return pgCode(err) == checkViolationCode ||
		sqliteCode(err) == sqlite3.CONSTRAINT_CHECK
}

func isNotNullViolation(err error) bool {
	return pgCode(err) == notNullViolationCode ||
		sqliteCode(err) == sqlite3.CONSTRAINT_NOTNULL
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func sqliteCode(err error) sqlite3.ExtendedErrorCode {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode()
	}
	return 0
}

// checkRowsAffected returns notFound when result touched no rows.
func checkRowsAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
