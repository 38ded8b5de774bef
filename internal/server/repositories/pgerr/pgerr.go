// Package pgerr maps PostgreSQL driver errors onto the common sentinels.
package pgerr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/godex/internal/common"
)

const (
	foreignKeyViolation  = "23503"
	uniqueViolation      = "23505"
	checkViolation       = "23514"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// Wrap classifies err. Foreign key violations become common.ErrorNotFound
// (a referenced row is missing), unique violations common.ErrorConflict and
// check violations common.ErrorValidation. Everything else is wrapped as a
// plain db error. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, pgErr.ConstraintName)
		case uniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
		case checkViolation:
			return fmt.Errorf("%w: %s", common.ErrorValidation, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("db error: %w", err)
}

// IsRetryable reports whether err is a serialization failure or deadlock,
// i.e. the transaction lost a race and may succeed if run again.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
