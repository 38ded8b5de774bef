package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/server/repositories/pgerr"
)

// serializableAttempts bounds how often a serializable write is replayed
// after losing a race to a concurrent transaction.
const serializableAttempts = 3

// serializable runs fn in a Serializable transaction, replaying it on
// serialization failures and deadlocks.
func serializable(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.RetryTx(ctx, db, dbx.Serializable, serializableAttempts, pgerr.IsRetryable, fn)
}

// txError classifies a failed multi-step write. Not-found and validation
// outcomes are reported as-is; everything else means the transaction was
// rolled back.
func txError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", common.ErrorTransaction, op, err)
}
