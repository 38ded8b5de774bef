// Package accounts stores the game accounts a user logs captures against.
// Every operation is scoped by user id; a row owned by someone else behaves
// exactly like a missing row.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/godex/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, userID, id int64) (*models.Account, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error

	// ClearMain unsets the primary flag on every account of the user.
	ClearMain(ctx context.Context, userID int64) error
	// SetMain flags a single account as primary. Callers clear the others
	// first in the same transaction.
	SetMain(ctx context.Context, userID, id int64) error

	Delete(ctx context.Context, userID, id int64) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}
