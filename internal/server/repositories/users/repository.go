// Package users stores user rows, including the home point every capture
// distance is measured from.
package users

import (
	"context"

	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)

	// GetHome returns the user's home, or nil if none is set. With lock the
	// row is held FOR SHARE until the surrounding transaction ends, so a
	// concurrent home update waits for it.
	GetHome(ctx context.Context, id int64, lock bool) (*geo.Coordinate, error)

	// UpdateHome replaces the home point. It returns common.ErrorNotFound when
	// the user does not exist.
	UpdateHome(ctx context.Context, id int64, home geo.Coordinate) error
}
