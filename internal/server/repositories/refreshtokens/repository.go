// Package refreshtokens stores the opaque refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/godex/internal/server/models"
)

// Repository issues, redeems and purges refresh tokens.
type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume removes the token and returns the row it held, so each token
	// is redeemed at most once. common.ErrorNotFound when absent.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
