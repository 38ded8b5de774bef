package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/repositories/pgerr"
)

const (
	insertToken = `INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`

	consumeToken = `DELETE FROM refresh_tokens WHERE token = $1
		RETURNING user_id, expires_at, created_at`

	purgeExpired = `DELETE FROM refresh_tokens WHERE expires_at < $1`
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores t. A missing user surfaces as common.ErrorNotFound and a
// duplicate token as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, insertToken, t.UserID, t.Token, t.Expires)
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, consumeToken, token).Scan(&t.UserID, &t.Expires, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return t, nil
}

// DeleteExpired purges tokens that expired before now and reports how many
// rows were removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, purgeExpired, now)
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	return res.RowsAffected()
}
