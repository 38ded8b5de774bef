package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/repositories/pgerr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash, home)
		 VALUES ($1, $2, ST_GeogFromText($3))
		 RETURNING id, created_at
		 `

	var home any
	if user.Home != nil {
		home = geo.FormatEWKT(*user.Home)
	}

	err := r.db.QueryRowContext(ctx, query, user.UserName, user.PasswordHash, home).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, ST_AsText(home), created_at FROM users
		 WHERE id = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, ST_AsText(home), created_at FROM users
		 WHERE username = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var home sql.NullString

	err := row.Scan(&user.ID, &user.UserName, &user.PasswordHash, &home, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Home = parseHome(home)
	return user, nil
}

func (r *PostgresRepository) GetHome(ctx context.Context, id int64, lock bool) (*geo.Coordinate, error) {
	query := `SELECT ST_AsText(home) FROM users WHERE id = $1`
	if lock {
		query += ` FOR SHARE`
	}

	var home sql.NullString
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&home); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return parseHome(home), nil
}

func (r *PostgresRepository) UpdateHome(ctx context.Context, id int64, home geo.Coordinate) error {
	query :=
		`UPDATE users SET home = ST_GeogFromText($2)
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, geo.FormatEWKT(home))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// parseHome treats a NULL or unreadable stored point as "no home".
func parseHome(s sql.NullString) *geo.Coordinate {
	if !s.Valid {
		return nil
	}
	c, ok := geo.ParsePoint(s.String)
	if !ok {
		return nil
	}
	return &c
}
