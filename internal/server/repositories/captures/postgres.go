package captures

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

const selectCapture = `SELECT c.id, c.user_id, c.account_id, a.account_name, c.species, c.nickname,
		        c.is_shiny, c.iv, c.captured_at, ST_AsText(c.location), c.distance_km
		 FROM captures c
		 LEFT JOIN accounts a ON a.id = c.account_id
		 `

type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(s scanner) (*models.Capture, error) {
	var (
		c           models.Capture
		accountID   sql.NullInt64
		accountName sql.NullString
		nickname    sql.NullString
		location    sql.NullString
		distance    sql.NullFloat64
	)

	err := s.Scan(&c.ID, &c.UserID, &accountID, &accountName, &c.Species, &nickname,
		&c.IsShiny, &c.IV, &c.CapturedAt, &location, &distance)
	if err != nil {
		return nil, err
	}

	if accountID.Valid {
		c.AccountID = &accountID.Int64
	}
	if accountName.Valid {
		c.AccountName = &accountName.String
	}
	if nickname.Valid {
		c.Nickname = &nickname.String
	}
	if distance.Valid {
		c.DistanceKm = &distance.Float64
	}
	if p, ok := geo.ParsePoint(location.String); ok {
		c.Location = &p
	}

	return &c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, capture *models.Capture) (*models.Capture, error) {
	query :=
		`INSERT INTO captures (user_id, account_id, species, nickname, is_shiny, iv, captured_at, location, distance_km)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, ST_GeogFromText($8), $9)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		capture.UserID, nullable(capture.AccountID), capture.Species, nullable(capture.Nickname),
		capture.IsShiny, capture.IV, capture.CapturedAt, ewkt(capture.Location),
		nullable(capture.DistanceKm)).Scan(&capture.ID)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}

	return capture, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id int64) (*models.Capture, error) {
	query := selectCapture + `WHERE c.user_id = $1 AND c.id = $2`

	c, err := scanCapture(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID int64, accountID *int64) ([]models.Capture, error) {
	query := selectCapture +
		`WHERE c.user_id = $1 AND ($2::bigint IS NULL OR c.account_id = $2)
		 ORDER BY c.captured_at DESC, c.id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, nullable(accountID))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.Capture, 0)
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, capture *models.Capture) error {
	query :=
		`UPDATE captures
		 SET account_id = $3, species = $4, nickname = $5, is_shiny = $6, iv = $7,
		     captured_at = $8, location = COALESCE(ST_GeogFromText($9), location), distance_km = $10
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query,
		capture.ID, capture.UserID, nullable(capture.AccountID), capture.Species, nullable(capture.Nickname),
		capture.IsShiny, capture.IV, capture.CapturedAt, ewkt(capture.Location),
		nullable(capture.DistanceKm))
	if err != nil {
		return pgerr.Wrap(err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM captures WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM captures WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListLocations(ctx context.Context, userID int64) ([]models.CaptureLocation, error) {
	query :=
		`SELECT id, ST_AsText(location) FROM captures
		 WHERE user_id = $1
		 ORDER BY id
		 FOR UPDATE
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.CaptureLocation, 0)
	for rows.Next() {
		var (
			loc models.CaptureLocation
			raw sql.NullString
		)
		if err := rows.Scan(&loc.ID, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		loc.Raw = raw.String
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateDistances(ctx context.Context, userID int64, ids []int64, distances []*float64) (int64, error) {
	if len(ids) != len(distances) {
		return 0, fmt.Errorf("%w: %d ids for %d distances", common.ErrorInternal, len(ids), len(distances))
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query :=
		`UPDATE captures AS c
		 SET distance_km = u.distance_km
		 FROM unnest($2::bigint[], $3::float8[]) AS u(id, distance_km)
		 WHERE c.id = u.id AND c.user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, ids, distances)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// nullable turns a nil pointer into an untyped nil query argument.
// ewkt renders p for ST_GeogFromText; nil becomes NULL.
func ewkt(p *geo.Coordinate) any {
	if p == nil {
		return nil
	}
	return geo.FormatEWKT(*p)
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
