package captures

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/server/models"
)

// passthrough lets slice arguments reach the mock unchanged, the way pgx
// accepts them.
type passthrough struct{}

func (passthrough) ConvertValue(v any) (driver.Value, error) { return v, nil }

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(passthrough{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var captureCols = []string{
	"id", "user_id", "account_id", "account_name", "species", "nickname",
	"is_shiny", "iv", "captured_at", "st_astext", "distance_km",
}

const insertQ = `(?s)^INSERT\s+INTO\s+captures\s*\(user_id,\s*account_id,\s*species,\s*nickname,\s*is_shiny,\s*iv,\s*captured_at,\s*location,\s*distance_km\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*ST_GeogFromText\(\$8\),\s*\$9\)\s*RETURNING\s+id\s*$`

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(insertQ).
		WithArgs(int64(1), int64(7), "Pikachu", nil, true, 100, at, "SRID=4326;POINT(0 0.009)", 1.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))

	c := &models.Capture{
		UserID: 1, AccountID: common.Ptr(int64(7)), Species: "Pikachu", IsShiny: true, IV: 100,
		CapturedAt: at, Location: &geo.Coordinate{Lon: 0, Lat: 0.009}, DistanceKm: common.Ptr(1.0),
	}
	got, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_MissingAccountIsNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "captures_account_id_fkey"})

	_, err := repo.Create(context.Background(), &models.Capture{UserID: 1, AccountID: common.Ptr(int64(404))})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^SELECT\s+c\.id.+FROM\s+captures\s+c\s+LEFT\s+JOIN\s+accounts\s+a\s+ON\s+a\.id\s*=\s*c\.account_id\s+WHERE\s+c\.user_id\s*=\s*\$1\s+AND\s+c\.id\s*=\s*\$2$`
	at := time.Now()
	mock.ExpectQuery(q).WithArgs(int64(1), int64(5)).
		WillReturnRows(sqlmock.NewRows(captureCols).
			AddRow(int64(5), int64(1), int64(7), "Main", "Eevee", "Sparky", false, 82, at, "POINT(30.5 50.4)", 12.5))
	mock.ExpectQuery(q).WithArgs(int64(1), int64(6)).WillReturnError(sql.ErrNoRows)

	c, err := repo.GetByID(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "Eevee", c.Species)
	assert.Equal(t, common.Ptr(int64(7)), c.AccountID)
	assert.Equal(t, common.Ptr("Main"), c.AccountName)
	assert.Equal(t, common.Ptr("Sparky"), c.Nickname)
	assert.Equal(t, &geo.Coordinate{Lon: 30.5, Lat: 50.4}, c.Location)
	assert.Equal(t, common.Ptr(12.5), c.DistanceKm)

	_, err = repo.GetByID(context.Background(), 1, 6)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_NullColumnsAndAccountFilter(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^SELECT.+WHERE\s+c\.user_id\s*=\s*\$1\s+AND\s+\(\$2::bigint\s+IS\s+NULL\s+OR\s+c\.account_id\s*=\s*\$2\)\s+ORDER\s+BY\s+c\.captured_at\s+DESC,\s*c\.id\s*$`
	at := time.Now()
	mock.ExpectQuery(q).WithArgs(int64(1), nil).
		WillReturnRows(sqlmock.NewRows(captureCols).
			AddRow(int64(1), int64(1), nil, nil, "Ditto", nil, false, 0, at, "POINT(1 1)", nil).
			AddRow(int64(2), int64(1), int64(3), "Alt", "Mew", nil, true, 100, at, "garbage", 3.0))
	mock.ExpectQuery(q).WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows(captureCols))

	all, err := repo.List(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].AccountID)
	assert.Nil(t, all[0].AccountName)
	assert.Nil(t, all[0].DistanceKm)
	require.NotNil(t, all[0].Location)
	assert.Equal(t, geo.Coordinate{Lon: 1, Lat: 1}, *all[0].Location)
	assert.Nil(t, all[1].Location, "unreadable point is not reported as (0,0)")

	byAccount, err := repo.List(context.Background(), 1, common.Ptr(int64(3)))
	require.NoError(t, err)
	assert.NotNil(t, byAccount)
	assert.Empty(t, byAccount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^UPDATE\s+captures\s+SET\s+account_id\s*=\s*\$3,.+location\s*=\s*COALESCE\(ST_GeogFromText\(\$9\),\s*location\),\s*distance_km\s*=\s*\$10\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s*$`
	at := time.Now()
	mock.ExpectExec(q).
		WithArgs(int64(5), int64(1), nil, "Eevee", "Sparky", false, 82, at, "SRID=4326;POINT(0 1)", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

	c := &models.Capture{ID: 5, UserID: 1, Species: "Eevee", Nickname: common.Ptr("Sparky"), IV: 82, CapturedAt: at, Location: &geo.Coordinate{Lat: 1}}
	require.NoError(t, repo.Update(context.Background(), c))
	assert.ErrorIs(t, repo.Update(context.Background(), c), common.ErrorNotFound)
}

func TestUpdate_NilLocationKeepsStoredPoint(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Now()
	mock.ExpectExec(`COALESCE\(ST_GeogFromText\(\$9\),\s*location\)`).
		WithArgs(int64(5), int64(1), nil, "Ditto", nil, false, 40, at, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &models.Capture{ID: 5, UserID: 1, Species: "Ditto", IV: 40, CapturedAt: at}
	require.NoError(t, repo.Update(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+captures\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2$`).
		WithArgs(int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+captures\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 12))

	assert.ErrorIs(t, repo.Delete(context.Background(), 1, 5), common.ErrorNotFound)

	n, err := repo.DeleteAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestListLocations(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*ST_AsText\(location\)\s+FROM\s+captures\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+id\s+FOR\s+UPDATE\s*$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "st_astext"}).
			AddRow(int64(1), "POINT(0 0.009)").
			AddRow(int64(2), nil))

	got, err := repo.ListLocations(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.CaptureLocation{{ID: 1, Raw: "POINT(0 0.009)"}, {ID: 2, Raw: ""}}, got)
}

func TestUpdateDistances(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	ids := []int64{1, 2}
	dists := []*float64{common.Ptr(110.6), nil}

	mock.ExpectExec(`(?s)^UPDATE\s+captures\s+AS\s+c\s+SET\s+distance_km\s*=\s*u\.distance_km\s+FROM\s+unnest\(\$2::bigint\[\],\s*\$3::float8\[\]\)\s+AS\s+u\(id,\s*distance_km\)\s+WHERE\s+c\.id\s*=\s*u\.id\s+AND\s+c\.user_id\s*=\s*\$1\s*$`).
		WithArgs(int64(1), ids, dists).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateDistances(context.Background(), 1, ids, dists)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDistances_EmptyAndMismatch(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	n, err := repo.UpdateDistances(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.UpdateDistances(context.Background(), 1, []int64{1}, nil)
	assert.ErrorIs(t, err, common.ErrorInternal)

	mock.ExpectExec(`UPDATE\s+captures\s+AS\s+c`).WillReturnError(errors.New("serialization failure"))
	_, err = repo.UpdateDistances(context.Background(), 1, []int64{1}, []*float64{nil})
	assert.ErrorContains(t, err, "db error: serialization failure")
}
