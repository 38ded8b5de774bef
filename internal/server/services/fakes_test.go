package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/godex/internal/server/repositories/captures"
	"github.com/dmitrijs2005/godex/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/godex/internal/server/repositories/users"
)

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memStore is an in-memory backing store shared by the fake repositories.
// errs injects a failure into a single method, keyed "repo.Method".
type memStore struct {
	mu sync.Mutex

	nextID   int64
	users    map[int64]*models.User
	accounts map[int64]*models.Account
	captures map[int64]*models.Capture
	rawLocs  map[int64]string
	tokens   map[string]*models.RefreshToken

	errs      map[string]error
	homeLocks int
	// onGetHome runs with mu held on every GetHome, before the home is read.
	onGetHome func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		accounts: map[int64]*models.Account{},
		captures: map[int64]*models.Capture{},
		rawLocs:  map[int64]string{},
		tokens:   map[string]*models.RefreshToken{},
		errs:     map[string]error{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(op string) error { return s.errs[op] }

func (s *memStore) addUser(name string, home *geo.Coordinate) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: s.id(), UserName: name, Home: home, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addAccount(userID int64, name string, isMain bool) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &models.Account{ID: s.id(), UserID: userID, Name: name, IsMain: isMain, CreatedAt: time.Now()}
	s.accounts[a.ID] = a
	return a
}

func (s *memStore) addCapture(c models.Capture) *models.Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.captures[c.ID] = &c
	return &c
}

// fakeRepoMgr vends the memStore-backed repositories regardless of the
// DBTX it is handed.
type fakeRepoMgr struct{ s *memStore }

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoMgr) Users(dbx.DBTX) users.Repository          { return &fakeUsersRepo{m.s} }
func (m *fakeRepoMgr) Accounts(dbx.DBTX) accounts.Repository    { return &fakeAccountsRepo{m.s} }
func (m *fakeRepoMgr) Captures(dbx.DBTX) captures.Repository    { return &fakeCapturesRepo{m.s} }
func (m *fakeRepoMgr) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &fakeRefreshRepo{m.s}
}

// -------- users --------

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.s.users {
		if x.UserName == u.UserName {
			return nil, common.ErrorConflict
		}
	}
	cp := *u
	cp.ID = r.s.id()
	cp.CreatedAt = time.Now()
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) GetByUsername(_ context.Context, name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.GetByUsername"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.UserName == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetHome(_ context.Context, id int64, lock bool) (*geo.Coordinate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if lock {
		r.s.homeLocks++
	}
	if r.s.onGetHome != nil {
		r.s.onGetHome()
	}
	if u.Home == nil {
		return nil, nil
	}
	h := *u.Home
	return &h, nil
}

func (r *fakeUsersRepo) UpdateHome(_ context.Context, id int64, home geo.Coordinate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.UpdateHome"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Home = &home
	return nil
}

// -------- accounts --------

type fakeAccountsRepo struct{ s *memStore }

func (r *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.IsMain {
		for _, x := range r.s.accounts {
			if x.UserID == a.UserID && x.IsMain {
				return nil, common.ErrorConflict
			}
		}
	}
	cp := *a
	cp.ID = r.s.id()
	cp.CreatedAt = time.Now()
	r.s.accounts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeAccountsRepo) GetByID(_ context.Context, userID, id int64) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountsRepo) ListByUser(_ context.Context, userID int64) ([]models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Account{}
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAccountsRepo) Update(_ context.Context, a *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return common.ErrorNotFound
	}
	cur.Name = a.Name
	cur.IsMain = a.IsMain
	return nil
}

func (r *fakeAccountsRepo) ClearMain(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.ClearMain"); err != nil {
		return err
	}
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			a.IsMain = false
		}
	}
	return nil
}

func (r *fakeAccountsRepo) SetMain(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.SetMain"); err != nil {
		return err
	}
	a, ok := r.s.accounts[id]
	if !ok || a.UserID != userID {
		return common.ErrorNotFound
	}
	a.IsMain = true
	return nil
}

func (r *fakeAccountsRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.accounts, id)
	for _, c := range r.s.captures {
		if c.AccountID != nil && *c.AccountID == id {
			c.AccountID = nil
		}
	}
	return nil
}

func (r *fakeAccountsRepo) DeleteAll(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.accounts {
		if a.UserID == userID {
			delete(r.s.accounts, id)
			n++
		}
	}
	return n, nil
}

// -------- captures --------

type fakeCapturesRepo struct{ s *memStore }

func (r *fakeCapturesRepo) withAccountName(c models.Capture) models.Capture {
	c.AccountName = nil
	if c.AccountID != nil {
		if a, ok := r.s.accounts[*c.AccountID]; ok {
			name := a.Name
			c.AccountName = &name
		}
	}
	return c
}

func (r *fakeCapturesRepo) Create(_ context.Context, c *models.Capture) (*models.Capture, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("captures.Create"); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = r.s.id()
	r.s.captures[cp.ID] = &cp
	c.ID = cp.ID
	return c, nil
}

func (r *fakeCapturesRepo) GetByID(_ context.Context, userID, id int64) (*models.Capture, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.captures[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	out := r.withAccountName(*c)
	return &out, nil
}

func (r *fakeCapturesRepo) List(_ context.Context, userID int64, accountID *int64) ([]models.Capture, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("captures.List"); err != nil {
		return nil, err
	}
	out := []models.Capture{}
	for _, c := range r.s.captures {
		if c.UserID != userID {
			continue
		}
		if accountID != nil && (c.AccountID == nil || *c.AccountID != *accountID) {
			continue
		}
		out = append(out, r.withAccountName(*c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeCapturesRepo) Update(_ context.Context, c *models.Capture) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.captures[c.ID]
	if !ok || cur.UserID != c.UserID {
		return common.ErrorNotFound
	}
	cp := *c
	cp.AccountName = nil
	if cp.Location == nil {
		cp.Location = cur.Location
	} else {
		delete(r.s.rawLocs, c.ID)
	}
	r.s.captures[c.ID] = &cp
	return nil
}

func (r *fakeCapturesRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.captures[id]
	if !ok || c.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.s.captures, id)
	return nil
}

func (r *fakeCapturesRepo) DeleteAll(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.captures {
		if c.UserID == userID {
			delete(r.s.captures, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeCapturesRepo) ListLocations(_ context.Context, userID int64) ([]models.CaptureLocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("captures.ListLocations"); err != nil {
		return nil, err
	}
	var out []models.CaptureLocation
	for id, c := range r.s.captures {
		if c.UserID != userID {
			continue
		}
		raw, ok := r.s.rawLocs[id]
		if !ok && c.Location != nil {
			raw = geo.FormatPoint(*c.Location)
		}
		out = append(out, models.CaptureLocation{ID: id, Raw: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCapturesRepo) UpdateDistances(_ context.Context, userID int64, ids []int64, distances []*float64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("captures.UpdateDistances"); err != nil {
		return 0, err
	}
	var n int64
	for i, id := range ids {
		c, ok := r.s.captures[id]
		if !ok || c.UserID != userID {
			continue
		}
		c.DistanceKm = distances[i]
		n++
	}
	return n, nil
}

// -------- refresh tokens --------

type fakeRefreshRepo struct{ s *memStore }

func (r *fakeRefreshRepo) Create(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("refreshtokens.Create"); err != nil {
		return err
	}
	cp := *t
	cp.CreatedAt = time.Now()
	r.s.tokens[t.Token] = &cp
	return nil
}

func (r *fakeRefreshRepo) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.tokens, token)
	return t, nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.Expires.Before(now) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

// -------- events --------

type recordedEvent struct {
	Subject string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{Subject: subject, Payload: payload})
	return nil
}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Subject
	}
	return out
}
