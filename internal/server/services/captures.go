package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/events"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/observability"
	"github.com/dmitrijs2005/godex/internal/server/repositories/repomanager"
)

// CaptureInput carries the fields of a new capture. Location is point text
// in any form geo.ParsePoint accepts. A nil CapturedAt means now.
type CaptureInput struct {
	AccountID  *int64
	Species    string
	Nickname   *string
	IsShiny    bool
	IV         int
	CapturedAt *time.Time
	Location   string
}

// CaptureUpdate is a patch: nil fields keep their current value.
// ClearAccount detaches the capture from its account and wins over
// AccountID.
type CaptureUpdate struct {
	AccountID    *int64
	ClearAccount bool
	Species      *string
	Nickname     *string
	IsShiny      *bool
	IV           *int
	CapturedAt   *time.Time
	Location     *string
}

// CaptureQuery selects captures for a listing. A nil AccountID lists the
// whole collection.
type CaptureQuery struct {
	AccountID *int64
	Filter    models.CaptureFilter
}

type CaptureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	publisher   events.Publisher
	now         func() time.Time
}

func NewCaptureService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, publisher events.Publisher) *CaptureService {
	return &CaptureService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "captures"),
		publisher:   publisher,
		now:         time.Now,
	}
}

func validateSpecies(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: species is required", common.ErrorValidation)
	}
	return s, nil
}

func validateIV(iv int) error {
	if iv < 0 || iv > models.MaxIV {
		return fmt.Errorf("%w: iv must be between 0 and %d, got %d", common.ErrorValidation, models.MaxIV, iv)
	}
	return nil
}

func parseLocation(raw string) (geo.Coordinate, error) {
	c, ok := geo.ParsePoint(raw)
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("%w: invalid location %q", common.ErrorValidation, raw)
	}
	return c, nil
}

func normalizeNickname(n *string) *string {
	if n == nil {
		return nil
	}
	t := strings.TrimSpace(*n)
	if t == "" {
		return nil
	}
	return &t
}

// CreateCapture stores a new capture with its distance from the user's
// current home. It runs serializable with the user row share-locked, so a
// concurrent home recompute either sees the new row or one side fails with
// a serialization error and is replayed.
func (s *CaptureService) CreateCapture(ctx context.Context, userID int64, in CaptureInput) (*models.Capture, error) {
	species, err := validateSpecies(in.Species)
	if err != nil {
		return nil, err
	}
	if err := validateIV(in.IV); err != nil {
		return nil, err
	}
	loc, err := parseLocation(in.Location)
	if err != nil {
		return nil, err
	}

	capture := &models.Capture{
		UserID:    userID,
		AccountID: in.AccountID,
		Species:   species,
		Nickname:  normalizeNickname(in.Nickname),
		IsShiny:   in.IsShiny,
		IV:        in.IV,
		Location:  &loc,
	}
	if in.CapturedAt != nil {
		capture.CapturedAt = in.CapturedAt.UTC()
	} else {
		capture.CapturedAt = s.now().UTC()
	}

	var created *models.Capture
	err = serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		home, err := s.repomanager.Users(tx).GetHome(ctx, userID, true)
		if err != nil {
			return err
		}

		if capture.AccountID != nil {
			acc, err := s.repomanager.Accounts(tx).GetByID(ctx, userID, *capture.AccountID)
			if err != nil {
				return err
			}
			capture.AccountName = &acc.Name
		}

		capture.DistanceKm = geo.DistanceFrom(capture.Location, home)

		created, err = s.repomanager.Captures(tx).Create(ctx, capture)
		return err
	})
	if err != nil {
		return nil, txError("create capture", err)
	}

	observability.CaptureWrites.WithLabelValues("create").Inc()
	s.logger.Debug(ctx, "capture created", "user_id", userID, "capture_id", created.ID)
	publish(ctx, s.publisher, s.logger, events.SubjectCaptureCreated, captureEvent(created, s.now()))

	return created, nil
}

// UpdateCapture applies patch to the capture. The distance is always
// re-derived from the user's current home, whether or not the location was
// patched, so an update also repairs a distance left stale by an unset or
// changed home. Concurrency follows CreateCapture.
func (s *CaptureService) UpdateCapture(ctx context.Context, userID, id int64, patch CaptureUpdate) (*models.Capture, error) {
	var (
		species string
		loc     geo.Coordinate
		err     error
	)
	if patch.Species != nil {
		if species, err = validateSpecies(*patch.Species); err != nil {
			return nil, err
		}
	}
	if patch.IV != nil {
		if err := validateIV(*patch.IV); err != nil {
			return nil, err
		}
	}
	if patch.Location != nil {
		if loc, err = parseLocation(*patch.Location); err != nil {
			return nil, err
		}
	}

	var updated *models.Capture
	err = serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		home, err := s.repomanager.Users(tx).GetHome(ctx, userID, true)
		if err != nil {
			return err
		}

		repo := s.repomanager.Captures(tx)
		c, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		switch {
		case patch.ClearAccount:
			c.AccountID = nil
			c.AccountName = nil
		case patch.AccountID != nil:
			acc, err := s.repomanager.Accounts(tx).GetByID(ctx, userID, *patch.AccountID)
			if err != nil {
				return err
			}
			c.AccountID = &acc.ID
			c.AccountName = &acc.Name
		}

		if patch.Species != nil {
			c.Species = species
		}
		if patch.Nickname != nil {
			c.Nickname = normalizeNickname(patch.Nickname)
		}
		if patch.IsShiny != nil {
			c.IsShiny = *patch.IsShiny
		}
		if patch.IV != nil {
			c.IV = *patch.IV
		}
		if patch.CapturedAt != nil {
			c.CapturedAt = patch.CapturedAt.UTC()
		}
		if patch.Location != nil {
			c.Location = &loc
		}

		c.DistanceKm = geo.DistanceFrom(c.Location, home)

		if err := repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, txError("update capture", err)
	}

	observability.CaptureWrites.WithLabelValues("update").Inc()
	publish(ctx, s.publisher, s.logger, events.SubjectCaptureUpdated, captureEvent(updated, s.now()))

	return updated, nil
}

// DeleteCapture removes a capture. A capture owned by another user is
// reported as not found.
func (s *CaptureService) DeleteCapture(ctx context.Context, userID, id int64) error {
	if err := s.repomanager.Captures(s.db).Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("error deleting capture: %w", err)
	}

	observability.CaptureWrites.WithLabelValues("delete").Inc()
	publish(ctx, s.publisher, s.logger, events.SubjectCaptureDeleted, events.CaptureEvent{
		UserID:    userID,
		CaptureID: id,
		At:        s.now().UTC(),
	})
	return nil
}

func (s *CaptureService) GetCapture(ctx context.Context, userID, id int64) (*models.Capture, error) {
	c, err := s.repomanager.Captures(s.db).GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("error loading capture: %w", err)
	}
	return c, nil
}

// ListCaptures returns the user's captures, optionally limited to one of
// their accounts, filtered and ordered by q.Filter.
func (s *CaptureService) ListCaptures(ctx context.Context, userID int64, q CaptureQuery) ([]models.Capture, error) {
	if q.AccountID != nil {
		if _, err := s.repomanager.Accounts(s.db).GetByID(ctx, userID, *q.AccountID); err != nil {
			return nil, fmt.Errorf("error loading account: %w", err)
		}
	}

	list, err := s.repomanager.Captures(s.db).List(ctx, userID, q.AccountID)
	if err != nil {
		return nil, fmt.Errorf("error listing captures: %w", err)
	}
	for i := range list {
		if list[i].Location == nil {
			s.logger.Warn(ctx, "capture has unreadable location", "user_id", userID, "capture_id", list[i].ID)
		}
	}
	return models.ApplyFilter(list, q.Filter), nil
}

// DeleteAllCaptures removes every capture of the user and returns how many
// were deleted.
func (s *CaptureService) DeleteAllCaptures(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repomanager.Captures(s.db).DeleteAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting captures: %w", err)
	}
	observability.CaptureWrites.WithLabelValues("delete_all").Inc()
	s.logger.Info(ctx, "captures deleted", "user_id", userID, "count", n)
	return n, nil
}

func captureEvent(c *models.Capture, at time.Time) events.CaptureEvent {
	return events.CaptureEvent{
		UserID:     c.UserID,
		CaptureID:  c.ID,
		AccountID:  c.AccountID,
		Species:    c.Species,
		DistanceKm: c.DistanceKm,
		At:         at.UTC(),
	}
}
