package services

import (
	"context"
	"database/sql"
	"fmt"
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

// HomeUpdate reports the outcome of a committed home change.
type HomeUpdate struct {
	Home       geo.Coordinate `json:"home"`
	Recomputed int            `json:"recomputed"`
}

// HomeService changes a user's home point and keeps every stored capture
// distance consistent with it.
type HomeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	publisher   events.Publisher
}

func NewHomeService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, publisher events.Publisher) *HomeService {
	return &HomeService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "home"),
		publisher:   publisher,
	}
}

// UpdateHome sets the home point and rewrites the distance of every capture
// the user owns in one serializable transaction. Either the new home and
// all distances are committed together, or nothing changes.
func (s *HomeService) UpdateHome(ctx context.Context, userID int64, raw string) (*HomeUpdate, error) {
	home, ok := geo.ParsePoint(raw)
	if !ok {
		return nil, fmt.Errorf("%w: invalid home point %q", common.ErrorValidation, raw)
	}

	start := time.Now()
	var recomputed int

	err := serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdateHome(ctx, userID, home); err != nil {
			return err
		}

		captures := s.repomanager.Captures(tx)
		locs, err := captures.ListLocations(ctx, userID)
		if err != nil {
			return err
		}

		ids, distances := recomputeDistances(locs, home)
		n, err := captures.UpdateDistances(ctx, userID, ids, distances)
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return fmt.Errorf("updated %d of %d captures", n, len(ids))
		}

		recomputed = len(ids)
		return nil
	})
	if err != nil {
		observability.HomeUpdateFailures.Inc()
		s.logger.Error(ctx, "home update rolled back", "user_id", userID, "error", err)
		return nil, txError("update home", err)
	}

	observability.HomeRecomputeDuration.Observe(time.Since(start).Seconds())
	observability.CapturesRecomputed.Add(float64(recomputed))
	s.logger.Info(ctx, "home updated", "user_id", userID, "captures", recomputed)

	publish(ctx, s.publisher, s.logger, events.SubjectHomeUpdated, events.HomeEvent{
		UserID:     userID,
		Home:       home,
		Recomputed: recomputed,
		At:         time.Now().UTC(),
	})

	return &HomeUpdate{Home: home, Recomputed: recomputed}, nil
}

// recomputeDistances pairs every capture id with its distance from home.
// A stored point that cannot be parsed gets a nil distance.
func recomputeDistances(locs []models.CaptureLocation, home geo.Coordinate) ([]int64, []*float64) {
	ids := make([]int64, len(locs))
	distances := make([]*float64, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
		if p, ok := geo.ParsePoint(l.Raw); ok {
			d := geo.DistanceKm(p, home)
			distances[i] = &d
		}
	}
	return ids, distances
}
