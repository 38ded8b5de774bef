// Package captures stores captured creatures together with their location
// and the distance-from-home snapshot.
package captures

import (
	"context"

	"github.com/dmitrijs2005/godex/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, capture *models.Capture) (*models.Capture, error)
	GetByID(ctx context.Context, userID, id int64) (*models.Capture, error)

	// List returns the user's captures joined with their account name. A nil
	// accountID lists every capture of the user.
	List(ctx context.Context, userID int64, accountID *int64) ([]models.Capture, error)

	// Update rewrites the capture. A nil Location keeps the stored point.
	Update(ctx context.Context, capture *models.Capture) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)

	// ListLocations reads every capture point of the user and locks the rows
	// for update until the surrounding transaction ends.
	ListLocations(ctx context.Context, userID int64) ([]models.CaptureLocation, error)

	// UpdateDistances writes distances[i] to capture ids[i] in one statement.
	// A nil distance stores NULL. It returns the number of rows touched.
	UpdateDistances(ctx context.Context, userID int64, ids []int64, distances []*float64) (int64, error)
}
