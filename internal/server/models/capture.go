package models

import (
	"time"

	"github.com/dmitrijs2005/godex/internal/geo"
)

// MaxIV is the best possible quality score. A capture with this IV is a
// "hundo"; a shiny hundo is a "shundo".
const MaxIV = 100

// Capture is a single caught creature. DistanceKm is a snapshot taken at the
// last write or home recompute; nil means the distance is unknown. Location
// is nil when the stored point cannot be read.
type Capture struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	AccountID   *int64          `json:"account_id"`
	AccountName *string         `json:"account_name,omitempty"`
	Species     string          `json:"species"`
	Nickname    *string         `json:"nickname"`
	IsShiny     bool            `json:"is_shiny"`
	IV          int             `json:"iv"`
	CapturedAt  time.Time       `json:"captured_at"`
	Location    *geo.Coordinate `json:"location"`
	DistanceKm  *float64        `json:"distance_km"`
}

func (c *Capture) IsHundo() bool  { return c.IV == MaxIV }
func (c *Capture) IsShundo() bool { return c.IsShiny && c.IsHundo() }

// CaptureLocation is the subset read while recomputing distances. Raw is
// the stored point text; it may fail to parse for legacy rows.
type CaptureLocation struct {
	ID  int64
	Raw string
}
