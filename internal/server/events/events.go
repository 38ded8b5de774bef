// Package events publishes domain events (capture writes, home updates,
// primary account changes) to NATS JetStream for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/godex/internal/geo"
)

const (
	StreamName  = "GODEX"
	SubjectBase = "godex"

	SubjectCaptureCreated = SubjectBase + ".capture.created"
	SubjectCaptureUpdated = SubjectBase + ".capture.updated"
	SubjectCaptureDeleted = SubjectBase + ".capture.deleted"
	SubjectHomeUpdated    = SubjectBase + ".home.updated"
	SubjectAccountPrimary = SubjectBase + ".account.primary"
)

// Publisher sends an event payload, encoded as JSON, to subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

type CaptureEvent struct {
	UserID     int64     `json:"user_id"`
	CaptureID  int64     `json:"capture_id"`
	AccountID  *int64    `json:"account_id,omitempty"`
	Species    string    `json:"species,omitempty"`
	DistanceKm *float64  `json:"distance_km,omitempty"`
	At         time.Time `json:"at"`
}

type HomeEvent struct {
	UserID     int64          `json:"user_id"`
	Home       geo.Coordinate `json:"home"`
	Recomputed int            `json:"recomputed"`
	At         time.Time      `json:"at"`
}

type AccountEvent struct {
	UserID    int64     `json:"user_id"`
	AccountID int64     `json:"account_id"`
	At        time.Time `json:"at"`
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}
