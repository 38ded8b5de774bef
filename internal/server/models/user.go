// Package models defines the server-side domain types: users, their game
// accounts, captures, and the statistics derived from them.
package models

import (
	"time"

	"github.com/dmitrijs2005/godex/internal/geo"
)

// User owns accounts and captures. Home is nil until the user sets it; it is
// the reference point for every capture's distance.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	Home         *geo.Coordinate
	CreatedAt    time.Time
}
