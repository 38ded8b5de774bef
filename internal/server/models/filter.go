package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/godex/internal/common"
)

// SortField is the closed set of keys captures can be ordered by.
type SortField string

const (
	SortByCapturedAt SortField = "captured_at"
	SortBySpecies    SortField = "species"
	SortByNickname   SortField = "nickname"
	SortByIV         SortField = "iv"
	SortByDistance   SortField = "distance"
)

var comparators = map[SortField]func(a, b *Capture) int{
	SortByCapturedAt: func(a, b *Capture) int { return a.CapturedAt.Compare(b.CapturedAt) },
	SortBySpecies: func(a, b *Capture) int {
		return strings.Compare(strings.ToLower(a.Species), strings.ToLower(b.Species))
	},
	SortByNickname: func(a, b *Capture) int {
		return strings.Compare(strings.ToLower(deref(a.Nickname)), strings.ToLower(deref(b.Nickname)))
	},
	SortByIV:       func(a, b *Capture) int { return cmp.Compare(a.IV, b.IV) },
	SortByDistance: func(a, b *Capture) int { return cmp.Compare(*a.DistanceKm, *b.DistanceKm) },
}

// ParseSortField maps a client-supplied key to a SortField. An empty key
// selects SortByCapturedAt.
func ParseSortField(s string) (SortField, error) {
	if s == "" {
		return SortByCapturedAt, nil
	}
	f := SortField(strings.ToLower(s))
	if _, ok := comparators[f]; !ok {
		return "", fmt.Errorf("%w: unknown sort field %q", common.ErrorValidation, s)
	}
	return f, nil
}

// CaptureFilter narrows and orders a capture listing.
type CaptureFilter struct {
	// Species matches case-insensitively anywhere in the species name or
	// nickname.
	Species   string
	ShinyOnly bool
	MinIV     *int
	Sort      SortField
	Desc      bool
}

// ApplyFilter returns the captures matching f, ordered by f.Sort. The input
// slice is not modified. Captures with an unknown distance always sort last
// when ordering by distance; remaining ties fall back to id.
func ApplyFilter(captures []Capture, f CaptureFilter) []Capture {
	needle := strings.ToLower(strings.TrimSpace(f.Species))

	out := make([]Capture, 0, len(captures))
	for _, c := range captures {
		if f.ShinyOnly && !c.IsShiny {
			continue
		}
		if f.MinIV != nil && c.IV < *f.MinIV {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Species), needle) &&
			!strings.Contains(strings.ToLower(deref(c.Nickname)), needle) {
			continue
		}
		out = append(out, c)
	}

	field := f.Sort
	if field == "" {
		field = SortByCapturedAt
	}
	compare, ok := comparators[field]
	if !ok {
		compare = comparators[SortByCapturedAt]
		field = SortByCapturedAt
	}

	slices.SortStableFunc(out, func(a, b Capture) int {
		if field == SortByDistance {
			switch {
			case a.DistanceKm == nil && b.DistanceKm == nil:
				return cmp.Compare(a.ID, b.ID)
			case a.DistanceKm == nil:
				return 1
			case b.DistanceKm == nil:
				return -1
			}
		}
		r := compare(&a, &b)
		if f.Desc {
			r = -r
		}
		if r == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return r
	})

	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
