// Package geo converts between coordinates and the textual point format
// stored in the database, and computes great-circle distances.
//
// The accepted format is POINT(<lon> <lat>), optionally prefixed by a
// spatial reference tag such as "SRID=4326;". This package is the only place
// that format is interpreted.
package geo

import (
	"math"
	"strconv"
	"strings"
)

// SRID is the spatial reference used for every stored point (WGS 84).
const SRID = 4326

// Coordinate is a longitude/latitude pair in degrees.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether c holds finite, in-range degrees.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// ParsePoint parses "POINT(lon lat)" with an optional "SRID=n;" prefix.
// The keyword is case-insensitive and whitespace is free-form. It never
// panics; ok is false for anything malformed or out of range.
func ParsePoint(raw string) (c Coordinate, ok bool) {
	s := strings.TrimSpace(raw)

	if len(s) >= 5 && strings.EqualFold(s[:5], "SRID=") {
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			return Coordinate{}, false
		}
		if _, err := strconv.Atoi(strings.TrimSpace(s[5:semi])); err != nil {
			return Coordinate{}, false
		}
		s = strings.TrimSpace(s[semi+1:])
	}

	if len(s) < 5 || !strings.EqualFold(s[:5], "POINT") {
		return Coordinate{}, false
	}
	s = strings.TrimSpace(s[5:])
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Coordinate{}, false
	}

	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) != 2 {
		return Coordinate{}, false
	}

	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Coordinate{}, false
	}

	c = Coordinate{Lon: lon, Lat: lat}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// FormatPoint renders c as "POINT(lon lat)" using the shortest decimal
// representation that parses back to the same float64 values.
func FormatPoint(c Coordinate) string {
	var b strings.Builder
	b.Grow(32)
	b.WriteString("POINT(")
	b.WriteString(strconv.FormatFloat(c.Lon, 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(c.Lat, 'f', -1, 64))
	b.WriteByte(')')
	return b.String()
}

// FormatEWKT renders c with the SRID prefix, the form used for writes.
func FormatEWKT(c Coordinate) string {
	return "SRID=" + strconv.Itoa(SRID) + ";" + FormatPoint(c)
}
