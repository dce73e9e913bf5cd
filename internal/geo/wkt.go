package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// WKT renders the point as well-known text, longitude first as the
// format requires: POINT(lng lat). Used only at serialization
// boundaries; entities carry plain Points.
func (p Point) WKT() string {
	return fmt.Sprintf("POINT(%s %s)",
		strconv.FormatFloat(p.Lng, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
	)
}

// ParseWKT parses a POINT(lng lat) string into a validated Point.
func ParseWKT(s string) (Point, error) {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "POINT") {
		return Point{}, fmt.Errorf("not a WKT point: %q", s)
	}
	openIdx := strings.Index(trimmed, "(")
	closeIdx := strings.LastIndex(trimmed, ")")
	if openIdx < 0 || closeIdx < openIdx {
		return Point{}, fmt.Errorf("malformed WKT point: %q", s)
	}

	fields := strings.Fields(trimmed[openIdx+1 : closeIdx])
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("malformed WKT point: %q", s)
	}

	lng, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude in WKT point: %q", s)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude in WKT point: %q", s)
	}

	return NewPoint(lat, lng)
}
