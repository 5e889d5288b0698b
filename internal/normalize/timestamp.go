// Package normalize turns the heterogeneous timestamp and content shapes
// found across provider exports into the canonical conversation model's
// UTC timestamps and plain-text bodies.
package normalize

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when none of the accepted encodings
// parse v.
var ErrInvalidTimestamp = errors.New("normalize: unparseable timestamp")

// millisecondMagnitudeThreshold distinguishes seconds-since-epoch from
// milliseconds-since-epoch: any numeric value larger than this is treated
// as milliseconds (seconds-since-epoch values for plausible dates top out
// well below 1e11, which corresponds to the year 5138).
const millisecondMagnitudeThreshold = 1e11

// fallbackLayouts are tried, in order, for string inputs that are not
// valid RFC 3339.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
}

// ParseTimestamp accepts numeric seconds or milliseconds since the Unix
// epoch, an RFC 3339 string (tolerating a trailing "Z"), or one of several
// last-resort string layouts, and returns a UTC time.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case float64:
		return fromNumeric(t)
	case float32:
		return fromNumeric(float64(t))
	case int64:
		return fromNumeric(float64(t))
	case int:
		return fromNumeric(float64(t))
	case string:
		return fromString(t)
	default:
		return time.Time{}, ErrInvalidTimestamp
	}
}

func fromNumeric(n float64) (time.Time, error) {
	if n <= 0 {
		return time.Time{}, ErrInvalidTimestamp
	}
	if n > millisecondMagnitudeThreshold {
		secs := int64(n) / 1000
		nsec := (int64(n) % 1000) * int64(time.Millisecond)
		return time.Unix(secs, nsec).UTC(), nil
	}
	secs := int64(n)
	nsec := int64((n - float64(secs)) * float64(time.Second))
	return time.Unix(secs, nsec).UTC(), nil
}

func fromString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	// Numeric string: dispatch back through fromNumeric so "1704103330"
	// and "1704103330000" are accepted the same as their JSON-number form.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromNumeric(n)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}

// FormatTimestamp renders t in RFC 3339 with second resolution, the
// canonical wire form used for the timestamp round-trip law.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
