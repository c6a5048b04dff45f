package normalizer

import (
	"call-forecast/errors"
	"fmt"
	"strings"
	"time"
)

// layouts are tried in order. The first matches the repaired call-log format
// ("02-Jan-26 01:26:44 AM"); the rest cover input that was already well formed.
var layouts = []string{
	"02-Jan-06 03:04:05 PM",
	"2-Jan-06 3:04:05 PM",
	"02-Jan-06 03:04:05PM",
	"02-Jan-06 03:04 PM",
	"02-Jan-2006 03:04:05 PM",
	"2006-01-02 15:04:05",
}

// Repair rewrites a dot-delimited call-log timestamp such as
// "02-Jan-26 01.26.44.180223 AM" into "02-Jan-26 01:26:44 AM".
// Strings with three or fewer colon-delimited segments are returned unchanged
// apart from the dot replacement.
func Repair(raw string) string {
	clean := strings.ReplaceAll(raw, ".", ":")
	parts := strings.Split(clean, ":")
	if len(parts) <= 3 {
		return clean
	}

	// Fractional seconds are glued to the AM/PM marker; keep the marker and
	// drop the digits.
	marker := clean
	if len(clean) > 3 {
		marker = clean[len(clean)-3:]
	}
	seconds, _, _ := strings.Cut(parts[2], " ")
	return parts[0] + ":" + parts[1] + ":" + seconds + marker
}

// Normalize repairs raw and parses it as a calendar timestamp in loc.
// A nil loc means UTC.
func Normalize(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.ErrEmptyTimestamp
	}

	// RFC 3339 carries its own offset and must not go through the dot repair.
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(loc), nil
	}

	// Month names parse case-insensitively but the AM/PM marker does not.
	candidate := strings.ToUpper(Repair(raw))
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, candidate, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errors.ErrUnparseableTimestamp, raw)
}
