package util

import (
	"strconv"
	"time"
)

// Layouts tried by ParseTime after RFC3339. The broker server writes
// timestamps with isoformat(), which has no zone; those are read as UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime tries RFC3339, RFC3339Nano, zone-less ISO 8601, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// FormatTimestamp renders a server timestamp for display, or returns s
// unchanged when it cannot be parsed.
func FormatTimestamp(s string) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02 15:04:05")
}
