// Package snapkey formats and parses the timestamp stamps used in snapshot
// storage keys and export filenames. Stamps sort lexicographically in
// chronological order, so newest-first listings are a reverse sort.
package snapkey

import (
	"fmt"
	"time"
)

// stampFormat is UTC with millisecond precision. Milliseconds keep two
// snapshots created in the same second from colliding on one key.
const stampFormat = "20060102T150405.000"

// Format returns a stamp like "20250103T141500.250" for t (in UTC).
func Format(t time.Time) string {
	return t.UTC().Format(stampFormat)
}

// Parse converts a stamp back into a UTC time.
func Parse(stamp string) (time.Time, error) {
	t, err := time.ParseInLocation(stampFormat, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot stamp %q: %w", stamp, err)
	}
	return t, nil
}
