package utils

import "time"

// NowUTC truncates to the microsecond so timestamps survive a round trip
// through both SQL drivers unchanged.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
