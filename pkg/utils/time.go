package utils

import "time"

// wireTimeLayout is the timestamp format used in API envelopes.
const wireTimeLayout = time.RFC3339

// NowRFC3339 returns the current UTC time formatted for wire envelopes.
func NowRFC3339() string {
	return time.Now().UTC().Format(wireTimeLayout)
}

// ParseRFC3339 is the inverse of NowRFC3339.
func ParseRFC3339(value string) (time.Time, error) {
	return time.Parse(wireTimeLayout, value)
}
