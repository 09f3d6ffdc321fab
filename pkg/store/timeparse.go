package store

import "time"

// parseUpstreamTime parses an RFC3339 upstream timestamp, returning nil on
// an empty or unparseable value. Mapping is total: missing upstream
// fields become null rather than aborting the save.
func parseUpstreamTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}
