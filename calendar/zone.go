package calendar

import (
	"time"

	"github.com/falconhr/attendance-engine/fault"
)

// =============================================================================
// ZONE RESOLUTION - IANA names only, never the server's local zone
// =============================================================================

// Zone resolves an IANA time zone name. The empty name is a configuration
// error: callers that may tolerate it (punch endpoints) use ZoneOrUTC,
// everything else must fail fast instead of silently assuming UTC.
func Zone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fault.Wrap(fault.ErrPrecondition, "time zone not configured")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fault.Wrap(fault.ErrValidation, "unknown time zone %q", name)
	}
	return loc, nil
}

// ZoneOrUTC resolves a zone name, substituting UTC when the name is empty.
// Reserved for the punch path; report and history paths use Zone.
func ZoneOrUTC(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return Zone(name)
}

// Today returns the current calendar date in the given zone.
func Today(loc *time.Location) Date {
	return DateOf(time.Now(), loc)
}

// DayBounds returns the UTC instants bounding the local day: midnight and
// the last nanosecond before the next midnight. The end is constructed
// explicitly in local time so DST transitions are handled correctly.
func DayBounds(d Date, loc *time.Location) (start, end time.Time) {
	start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).UTC()
	end = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999999999, loc).UTC()
	return start, end
}
