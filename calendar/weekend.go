package calendar

import (
	"github.com/falconhr/attendance-engine/fault"
)

// =============================================================================
// WEEKEND POLICY - Per-branch set of non-working weekday names
// =============================================================================

// WeekendPolicy is the set of weekday names ("Sunday", ...) a branch
// treats as non-working.
type WeekendPolicy []string

// Validate rejects an empty policy. A branch with no configured weekends
// is a misconfiguration, not a branch that works seven days a week.
func (p WeekendPolicy) Validate() error {
	if len(p) == 0 {
		return fault.Wrap(fault.ErrPrecondition, "branch weekends not configured")
	}
	return nil
}

// IsWeekend reports whether the given weekday name is a weekend day.
func (p WeekendPolicy) IsWeekend(weekday string) bool {
	for _, w := range p {
		if w == weekday {
			return true
		}
	}
	return false
}

// Contains is set membership on a Date.
func (p WeekendPolicy) Contains(d Date) bool {
	return p.IsWeekend(d.Weekday())
}
