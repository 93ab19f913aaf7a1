/*
status.go - The status resolution engine

PURPOSE:
  Resolve is the single source of truth for classifying one (user, day).
  Every call site - live today queries, the all-users batch, and the
  historical rebuild - uses this function exclusively, so the precedence
  order cannot drift between endpoints.

PRECEDENCE (highest first):
  1. branch weekend            -> Weekend (punches still recorded)
  2. holiday, no punch-in      -> Holiday
  3. holiday, punch-in present -> Over Time (compensable activity)
  4. approved leave            -> Leave / First Half Leave / Second Half Leave
  5. punch-in at/before cutoff -> Present
  6. late punch-in, punched out-> LateShift policy decides (default Present)
  7. punch-in only             -> Half Day (provisional)
  8. nothing                   -> Absent

  Rule 6 is deliberately a policy hook: the business distinction between
  a late-but-full shift and a late short shift is unsettled, so the
  worked hours are always exposed on the Output and the default policy
  keeps the label Present.
*/
package attendance

import (
	"time"

	"github.com/falconhr/attendance-engine/calendar"
)

// =============================================================================
// STATUS - Closed enum of day classifications
// =============================================================================

type Status string

const (
	StatusNone            Status = ""
	StatusPresent         Status = "Present"
	StatusAbsent          Status = "Absent"
	StatusHalfDay         Status = "Half Day"
	StatusWeekend         Status = "Weekend"
	StatusHoliday         Status = "Holiday"
	StatusLeave           Status = "Leave"
	StatusFirstHalfLeave  Status = "First Half Leave"
	StatusSecondHalfLeave Status = "Second Half Leave"
	StatusOverTime        Status = "Over Time"
)

// LeaveKind is the flavour of approved leave covering a date, as far as
// status resolution cares. The empty kind means no leave.
type LeaveKind string

const (
	LeaveNone       LeaveKind = ""
	LeaveFullDay    LeaveKind = "full"
	LeaveFirstHalf  LeaveKind = "firstHalf"
	LeaveSecondHalf LeaveKind = "secondHalf"
)

// StatusFor maps a leave kind to its attendance label.
func (k LeaveKind) StatusFor() Status {
	switch k {
	case LeaveFirstHalf:
		return StatusFirstHalfLeave
	case LeaveSecondHalf:
		return StatusSecondHalfLeave
	case LeaveFullDay:
		return StatusLeave
	default:
		return StatusNone
	}
}

// =============================================================================
// POLICY - Tunable thresholds
// =============================================================================

// Policy carries the resolution thresholds. The zero value is NOT usable;
// call DefaultPolicy.
type Policy struct {
	// CutoffHour/CutoffMinute is the local on-time threshold (09:15).
	CutoffHour   int
	CutoffMinute int

	// FullDay is the worked duration a full shift is expected to reach.
	FullDay time.Duration

	// LateShift decides the label for a late punch-in that has punched
	// out (precedence rule 6). Receives the worked duration.
	LateShift func(worked time.Duration) Status
}

// DefaultPolicy returns the production thresholds: 09:15 cutoff, 9 hour
// full day, late shifts labelled Present regardless of length.
func DefaultPolicy() Policy {
	return Policy{
		CutoffHour:   9,
		CutoffMinute: 15,
		FullDay:      9 * time.Hour,
		LateShift: func(time.Duration) Status {
			return StatusPresent
		},
	}
}

// cutoff returns the cutoff instant for a local date.
func (p Policy) cutoff(d calendar.Date, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), p.CutoffHour, p.CutoffMinute, 0, 0, loc)
}

// =============================================================================
// RESOLVE - The pure precedence function
// =============================================================================

// Input is everything Resolve needs to classify one (user, day).
type Input struct {
	Date    calendar.Date
	Zone    *time.Location
	InTime  *time.Time
	OutTime *time.Time
	Weekend bool
	Holiday bool // non-optional branch holiday
	Leave   LeaveKind
}

// Output is the classification plus the facts side-effecting callers need.
type Output struct {
	Status Status

	// Late is set when the punch-in came after the cutoff on an ordinary
	// working day. The punch service fires the late notification from
	// this flag exactly once, at punch-in time.
	Late bool

	// Overtime is set when a punch-in exists on a holiday. The punch
	// service notifies admin/HR from this flag.
	Overtime bool

	// Worked is the wall-clock span between punches (zero until both
	// exist). Exposed even when the status is Weekend or Over Time.
	Worked    time.Duration
	HasWorked bool
}

// Resolve classifies a single day. Pure: no I/O, no clock access.
func Resolve(in Input, policy Policy) Output {
	out := Output{}
	if in.InTime != nil && in.OutTime != nil {
		out.Worked = in.OutTime.Sub(*in.InTime)
		out.HasWorked = true
	}

	punchedIn := in.InTime != nil
	late := false
	if punchedIn {
		late = in.InTime.In(in.Zone).After(policy.cutoff(in.Date, in.Zone))
	}

	switch {
	case in.Weekend:
		out.Status = StatusWeekend
	case in.Holiday && !punchedIn:
		out.Status = StatusHoliday
	case in.Holiday && punchedIn:
		out.Status = StatusOverTime
		out.Overtime = true
	case in.Leave != LeaveNone:
		out.Status = in.Leave.StatusFor()
	case punchedIn && !late:
		out.Status = StatusPresent
	case punchedIn && in.OutTime != nil:
		out.Status = policy.LateShift(out.Worked)
		out.Late = true
	case punchedIn:
		out.Status = StatusHalfDay
		out.Late = true
	default:
		out.Status = StatusAbsent
	}
	return out
}
