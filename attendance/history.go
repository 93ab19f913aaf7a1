package attendance

import (
	"time"

	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
)

// =============================================================================
// HISTORY BUILDER - One resolved row per day, join date through today
// =============================================================================

// DayRecord is one fully-resolved day in a user's history. Days with no
// stored record are synthesized so the sequence is gap-free.
type DayRecord struct {
	Date     calendar.Date
	Status   Status
	InTime   *time.Time
	OutTime  *time.Time
	Duration string
	Worked   time.Duration
	Leave    LeaveKind
	CheckIn  *Location
	CheckOut *Location
}

// HistoryInput bundles the read-side data BuildHistory reconciles.
// Everything is loaded up front; the builder itself does no I/O.
type HistoryInput struct {
	JoinDate calendar.Date
	Today    calendar.Date
	Zone     *time.Location
	Records  []Record
	Weekends calendar.WeekendPolicy
	Holidays directory.HolidaySet
	Leaves   map[calendar.Date]LeaveKind
	Policy   Policy
}

// BuildHistory materializes one row per local calendar date from the join
// date through today, both inclusive. Every row goes through Resolve, so
// history and live queries can never disagree on classification.
func BuildHistory(in HistoryInput) []DayRecord {
	if in.Today.Before(in.JoinDate) {
		return nil
	}

	byDate := make(map[calendar.Date]*Record, len(in.Records))
	for i := range in.Records {
		byDate[in.Records[i].Date] = &in.Records[i]
	}

	days := calendar.Range(in.JoinDate, in.Today)
	history := make([]DayRecord, 0, len(days))
	for _, day := range days {
		row := DayRecord{Date: day}

		var rec *Record
		if r, ok := byDate[day]; ok {
			rec = r
			row.InTime = r.InTime
			row.OutTime = r.OutTime
			row.Duration = r.Duration
			row.CheckIn = r.CheckIn
			row.CheckOut = r.CheckOut
		}

		leave := in.Leaves[day]
		out := Resolve(Input{
			Date:    day,
			Zone:    in.Zone,
			InTime:  rowIn(rec),
			OutTime: rowOut(rec),
			Weekend: in.Weekends.Contains(day),
			Holiday: in.Holidays.Contains(day),
			Leave:   leave,
		}, in.Policy)

		row.Status = out.Status
		row.Worked = out.Worked
		row.Leave = leave
		if row.Duration == "" && out.HasWorked {
			row.Duration = FormatDuration(out.Worked)
		}
		history = append(history, row)
	}
	return history
}

func rowIn(r *Record) *time.Time {
	if r == nil {
		return nil
	}
	return r.InTime
}

func rowOut(r *Record) *time.Time {
	if r == nil {
		return nil
	}
	return r.OutTime
}
