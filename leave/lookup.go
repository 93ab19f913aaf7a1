package leave

import (
	"context"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
)

// =============================================================================
// LEAVE LOOKUP - attendance.LeaveLookup implementation
// =============================================================================

// LeaveKindOn reports the approved leave kind covering the user's local
// date, or the empty kind.
func (m *Manager) LeaveKindOn(ctx context.Context, userID string, date calendar.Date) (attendance.LeaveKind, error) {
	kinds, err := m.LeaveKindsInRange(ctx, userID, date, date)
	if err != nil {
		return attendance.LeaveNone, err
	}
	return kinds[date], nil
}

// LeaveKindsInRange expands the user's approved leaves into a per-date
// map over [from, to]. Dates are local calendar dates in the user's zone.
func (m *Manager) LeaveKindsInRange(ctx context.Context, userID string, from, to calendar.Date) (map[calendar.Date]attendance.LeaveKind, error) {
	user, err := m.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}

	approved, err := m.Store.ApprovedRequests(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	kinds := make(map[calendar.Date]attendance.LeaveKind)
	for _, req := range approved {
		start := calendar.DateOf(req.FromDate, loc)
		end := calendar.DateOf(req.ToDate, loc)
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		for _, d := range calendar.Range(start, end) {
			kinds[d] = req.Type.Kind()
		}
	}
	return kinds, nil
}
