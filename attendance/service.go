/*
service.go - Punch lifecycle and attendance queries

PURPOSE:
  Wires the pure resolution engine to the stores and side effects:
  punch-in/out with geo-tagging, today's status (single user and all
  users), and full-history reconstruction.

TIME ZONE POLICY:
  Punch endpoints tolerate a missing user time zone (UTC fallback) so an
  employee is never blocked from punching by a misconfigured profile.
  Every report path requires a configured zone and fails fast instead of
  silently assuming UTC.

SIDE EFFECTS:
  - late punch-in on an ordinary working day -> one notification to
    admin/hr, fired at punch-in only
  - any punch-in on a non-optional holiday  -> overtime notification
  Classification for these side effects is best-effort: if the branch
  calendar cannot be resolved the punch still succeeds and the miss is
  logged.
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/falconhr/attendance-engine/geo"
	"github.com/falconhr/attendance-engine/notify"
)

// UnknownAddress is stored when reverse geocoding is unavailable.
const UnknownAddress = "address unknown"

// notifyRoles receives late and overtime notifications.
var notifyRoles = []string{"admin", "hr"}

// LeaveLookup answers which approved leave, if any, covers a user's
// local date. Implemented by the leave package.
type LeaveLookup interface {
	LeaveKindOn(ctx context.Context, userID string, date calendar.Date) (LeaveKind, error)
	LeaveKindsInRange(ctx context.Context, userID string, from, to calendar.Date) (map[calendar.Date]LeaveKind, error)
}

// Service is the attendance application service.
type Service struct {
	Directory directory.Store
	Store     Store
	Leaves    LeaveLookup
	Geocoder  geo.Geocoder
	Notifier  notify.Sink
	Policy    Policy
	Log       *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewService builds a Service with the default policy and clock.
func NewService(dir directory.Store, store Store, leaves LeaveLookup, geocoder geo.Geocoder, sink notify.Sink, log *logrus.Logger) *Service {
	return &Service{
		Directory: dir,
		Store:     store,
		Leaves:    leaves,
		Geocoder:  geocoder,
		Notifier:  sink,
		Policy:    DefaultPolicy(),
		Log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the service clock. Tests use this to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// PUNCH IN / PUNCH OUT
// =============================================================================

// PunchIn records the start of the user's workday. Repeat punch-ins on
// the same local date fail with a precondition error.
func (s *Service) PunchIn(ctx context.Context, userID string, coords geo.Coordinates, client Client) (*Record, error) {
	user, err := s.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.ZoneOrUTC(user.TimeZone)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := calendar.DateOf(now, loc)

	existing, err := s.Store.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.InTime != nil {
		return nil, fault.Wrap(fault.ErrPrecondition, "already punched in today")
	}

	punchLoc := Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Address:   s.lookupAddress(ctx, coords),
		Client:    client,
	}
	if err := s.Store.SetPunchIn(ctx, userID, date, now.UTC(), punchLoc); err != nil {
		return nil, err
	}

	s.punchInSideEffects(ctx, *user, loc, date, now)

	return s.Store.Get(ctx, userID, date)
}

// PunchOut records the end of the user's workday and computes duration.
func (s *Service) PunchOut(ctx context.Context, userID string, coords geo.Coordinates, client Client) (*Record, error) {
	user, err := s.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.ZoneOrUTC(user.TimeZone)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := calendar.DateOf(now, loc)

	rec, err := s.Store.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.InTime == nil {
		return nil, fault.Wrap(fault.ErrPrecondition, "you must punch in first")
	}
	if rec.OutTime != nil {
		return nil, fault.Wrap(fault.ErrPrecondition, "already punched out today")
	}

	duration := FormatDuration(now.UTC().Sub(*rec.InTime))
	punchLoc := Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Address:   s.lookupAddress(ctx, coords),
		Client:    client,
	}
	if err := s.Store.SetPunchOut(ctx, userID, date, now.UTC(), duration, punchLoc); err != nil {
		return nil, err
	}

	return s.Store.Get(ctx, userID, date)
}

// lookupAddress degrades to UnknownAddress when the geocoder is down;
// a punch must never fail because an address could not be resolved.
func (s *Service) lookupAddress(ctx context.Context, coords geo.Coordinates) string {
	if s.Geocoder == nil {
		return UnknownAddress
	}
	address, err := s.Geocoder.ReverseGeocode(ctx, coords)
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).Warn("reverse geocoding unavailable, storing unknown address")
		}
		return UnknownAddress
	}
	return address
}

// punchInSideEffects fires the late and overtime notifications. Fired at
// punch-in only, so each punch-in produces at most one notification.
func (s *Service) punchInSideEffects(ctx context.Context, user directory.User, loc *time.Location, date calendar.Date, at time.Time) {
	holidays, weekends, err := s.branchCalendar(ctx, user)
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).WithField("user_id", user.ID).
				Warn("branch calendar unavailable, skipping punch notifications")
		}
		return
	}

	in := at
	out := Resolve(Input{
		Date:    date,
		Zone:    loc,
		InTime:  &in,
		Weekend: weekends.Contains(date),
		Holiday: holidays.Contains(date),
	}, s.Policy)

	switch {
	case out.Overtime:
		notify.Dispatch(ctx, s.Notifier, s.Log, notify.Notification{
			Roles:       notifyRoles,
			Title:       "Holiday Punch In",
			Message:     fmt.Sprintf("%s punched in on holiday %s at %s", user.Name(), date, at.In(loc).Format("15:04")),
			Link:        "/attendance",
			PerformedBy: user.ID,
		})
	case out.Late:
		notify.Dispatch(ctx, s.Notifier, s.Log, notify.Notification{
			Roles:       notifyRoles,
			Title:       "Late Punch In",
			Message:     fmt.Sprintf("%s punched in late at %s on %s", user.Name(), at.In(loc).Format("15:04"), date),
			Link:        "/attendance",
			PerformedBy: user.ID,
		})
	}
}

func (s *Service) branchCalendar(ctx context.Context, user directory.User) (directory.HolidaySet, calendar.WeekendPolicy, error) {
	holidays, err := directory.HolidaysForUser(ctx, s.Directory, user)
	if err != nil {
		return nil, nil, err
	}
	weekends, err := directory.WeekendPolicyForUser(ctx, s.Directory, user)
	if err != nil {
		return nil, nil, err
	}
	return holidays, weekends, nil
}

// =============================================================================
// TODAY QUERIES
// =============================================================================

// TodayStatus is the resolved classification of the user's current day.
type TodayStatus struct {
	User   directory.User
	Date   calendar.Date
	Status Status
	Record *Record
	Worked time.Duration
}

// Today resolves the current day for one user. Requires a configured
// time zone and branch calendar.
func (s *Service) Today(ctx context.Context, userID string) (*TodayStatus, error) {
	user, err := s.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}
	return s.resolveToday(ctx, *user, loc)
}

// TodayAll resolves the current day for every user, each in their own
// time zone. Users whose zone or branch is misconfigured are skipped
// with a warning rather than failing the whole batch.
func (s *Service) TodayAll(ctx context.Context) ([]TodayStatus, error) {
	users, err := s.Directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]TodayStatus, 0, len(users))
	for _, user := range users {
		loc, err := calendar.Zone(user.TimeZone)
		if err != nil {
			s.skip(user.ID, err)
			continue
		}
		st, err := s.resolveToday(ctx, user, loc)
		if err != nil {
			s.skip(user.ID, err)
			continue
		}
		statuses = append(statuses, *st)
	}
	return statuses, nil
}

func (s *Service) resolveToday(ctx context.Context, user directory.User, loc *time.Location) (*TodayStatus, error) {
	holidays, weekends, err := s.branchCalendar(ctx, user)
	if err != nil {
		return nil, err
	}

	date := calendar.DateOf(s.now(), loc)
	rec, err := s.Store.Get(ctx, user.ID, date)
	if err != nil {
		return nil, err
	}

	var leave LeaveKind
	if s.Leaves != nil {
		leave, err = s.Leaves.LeaveKindOn(ctx, user.ID, date)
		if err != nil {
			return nil, err
		}
	}

	out := Resolve(Input{
		Date:    date,
		Zone:    loc,
		InTime:  rowIn(rec),
		OutTime: rowOut(rec),
		Weekend: weekends.Contains(date),
		Holiday: holidays.Contains(date),
		Leave:   leave,
	}, s.Policy)

	return &TodayStatus{
		User:   user,
		Date:   date,
		Status: out.Status,
		Record: rec,
		Worked: out.Worked,
	}, nil
}

func (s *Service) skip(userID string, err error) {
	if s.Log != nil {
		s.Log.WithError(err).WithField("user_id", userID).Warn("skipping user in batch query")
	}
}

// =============================================================================
// HISTORY QUERIES
// =============================================================================

// UserHistory is a user's gap-free attendance history.
type UserHistory struct {
	User directory.User
	Days []DayRecord
}

// History reconstructs the full attendance history for one user, from
// their join date through today in their own time zone.
func (s *Service) History(ctx context.Context, userID string) (*UserHistory, error) {
	user, err := s.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.historyFor(ctx, *user)
}

// HistoryAll reconstructs every user's history. Misconfigured users are
// skipped with a warning.
func (s *Service) HistoryAll(ctx context.Context) ([]UserHistory, error) {
	users, err := s.Directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	histories := make([]UserHistory, 0, len(users))
	for _, user := range users {
		h, err := s.historyFor(ctx, user)
		if err != nil {
			s.skip(user.ID, err)
			continue
		}
		histories = append(histories, *h)
	}
	return histories, nil
}

func (s *Service) historyFor(ctx context.Context, user directory.User) (*UserHistory, error) {
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}
	if user.JoinDate.IsZero() {
		return nil, fault.Wrap(fault.ErrPrecondition, "user %s has no join date", user.ID)
	}

	holidays, weekends, err := s.branchCalendar(ctx, user)
	if err != nil {
		return nil, err
	}

	records, err := s.Store.ForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	today := calendar.DateOf(s.now(), loc)
	leaves := map[calendar.Date]LeaveKind{}
	if s.Leaves != nil {
		leaves, err = s.Leaves.LeaveKindsInRange(ctx, user.ID, user.JoinDate, today)
		if err != nil {
			return nil, err
		}
	}

	days := BuildHistory(HistoryInput{
		JoinDate: user.JoinDate,
		Today:    today,
		Zone:     loc,
		Records:  records,
		Weekends: weekends,
		Holidays: holidays,
		Leaves:   leaves,
		Policy:   s.Policy,
	})
	return &UserHistory{User: user, Days: days}, nil
}
