package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/falconhr/attendance-engine/geo"
	"github.com/falconhr/attendance-engine/notify"
	"github.com/falconhr/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type captureSink struct {
	sent []notify.Notification
}

func (c *captureSink) Send(_ context.Context, n notify.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureSink) titles() []string {
	titles := make([]string, len(c.sent))
	for i, n := range c.sent {
		titles[i] = n.Title
	}
	return titles
}

type stubGeocoder struct {
	address string
	err     error
}

func (g *stubGeocoder) ReverseGeocode(context.Context, geo.Coordinates) (string, error) {
	return g.address, g.err
}

type serviceFixture struct {
	service *attendance.Service
	store   *sqlite.Store
	sink    *captureSink
	geocode *stubGeocoder
}

// newServiceFixture seeds a Bengaluru branch (Sat/Sun weekends, Republic
// Day holiday) and one Asia/Kolkata user joined 2024-01-25.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveBranch(ctx, directory.Branch{
		ID:       "blr",
		Name:     "Bengaluru",
		Weekends: calendar.WeekendPolicy{"Saturday", "Sunday"},
	}))
	require.NoError(t, store.SaveHoliday(ctx, directory.Holiday{
		ID:       "hol-1",
		BranchID: "blr",
		Date:     calendar.MustParseDate("2024-01-26"),
		Name:     "Republic Day",
	}))
	require.NoError(t, store.SaveUser(ctx, directory.User{
		ID:        "u1",
		FirstName: "Asha",
		LastName:  "Iyer",
		TimeZone:  "Asia/Kolkata",
		BranchID:  "blr",
		JoinDate:  calendar.MustParseDate("2024-01-25"),
	}))

	sink := &captureSink{}
	geocode := &stubGeocoder{address: "MG Road, Bengaluru"}
	service := attendance.NewService(store, store, nil, geocode, sink, nil)

	return &serviceFixture{service: service, store: store, sink: sink, geocode: geocode}
}

// at pins the service clock to a local Kolkata wall-clock time.
func (f *serviceFixture) at(t *testing.T, date string, hour, min int) {
	t.Helper()
	loc := kolkata(t)
	d := calendar.MustParseDate(date)
	instant := time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, loc)
	f.service.WithClock(func() time.Time { return instant })
}

// =============================================================================
// PUNCH LIFECYCLE
// =============================================================================

func TestService_PunchInOut(t *testing.T) {
	// GIVEN: An on-time punch-in followed by a punch-out nine hours later
	// WHEN: Both punches are recorded
	// THEN: One record holds both instants, the duration, and the address

	f := newServiceFixture(t)
	ctx := context.Background()
	coords := geo.Coordinates{Latitude: 12.97, Longitude: 77.59}

	f.at(t, "2024-01-29", 9, 0)
	rec, err := f.service.PunchIn(ctx, "u1", coords, attendance.ClientMobile)
	require.NoError(t, err)
	require.NotNil(t, rec.InTime)
	assert.Equal(t, "2024-01-29", rec.Date.String())
	require.NotNil(t, rec.CheckIn)
	assert.Equal(t, "MG Road, Bengaluru", rec.CheckIn.Address)
	assert.Equal(t, attendance.ClientMobile, rec.CheckIn.Client)

	f.at(t, "2024-01-29", 18, 0)
	rec, err = f.service.PunchOut(ctx, "u1", coords, attendance.ClientMobile)
	require.NoError(t, err)
	require.NotNil(t, rec.OutTime)
	assert.Equal(t, "09:00:00", rec.Duration)
	assert.Equal(t, 9*time.Hour, rec.Worked())
}

func TestService_DoublePunchInRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.at(t, "2024-01-29", 9, 0)
	_, err := f.service.PunchIn(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	_, err = f.service.PunchIn(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestService_PunchOutBeforeInRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.at(t, "2024-01-29", 18, 0)

	_, err := f.service.PunchOut(context.Background(), "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestService_DoublePunchOutRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.at(t, "2024-01-29", 9, 0)
	_, err := f.service.PunchIn(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	f.at(t, "2024-01-29", 18, 0)
	_, err = f.service.PunchOut(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	_, err = f.service.PunchOut(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestService_GeocoderFailureDegrades(t *testing.T) {
	// GIVEN: The reverse geocoder is down
	// WHEN: A punch-in is recorded
	// THEN: The punch succeeds with "address unknown"

	f := newServiceFixture(t)
	f.geocode.address = ""
	f.geocode.err = errors.New("connection refused")
	f.at(t, "2024-01-29", 9, 0)

	rec, err := f.service.PunchIn(context.Background(), "u1", geo.Coordinates{Latitude: 1, Longitude: 1}, attendance.ClientWeb)
	require.NoError(t, err)
	require.NotNil(t, rec.CheckIn)
	assert.Equal(t, attendance.UnknownAddress, rec.CheckIn.Address)
}

// =============================================================================
// PUNCH NOTIFICATIONS
// =============================================================================

func TestService_LatePunchNotifiesOnce(t *testing.T) {
	// GIVEN: A punch-in at 09:16 local, one minute past the cutoff
	// WHEN: The punch is recorded
	// THEN: Exactly one late notification goes to admin/hr

	f := newServiceFixture(t)
	f.at(t, "2024-01-29", 9, 16)

	_, err := f.service.PunchIn(context.Background(), "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	require.Equal(t, []string{"Late Punch In"}, f.sink.titles())
	assert.ElementsMatch(t, []string{"admin", "hr"}, f.sink.sent[0].Roles)
}

func TestService_OnTimePunchIsSilent(t *testing.T) {
	f := newServiceFixture(t)
	f.at(t, "2024-01-29", 9, 15)

	_, err := f.service.PunchIn(context.Background(), "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	assert.Empty(t, f.sink.sent)
}

func TestService_HolidayPunchNotifiesOvertime(t *testing.T) {
	f := newServiceFixture(t)
	f.at(t, "2024-01-26", 10, 0)

	_, err := f.service.PunchIn(context.Background(), "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	require.Equal(t, []string{"Holiday Punch In"}, f.sink.titles())
}

// =============================================================================
// TODAY AND HISTORY
// =============================================================================

func TestService_TodayResolvesCurrentDay(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.at(t, "2024-01-29", 9, 0)
	_, err := f.service.PunchIn(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	st, err := f.service.Today(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, st.Status)
	assert.Equal(t, "2024-01-29", st.Date.String())
}

func TestService_TodayRequiresTimeZone(t *testing.T) {
	// Report paths fail fast on a missing zone instead of assuming UTC.
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveUser(ctx, directory.User{
		ID:        "u2",
		FirstName: "NoZone",
		BranchID:  "blr",
		JoinDate:  calendar.MustParseDate("2024-01-01"),
	}))

	_, err := f.service.Today(ctx, "u2")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestService_TodayAllSkipsMisconfiguredUsers(t *testing.T) {
	// GIVEN: One healthy user and one with no time zone
	// WHEN: The all-users batch runs
	// THEN: The healthy user is returned, the broken one skipped

	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveUser(ctx, directory.User{
		ID:        "u2",
		FirstName: "NoZone",
		BranchID:  "blr",
	}))

	f.at(t, "2024-01-29", 9, 0)
	statuses, err := f.service.TodayAll(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "u1", statuses[0].User.ID)
}

func TestService_HistoryJoinDateThroughToday(t *testing.T) {
	// GIVEN: A user joined Jan 25 with one holiday punch on Jan 26
	// WHEN: History is requested on Jan 31
	// THEN: 7 rows, gap-free, classified per the precedence rules

	f := newServiceFixture(t)
	ctx := context.Background()

	f.at(t, "2024-01-26", 10, 0)
	_, err := f.service.PunchIn(ctx, "u1", geo.Coordinates{}, attendance.ClientWeb)
	require.NoError(t, err)

	f.at(t, "2024-01-31", 12, 0)
	hist, err := f.service.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist.Days, 7)

	assert.Equal(t, attendance.StatusOverTime, hist.Days[1].Status) // Jan 26
	assert.Equal(t, attendance.StatusWeekend, hist.Days[2].Status)  // Jan 27 Saturday
	assert.Equal(t, attendance.StatusWeekend, hist.Days[3].Status)  // Jan 28 Sunday
	assert.Equal(t, attendance.StatusAbsent, hist.Days[4].Status)   // Jan 29 Monday
}

func TestService_HistoryRequiresJoinDate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveUser(ctx, directory.User{
		ID:        "u3",
		FirstName: "NoJoin",
		TimeZone:  "Asia/Kolkata",
		BranchID:  "blr",
	}))

	_, err := f.service.History(ctx, "u3")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}
