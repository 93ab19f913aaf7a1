package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/falconhr/attendance-engine/leave"
	"github.com/falconhr/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedLeave(employeeID, id string, status leave.Status, from, to time.Time) leave.Request {
	return leave.Request{
		ID:           id,
		EmployeeID:   employeeID,
		Type:         leave.TypeCasual,
		FromDate:     from,
		ToDate:       to,
		Status:       status,
		LeaveTaken:   decimal.NewFromInt(1),
		LeaveBalance: decimal.NewFromInt(14),
		MaximumLeave: decimal.NewFromInt(14),
		AppliedAt:    time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// PUNCH INVARIANT
// =============================================================================

func TestStore_SetPunchIn_SecondPunchRejected(t *testing.T) {
	// GIVEN: A punch-in already stored for (u1, 2024-03-11)
	// WHEN: A second punch-in lands on the same key
	// THEN: The conditional upsert affects zero rows and fails,
	//       and the original instant survives

	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")
	first := time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC)

	require.NoError(t, store.SetPunchIn(ctx, "u1", date, first, attendance.Location{Address: "office"}))

	err := store.SetPunchIn(ctx, "u1", date, first.Add(time.Hour), attendance.Location{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)

	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	require.NotNil(t, rec.InTime)
	assert.True(t, rec.InTime.Equal(first))
}

func TestStore_SetPunchOut_RequiresOpenPunchIn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")
	at := time.Date(2024, time.March, 11, 12, 30, 0, 0, time.UTC)

	// No row at all.
	err := store.SetPunchOut(ctx, "u1", date, at, "09:00:00", attendance.Location{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)

	// Status-only row (leave approval) has no punch-in either.
	require.NoError(t, store.SetStatus(ctx, "u1", date, attendance.StatusLeave))
	err = store.SetPunchOut(ctx, "u1", date, at, "09:00:00", attendance.Location{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestStore_SetPunchIn_FillsStatusOnlyRow(t *testing.T) {
	// A row created by leave approval can still accept punches; the
	// status label and the punch coexist on the one row per day.
	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")
	at := time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC)

	require.NoError(t, store.SetStatus(ctx, "u1", date, attendance.StatusLeave))
	require.NoError(t, store.SetPunchIn(ctx, "u1", date, at, attendance.Location{}))

	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLeave, rec.Status)
	require.NotNil(t, rec.InTime)
}

func TestStore_Get_MissingIsNil(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Get(context.Background(), "nobody", calendar.MustParseDate("2024-01-01"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_PunchRoundTrip(t *testing.T) {
	// Locations, instants and duration survive a full round trip.
	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")
	in := time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)

	checkIn := attendance.Location{Latitude: 12.97, Longitude: 77.59, Address: "MG Road", Client: attendance.ClientMobile}
	require.NoError(t, store.SetPunchIn(ctx, "u1", date, in, checkIn))
	require.NoError(t, store.SetPunchOut(ctx, "u1", date, out, "09:00:00", checkIn))

	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	assert.True(t, rec.InTime.Equal(in))
	assert.True(t, rec.OutTime.Equal(out))
	assert.Equal(t, "09:00:00", rec.Duration)
	require.NotNil(t, rec.CheckIn)
	assert.Equal(t, checkIn, *rec.CheckIn)
}

func TestStore_ClearStatus_LabelFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")

	require.NoError(t, store.SetStatus(ctx, "u1", date, attendance.StatusPresent))

	// Filtered clear does not touch a foreign label.
	require.NoError(t, store.ClearStatus(ctx, "u1", date, attendance.StatusLeave))
	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)

	// Unfiltered clear resets any label.
	require.NoError(t, store.ClearStatus(ctx, "u1", date))
	rec, err = store.Get(ctx, "u1", date)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNone, rec.Status)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestStore_BranchByName_CaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBranch(ctx, directory.Branch{
		ID:       "blr",
		Name:     "Bengaluru",
		Weekends: calendar.WeekendPolicy{"Saturday", "Sunday"},
	}))

	branch, err := store.GetBranchByName(ctx, "bengaluru")
	require.NoError(t, err)
	assert.Equal(t, "blr", branch.ID)
	assert.Equal(t, calendar.WeekendPolicy{"Saturday", "Sunday"}, branch.Weekends)

	_, err = store.GetBranchByName(ctx, "Mumbai")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestStore_UserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := directory.User{
		ID:        "u1",
		FirstName: "Asha",
		LastName:  "Iyer",
		Email:     "asha@example.com",
		TimeZone:  "Asia/Kolkata",
		BranchID:  "blr",
		JoinDate:  calendar.MustParseDate("2024-01-25"),
	}
	require.NoError(t, store.SaveUser(ctx, user))

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user, *got)

	_, err = store.GetUser(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestStore_HolidaysForBranch_OptionalFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, directory.Holiday{
		ID: "h1", BranchID: "blr", Date: calendar.MustParseDate("2024-01-26"), Name: "Republic Day",
	}))
	require.NoError(t, store.SaveHoliday(ctx, directory.Holiday{
		ID: "h2", BranchID: "blr", Date: calendar.MustParseDate("2024-03-25"), Name: "Holi", Optional: true,
	}))

	all, err := store.HolidaysForBranch(ctx, "blr", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mandatory, err := store.HolidaysForBranch(ctx, "blr", true)
	require.NoError(t, err)
	require.Len(t, mandatory, 1)
	assert.Equal(t, "Republic Day", mandatory[0].Name)
}

// =============================================================================
// LEAVES
// =============================================================================

func TestStore_ApprovedOverlapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	from := time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 13, 18, 29, 59, 0, time.UTC)
	require.NoError(t, store.SaveRequest(ctx, seedLeave("u1", "l1", leave.StatusApproved, from, to)))
	require.NoError(t, store.SaveRequest(ctx, seedLeave("u1", "l2", leave.StatusPending, from.AddDate(0, 1, 0), to.AddDate(0, 1, 0))))

	// Touching the last day overlaps.
	hit, err := store.ApprovedOverlapping(ctx, "u1", to.Add(-time.Hour), to.Add(24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "l1", hit.ID)

	// Clear of the range, and pending requests never block.
	miss, err := store.ApprovedOverlapping(ctx, "u1", to.Add(time.Hour), to.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, miss)

	// Other employees are independent.
	miss, err = store.ApprovedOverlapping(ctx, "u2", from, to)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestStore_ListRequests_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRequest(ctx, seedLeave("u1", "l1", leave.StatusApproved, base, base.AddDate(0, 0, 2))))
	require.NoError(t, store.SaveRequest(ctx, seedLeave("u1", "l2", leave.StatusPending, base.AddDate(0, 0, 10), base.AddDate(0, 0, 12))))
	require.NoError(t, store.SaveRequest(ctx, seedLeave("u2", "l3", leave.StatusApproved, base, base.AddDate(0, 0, 1))))

	byEmployee, err := store.ListRequests(ctx, leave.Filter{EmployeeID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byEmployee, 2)

	byStatus, err := store.ListRequests(ctx, leave.Filter{Status: leave.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	windowFrom := base.AddDate(0, 0, 9)
	windowTo := base.AddDate(0, 0, 20)
	byWindow, err := store.ListRequests(ctx, leave.Filter{From: &windowFrom, To: &windowTo})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, "l2", byWindow[0].ID)
}

func TestStore_LeaveDecimalsRoundTrip(t *testing.T) {
	// Amounts are stored as text; a half day stays exactly 0.5.
	store := newTestStore(t)
	ctx := context.Background()

	req := seedLeave("u1", "l1", leave.StatusApproved,
		time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC),
		time.Date(2024, time.March, 11, 18, 29, 59, 0, time.UTC))
	req.LeaveTaken = decimal.NewFromFloat(0.5)
	req.LeaveBalance = decimal.NewFromFloat(13.5)
	require.NoError(t, store.SaveRequest(ctx, req))

	got, err := store.GetRequest(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, got.LeaveTaken.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, got.LeaveBalance.Equal(decimal.NewFromFloat(13.5)))
	assert.True(t, got.FromDate.Equal(req.FromDate))

	_, err = store.GetRequest(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that marks a day and then fails
	// WHEN: WithTx returns the error
	// THEN: The attendance row was rolled back

	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.SetAttendanceStatus(ctx, "u1", date, attendance.StatusLeave); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_WithTx_Commits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := calendar.MustParseDate("2024-03-11")

	err := store.WithTx(ctx, func(tx leave.Store) error {
		return tx.SetAttendanceStatus(ctx, "u1", date, attendance.StatusLeave)
	})
	require.NoError(t, err)

	rec, err := store.Get(ctx, "u1", date)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, attendance.StatusLeave, rec.Status)
}
