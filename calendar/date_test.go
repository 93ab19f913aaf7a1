package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/fault"
)

// =============================================================================
// DATE ARITHMETIC
// =============================================================================

func TestDateOf_LocalDayDiffersFromUTC(t *testing.T) {
	// GIVEN: An instant that is March 10 in UTC
	// WHEN: Viewed from Asia/Kolkata (UTC+5:30)
	// THEN: The local calendar date is March 11

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on March 10 is 01:30 IST on March 11
	at := time.Date(2024, time.March, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-11", calendar.DateOf(at, kolkata).String())
	assert.Equal(t, "2024-03-10", calendar.DateOf(at, time.UTC).String())
}

func TestDate_DaysUntil(t *testing.T) {
	from := calendar.MustParseDate("2024-01-01")

	assert.Equal(t, 0, from.DaysUntil(from))
	assert.Equal(t, 30, from.DaysUntil(calendar.MustParseDate("2024-01-31")))
	assert.Equal(t, -1, from.DaysUntil(calendar.MustParseDate("2023-12-31")))
	// 2024 is a leap year
	assert.Equal(t, 366, from.DaysUntil(calendar.MustParseDate("2025-01-01")))
}

func TestRange_Inclusive(t *testing.T) {
	// GIVEN: A three day span
	// WHEN: Expanded to dates
	// THEN: Both endpoints are included, in order

	dates := calendar.Range(
		calendar.MustParseDate("2024-02-28"),
		calendar.MustParseDate("2024-03-01"),
	)

	require.Len(t, dates, 3)
	assert.Equal(t, "2024-02-28", dates[0].String())
	assert.Equal(t, "2024-02-29", dates[1].String()) // leap day
	assert.Equal(t, "2024-03-01", dates[2].String())
}

func TestRange_SingleDayAndInverted(t *testing.T) {
	d := calendar.MustParseDate("2024-06-15")

	assert.Len(t, calendar.Range(d, d), 1)
	assert.Nil(t, calendar.Range(d.AddDays(1), d))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := calendar.ParseDate("15/06/2024")
	assert.Error(t, err)

	_, err = calendar.ParseDate("")
	assert.Error(t, err)
}

// =============================================================================
// ZONE RESOLUTION
// =============================================================================

func TestZone_EmptyIsPreconditionFailure(t *testing.T) {
	// GIVEN: A user profile with no time zone
	// WHEN: A report path resolves the zone
	// THEN: It fails fast instead of assuming UTC

	_, err := calendar.Zone("")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)
}

func TestZone_UnknownName(t *testing.T) {
	_, err := calendar.Zone("Mars/Olympus_Mons")
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestZoneOrUTC_EmptyFallsBack(t *testing.T) {
	loc, err := calendar.ZoneOrUTC("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestDayBounds_KolkataOffset(t *testing.T) {
	// GIVEN: June 15 in Asia/Kolkata (UTC+5:30, no DST)
	// WHEN: Converted to UTC bounds
	// THEN: The day starts at 18:30 UTC the previous evening

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	start, end := calendar.DayBounds(calendar.MustParseDate("2024-06-15"), kolkata)

	assert.Equal(t, time.Date(2024, time.June, 14, 18, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.June, 15, 18, 29, 59, 999999999, time.UTC), end)
}

func TestDayBounds_SpringForwardDST(t *testing.T) {
	// GIVEN: The US spring-forward date (March 10 2024, 23h long day)
	// WHEN: Bounds are computed in America/New_York
	// THEN: The span is one hour shorter than a normal day

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start, end := calendar.DayBounds(calendar.MustParseDate("2024-03-10"), ny)

	span := end.Sub(start)
	assert.Equal(t, 23*time.Hour-time.Nanosecond, span)
}

// =============================================================================
// WEEKEND POLICY
// =============================================================================

func TestWeekendPolicy_Contains(t *testing.T) {
	policy := calendar.WeekendPolicy{"Saturday", "Sunday"}

	assert.True(t, policy.Contains(calendar.MustParseDate("2024-01-28")))  // Sunday
	assert.True(t, policy.Contains(calendar.MustParseDate("2024-01-27")))  // Saturday
	assert.False(t, policy.Contains(calendar.MustParseDate("2024-01-29"))) // Monday
}

func TestWeekendPolicy_EmptyIsInvalid(t *testing.T) {
	err := calendar.WeekendPolicy{}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPrecondition)

	assert.NoError(t, calendar.WeekendPolicy{"Friday"}.Validate())
}
