/*
Package directory is the read-side identity directory the attendance and
leave engines consume: users, their branches, and branch holiday
calendars.

PURPOSE:
  Attendance resolution needs three facts about a user that live outside
  the attendance store: their time zone, their branch's weekend policy,
  and their branch's non-optional holidays. This package defines those
  types, the persistence interface, and the branch-resolution rules.

BRANCH RESOLUTION:
  A user references a branch either by ID or by name (legacy records
  carry free-text names). Name lookup is case-insensitive. Neither
  resolving is a NotFound error, never a silent default.

SEE ALSO:
  - store/sqlite: persistence implementation
  - attendance: consumes HolidaysForUser / WeekendPolicyForUser
*/
package directory

import (
	"context"
	"strings"

	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/fault"
)

// =============================================================================
// TYPES
// =============================================================================

// User is an employee record. TimeZone is an IANA name; JoinDate marks
// the start of the user's attendance history.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	TimeZone  string
	BranchID  string // preferred reference
	Branch    string // legacy free-text branch name, used when BranchID is empty
	JoinDate  calendar.Date
}

// Name returns the user's display name.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Branch is an organizational unit owning a weekend policy and a holiday
// calendar for its users.
type Branch struct {
	ID       string
	Name     string
	Weekends calendar.WeekendPolicy
}

// Holiday is a branch calendar entry. Optional holidays never force a
// non-working day and are excluded from automatic status derivation.
type Holiday struct {
	ID       string
	BranchID string
	Date     calendar.Date
	Name     string
	Optional bool
}

// HolidaySet is a date-keyed lookup of non-optional holidays.
type HolidaySet map[calendar.Date]Holiday

// Contains reports whether the date is a holiday in the set.
func (s HolidaySet) Contains(d calendar.Date) bool {
	_, ok := s[d]
	return ok
}

// =============================================================================
// STORE
// =============================================================================

// Store is the persistence interface for the directory.
type Store interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveUser(ctx context.Context, u User) error

	GetBranch(ctx context.Context, id string) (*Branch, error)
	// GetBranchByName resolves a branch by case-insensitive name.
	GetBranchByName(ctx context.Context, name string) (*Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	SaveBranch(ctx context.Context, b Branch) error

	// HolidaysForBranch returns the branch's holidays. When nonOptionalOnly
	// is set, optional holidays are excluded.
	HolidaysForBranch(ctx context.Context, branchID string, nonOptionalOnly bool) ([]Holiday, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	SaveHoliday(ctx context.Context, h Holiday) error
}

// =============================================================================
// RESOLUTION HELPERS
// =============================================================================

// BranchForUser resolves the user's branch from the populated reference
// or by case-insensitive name lookup.
func BranchForUser(ctx context.Context, store Store, u User) (*Branch, error) {
	if u.BranchID != "" {
		return store.GetBranch(ctx, u.BranchID)
	}
	if name := strings.TrimSpace(u.Branch); name != "" {
		return store.GetBranchByName(ctx, name)
	}
	return nil, fault.Wrap(fault.ErrNotFound, "user %s has no branch assigned", u.ID)
}

// HolidaysForUser returns the non-optional holidays of the user's branch,
// keyed by local date.
func HolidaysForUser(ctx context.Context, store Store, u User) (HolidaySet, error) {
	branch, err := BranchForUser(ctx, store, u)
	if err != nil {
		return nil, err
	}
	holidays, err := store.HolidaysForBranch(ctx, branch.ID, true)
	if err != nil {
		return nil, err
	}
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[h.Date] = h
	}
	return set, nil
}

// WeekendPolicyForUser returns the user's branch weekend policy,
// rejecting unconfigured branches.
func WeekendPolicyForUser(ctx context.Context, store Store, u User) (calendar.WeekendPolicy, error) {
	branch, err := BranchForUser(ctx, store, u)
	if err != nil {
		return nil, err
	}
	if err := branch.Weekends.Validate(); err != nil {
		return nil, err
	}
	return branch.Weekends, nil
}
