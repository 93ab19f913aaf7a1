/*
Package leave implements the leave request lifecycle: application,
approval, rejection, and the two cancellation paths, together with the
running balance computation.

STATE MACHINE:
  pending -> approved -> {cancelled, cancelled by user}
  pending -> rejected
  All other transitions are precondition failures.

BALANCES:
  The primary balance and the sick/unpaid lifetime counters are always
  recomputed as aggregates over the approved request history. Nothing
  increments a stored counter in place, so concurrent approve/cancel for
  the same employee cannot corrupt the totals. The snapshot fields on a
  Request record what the totals were when the transition happened.

SEE ALSO:
  - lifecycle.go: the transitions (they bulk-mutate attendance rows)
  - balance.go: aggregate computation
  - lookup.go: per-date leave classification for attendance resolution
*/
package leave

import (
	"context"
	"time"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type Type string

const (
	TypeCasual     Type = "casual"
	TypeVacation   Type = "vacation"
	TypeSick       Type = "sick"
	TypeUnpaid     Type = "unpaid"
	TypeFirstHalf  Type = "firstHalf"
	TypeSecondHalf Type = "secondHalf"
)

// ParseType normalizes a leave type string. "LOP" is a legacy alias for
// unpaid leave.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCasual, TypeVacation, TypeSick, TypeUnpaid, TypeFirstHalf, TypeSecondHalf:
		return Type(s), nil
	}
	if s == "LOP" {
		return TypeUnpaid, nil
	}
	return "", fault.Wrap(fault.ErrValidation, "unknown leave type %q", s)
}

// IsHalfDay reports whether the type consumes half a day.
func (t Type) IsHalfDay() bool {
	return t == TypeFirstHalf || t == TypeSecondHalf
}

// ConsumesBalance reports whether the type draws from the shared leave
// balance. Sick and unpaid leaves track lifetime counters instead.
func (t Type) ConsumesBalance() bool {
	switch t {
	case TypeCasual, TypeVacation, TypeFirstHalf, TypeSecondHalf:
		return true
	}
	return false
}

// AttendanceLabels returns the attendance statuses this leave type pins
// on its date range, first one being the label written at approval.
func (t Type) AttendanceLabels() []attendance.Status {
	switch t {
	case TypeFirstHalf:
		return []attendance.Status{attendance.StatusFirstHalfLeave, attendance.StatusSecondHalfLeave}
	case TypeSecondHalf:
		return []attendance.Status{attendance.StatusSecondHalfLeave, attendance.StatusFirstHalfLeave}
	default:
		return []attendance.Status{attendance.StatusLeave}
	}
}

// Kind maps the leave type to the resolution engine's leave kind.
func (t Type) Kind() attendance.LeaveKind {
	switch t {
	case TypeFirstHalf:
		return attendance.LeaveFirstHalf
	case TypeSecondHalf:
		return attendance.LeaveSecondHalf
	default:
		return attendance.LeaveFullDay
	}
}

// =============================================================================
// REQUEST
// =============================================================================

type Status string

const (
	StatusPending         Status = "pending"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusCancelled       Status = "cancelled"
	StatusCancelledByUser Status = "cancelled by user"
)

// Request is a leave request. FromDate/ToDate are the UTC instants
// bounding the requested local day range in the employee's zone.
// Balance fields are snapshots taken at the last transition.
type Request struct {
	ID         string
	EmployeeID string
	Type       Type
	FromDate   time.Time
	ToDate     time.Time
	Reason     string
	Status     Status

	LeaveTaken   decimal.Decimal
	LeaveBalance decimal.Decimal
	SickLeave    decimal.Decimal
	UnpaidLeave  decimal.Decimal
	MaximumLeave decimal.Decimal

	AppliedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Filter narrows request listings. Zero fields are ignored.
type Filter struct {
	EmployeeID string
	Status     Status
	// From/To select requests whose [FromDate, ToDate] intersects the
	// given UTC window.
	From *time.Time
	To   *time.Time
}

// Store persists leave requests. It also exposes the attendance status
// mutations the lifecycle performs, so a single transaction can cover
// the request row and its attendance rows together.
type Store interface {
	GetRequest(ctx context.Context, id string) (*Request, error)
	SaveRequest(ctx context.Context, r Request) error
	ListRequests(ctx context.Context, f Filter) ([]Request, error)

	// ApprovedOverlapping returns an approved request of the employee
	// whose interval intersects [start, end], or nil.
	ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) (*Request, error)

	// ApprovedRequests returns the employee's approved requests, limited
	// to the given types when types is non-empty.
	ApprovedRequests(ctx context.Context, employeeID string, types []Type) ([]Request, error)

	// Attendance row mutations used by approve/cancel.
	SetAttendanceStatus(ctx context.Context, userID string, date calendar.Date, status attendance.Status) error
	ClearAttendanceStatus(ctx context.Context, userID string, date calendar.Date, only ...attendance.Status) error

	// WithTx runs fn atomically; rolled back if fn errors.
	WithTx(ctx context.Context, fn func(Store) error) error
}
