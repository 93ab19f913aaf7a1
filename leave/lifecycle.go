/*
lifecycle.go - The leave request state machine

PURPOSE:
  Apply, SetStatus (approve/reject/cancel) and CancelByUser. Approval
  and cancellation bulk-mutate the attendance rows for the leave's date
  range inside one store transaction, together with the request row, so
  a request is never half-applied. Each per-row write is idempotent, so
  re-running a transition after a crash converges to the same state.

DATE RANGE:
  FromDate/ToDate are the UTC bounds of the requested local days. The
  attendance rows touched are the LOCAL calendar dates of the range in
  the employee's zone, never the UTC dates of the bounds (those differ
  for zones ahead of UTC).
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/falconhr/attendance-engine/notify"
)

var notifyRoles = []string{"admin", "hr"}

// Manager owns the leave request lifecycle.
type Manager struct {
	Directory directory.Store
	Store     Store
	Notifier  notify.Sink
	Log       *logrus.Logger

	// MaxLeave overrides DefaultMaxLeave when non-zero.
	MaxLeave decimal.Decimal

	now func() time.Time
}

// NewManager builds a Manager with the default balance cap and clock.
func NewManager(dir directory.Store, store Store, sink notify.Sink, log *logrus.Logger) *Manager {
	return &Manager{
		Directory: dir,
		Store:     store,
		Notifier:  sink,
		Log:       log,
		MaxLeave:  DefaultMaxLeave,
		now:       time.Now,
	}
}

// WithClock replaces the manager clock. Tests use this to pin "today".
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) maxLeave() decimal.Decimal {
	if m.MaxLeave.IsZero() {
		return DefaultMaxLeave
	}
	return m.MaxLeave
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyInput is a new leave application. From/To are local calendar
// dates in the employee's zone.
type ApplyInput struct {
	EmployeeID string
	Type       Type
	From       calendar.Date
	To         calendar.Date
	Reason     string
}

// Apply validates and persists a pending leave request.
func (m *Manager) Apply(ctx context.Context, in ApplyInput) (*Request, error) {
	user, err := m.Directory.GetUser(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}
	if in.To.Before(in.From) {
		return nil, fault.Wrap(fault.ErrValidation, "invalid date range: to before from")
	}

	start, _ := calendar.DayBounds(in.From, loc)
	_, end := calendar.DayBounds(in.To, loc)

	days := in.From.DaysUntil(in.To) + 1
	deduction := decimal.NewFromInt(int64(days))
	if in.Type.IsHalfDay() {
		if days > 1 {
			return nil, fault.Wrap(fault.ErrValidation, "half-day leave must be a single day")
		}
		deduction = decimal.NewFromFloat(0.5)
	}

	balance, err := Balance(ctx, m.Store, in.EmployeeID, m.maxLeave())
	if err != nil {
		return nil, err
	}
	if in.Type.ConsumesBalance() && balance.LessThan(deduction) {
		return nil, fault.Wrap(fault.ErrValidation, "insufficient leave balance")
	}

	overlap, err := m.Store.ApprovedOverlapping(ctx, in.EmployeeID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap != nil {
		return nil, fault.Wrap(fault.ErrValidation, "leave already approved in the selected date range")
	}

	sickTotal, err := SickTotal(ctx, m.Store, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	unpaidTotal, err := UnpaidTotal(ctx, m.Store, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	req := Request{
		ID:           uuid.NewString(),
		EmployeeID:   in.EmployeeID,
		Type:         in.Type,
		FromDate:     start,
		ToDate:       end,
		Reason:       in.Reason,
		Status:       StatusPending,
		LeaveTaken:   deduction,
		LeaveBalance: balance,
		SickLeave:    sickTotal,
		UnpaidLeave:  unpaidTotal,
		MaximumLeave: m.maxLeave(),
		AppliedAt:    m.now().UTC(),
	}
	if err := m.Store.SaveRequest(ctx, req); err != nil {
		return nil, err
	}

	notify.Dispatch(ctx, m.Notifier, m.Log, notify.Notification{
		Roles:       notifyRoles,
		Title:       "New Leave Request",
		Message:     fmt.Sprintf("%s requested leave from %s to %s", user.Name(), in.From, in.To),
		Link:        "/leave",
		PerformedBy: user.ID,
	})
	notify.Dispatch(ctx, m.Notifier, m.Log, notify.Notification{
		UserID:  user.ID,
		Title:   "Leave Request Submitted",
		Message: fmt.Sprintf("Your leave request from %s to %s has been submitted.", in.From, in.To),
		Link:    "/leavestatus",
	})

	return &req, nil
}

// =============================================================================
// SET STATUS - Admin approve / reject / cancel
// =============================================================================

// SetStatus performs an admin transition on a leave request.
func (m *Manager) SetStatus(ctx context.Context, leaveID string, newStatus Status) (*Request, error) {
	switch newStatus {
	case StatusApproved, StatusRejected, StatusCancelled:
	default:
		return nil, fault.Wrap(fault.ErrValidation, "invalid status %q", newStatus)
	}

	req, err := m.Store.GetRequest(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	user, err := m.Directory.GetUser(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case StatusApproved:
		if req.Status != StatusPending {
			return nil, fault.Wrap(fault.ErrPrecondition, "only pending leaves can be approved, got %q", req.Status)
		}
		return m.approve(ctx, req, *user)
	case StatusRejected:
		if req.Status != StatusPending {
			return nil, fault.Wrap(fault.ErrPrecondition, "only pending leaves can be rejected, got %q", req.Status)
		}
		req.Status = StatusRejected
		req.UpdatedAt = m.now().UTC()
		if err := m.Store.SaveRequest(ctx, *req); err != nil {
			return nil, err
		}
		return req, nil
	default: // StatusCancelled
		if req.Status != StatusApproved {
			return nil, fault.Wrap(fault.ErrPrecondition, "only approved leaves can be cancelled, got %q", req.Status)
		}
		return m.cancel(ctx, req, *user, StatusCancelled)
	}
}

func (m *Manager) approve(ctx context.Context, req *Request, user directory.User) (*Request, error) {
	todayUTC := m.now().UTC().Truncate(24 * time.Hour)
	if req.ToDate.Before(todayUTC) {
		return nil, fault.Wrap(fault.ErrValidation, "cannot approve leave for past dates")
	}

	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}
	dates := calendar.Range(calendar.DateOf(req.FromDate, loc), calendar.DateOf(req.ToDate, loc))
	label := req.Type.AttendanceLabels()[0]

	balance, err := Balance(ctx, m.Store, req.EmployeeID, m.maxLeave())
	if err != nil {
		return nil, err
	}
	sickTotal, err := SickTotal(ctx, m.Store, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	unpaidTotal, err := UnpaidTotal(ctx, m.Store, req.EmployeeID)
	if err != nil {
		return nil, err
	}

	// Snapshot the post-approval totals on the request.
	switch {
	case req.Type.ConsumesBalance():
		req.LeaveBalance = balance.Sub(req.LeaveTaken)
	case req.Type == TypeSick:
		req.SickLeave = sickTotal.Add(req.LeaveTaken)
	case req.Type == TypeUnpaid:
		req.UnpaidLeave = unpaidTotal.Add(req.LeaveTaken)
	}
	req.Status = StatusApproved
	req.UpdatedAt = m.now().UTC()

	err = m.Store.WithTx(ctx, func(tx Store) error {
		for _, d := range dates {
			if err := tx.SetAttendanceStatus(ctx, req.EmployeeID, d, label); err != nil {
				return fmt.Errorf("mark %s: %w", d, err)
			}
		}
		return tx.SaveRequest(ctx, *req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (m *Manager) cancel(ctx context.Context, req *Request, user directory.User, terminal Status) (*Request, error) {
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}
	dates := calendar.Range(calendar.DateOf(req.FromDate, loc), calendar.DateOf(req.ToDate, loc))
	labels := req.Type.AttendanceLabels()

	balance, err := Balance(ctx, m.Store, req.EmployeeID, m.maxLeave())
	if err != nil {
		return nil, err
	}
	sickTotal, err := SickTotal(ctx, m.Store, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	unpaidTotal, err := UnpaidTotal(ctx, m.Store, req.EmployeeID)
	if err != nil {
		return nil, err
	}

	// Reverse the approval snapshot. The aggregates above still include
	// this request (it is approved until saved), hence the explicit
	// add-back/subtract.
	switch {
	case req.Type.ConsumesBalance():
		req.LeaveBalance = balance.Add(req.LeaveTaken)
	case req.Type == TypeSick:
		req.SickLeave = decimal.Max(decimal.Zero, sickTotal.Sub(req.LeaveTaken))
	case req.Type == TypeUnpaid:
		req.UnpaidLeave = decimal.Max(decimal.Zero, unpaidTotal.Sub(req.LeaveTaken))
	}
	req.Status = terminal
	req.UpdatedAt = m.now().UTC()

	err = m.Store.WithTx(ctx, func(tx Store) error {
		for _, d := range dates {
			// Only rows still carrying this leave's label are reset, so
			// repeating the cancellation is harmless.
			if err := tx.ClearAttendanceStatus(ctx, req.EmployeeID, d, labels...); err != nil {
				return fmt.Errorf("reset %s: %w", d, err)
			}
		}
		return tx.SaveRequest(ctx, *req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// CANCEL BY USER
// =============================================================================

// CancelByUser cancels the caller's own approved leave. Allowed only
// until the end of the day preceding the leave start, in the caller's
// own time zone.
func (m *Manager) CancelByUser(ctx context.Context, leaveID, userID string) (*Request, error) {
	req, err := m.Store.GetRequest(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != userID {
		return nil, fault.Wrap(fault.ErrForbidden, "you can cancel only your own leaves")
	}
	if req.Status != StatusApproved {
		return nil, fault.Wrap(fault.ErrPrecondition, "only approved leaves can be cancelled, got %q", req.Status)
	}

	user, err := m.Directory.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := calendar.Zone(user.TimeZone)
	if err != nil {
		return nil, err
	}

	today := calendar.DateOf(m.now(), loc)
	deadline := calendar.DateOf(req.FromDate, loc).AddDays(-1)
	if today.After(deadline) {
		return nil, fault.Wrap(fault.ErrForbidden, "leave can be cancelled only until one day before it starts")
	}

	cancelled, err := m.cancel(ctx, req, *user, StatusCancelledByUser)
	if err != nil {
		return nil, err
	}

	notify.Dispatch(ctx, m.Notifier, m.Log, notify.Notification{
		Roles:       notifyRoles,
		Title:       "Leave Cancelled",
		Message:     fmt.Sprintf("%s cancelled their leave from %s to %s", user.Name(), calendar.DateOf(req.FromDate, loc), calendar.DateOf(req.ToDate, loc)),
		Link:        "/leave",
		PerformedBy: user.ID,
	})
	return cancelled, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns leave requests matching the filter.
func (m *Manager) List(ctx context.Context, f Filter) ([]Request, error) {
	return m.Store.ListRequests(ctx, f)
}

// Mine returns the employee's own requests plus their current balance.
func (m *Manager) Mine(ctx context.Context, employeeID string) ([]Request, decimal.Decimal, error) {
	requests, err := m.Store.ListRequests(ctx, Filter{EmployeeID: employeeID})
	if err != nil {
		return nil, decimal.Zero, err
	}
	balance, err := Balance(ctx, m.Store, employeeID, m.maxLeave())
	if err != nil {
		return nil, decimal.Zero, err
	}
	return requests, balance, nil
}
