/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes of the HTTP API, separated from domain types so the wire
  format can evolve without touching domain logic.

CONVENTIONS:
  - Calendar dates travel as "YYYY-MM-DD".
  - Punch instants travel as "YYYY-MM-DD HH:mm" rendered in the user's
    own time zone; raw UTC instants never reach clients.
  - Leave amounts are decimal strings, never floats.

VALIDATION:
  Request bodies carry validator tags and are checked with a shared
  validator instance before any domain call.
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/leave"
)

// validate is shared by all handlers; validator.Validate is safe for
// concurrent use.
var validate = validator.New()

const instantFormat = "2006-01-02 15:04"

// formatInstant renders a UTC instant in the user's zone, or "" for nil.
func formatInstant(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(instantFormat)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// PunchRequest is the body of punch-in and punch-out.
type PunchRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Client    string  `json:"client" validate:"omitempty,oneof=Mobile Web API"`
}

// LocationDTO is a punch geo-tag.
type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Client    string  `json:"client"`
}

// AttendanceDTO is one attendance record with instants rendered in the
// user's zone.
type AttendanceDTO struct {
	UserID   string       `json:"user_id"`
	Date     string       `json:"date"`
	InTime   string       `json:"in_time,omitempty"`
	OutTime  string       `json:"out_time,omitempty"`
	Duration string       `json:"duration,omitempty"`
	Status   string       `json:"status,omitempty"`
	CheckIn  *LocationDTO `json:"check_in,omitempty"`
	CheckOut *LocationDTO `json:"check_out,omitempty"`
}

// TodayDTO is the resolved classification of a user's current day.
type TodayDTO struct {
	UserID string         `json:"user_id"`
	Name   string         `json:"name"`
	Date   string         `json:"date"`
	Status string         `json:"status"`
	Worked string         `json:"worked,omitempty"`
	Record *AttendanceDTO `json:"record,omitempty"`
}

// DayDTO is one resolved day in a user's history.
type DayDTO struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	InTime   string `json:"in_time,omitempty"`
	OutTime  string `json:"out_time,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// HistoryDTO is a user's gap-free history, join date through today.
type HistoryDTO struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Days   []DayDTO `json:"days"`
}

func toLocationDTO(l *attendance.Location) *LocationDTO {
	if l == nil {
		return nil
	}
	return &LocationDTO{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Address:   l.Address,
		Client:    string(l.Client),
	}
}

func toAttendanceDTO(rec *attendance.Record, loc *time.Location) *AttendanceDTO {
	if rec == nil {
		return nil
	}
	return &AttendanceDTO{
		UserID:   rec.UserID,
		Date:     rec.Date.String(),
		InTime:   formatInstant(rec.InTime, loc),
		OutTime:  formatInstant(rec.OutTime, loc),
		Duration: rec.Duration,
		Status:   string(rec.Status),
		CheckIn:  toLocationDTO(rec.CheckIn),
		CheckOut: toLocationDTO(rec.CheckOut),
	}
}

func toDayDTOs(days []attendance.DayRecord, loc *time.Location) []DayDTO {
	dtos := make([]DayDTO, len(days))
	for i, d := range days {
		dtos[i] = DayDTO{
			Date:     d.Date.String(),
			Status:   string(d.Status),
			InTime:   formatInstant(d.InTime, loc),
			OutTime:  formatInstant(d.OutTime, loc),
			Duration: d.Duration,
		}
	}
	return dtos
}

// =============================================================================
// LEAVE
// =============================================================================

// ApplyLeaveRequest is the body of a new leave application. Dates are
// local calendar dates in the employee's zone.
type ApplyLeaveRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Type       string `json:"type" validate:"required"`
	FromDate   string `json:"from_date" validate:"required"`
	ToDate     string `json:"to_date" validate:"required"`
	Reason     string `json:"reason" validate:"max=500"`
}

// SetLeaveStatusRequest is the body of an admin status transition.
type SetLeaveStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected cancelled"`
}

// CancelLeaveRequest identifies the caller cancelling their own leave.
type CancelLeaveRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// LeaveDTO is one leave request with its balance snapshots.
type LeaveDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	Type         string `json:"type"`
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
	Reason       string `json:"reason,omitempty"`
	Status       string `json:"status"`
	LeaveTaken   string `json:"leave_taken"`
	LeaveBalance string `json:"leave_balance"`
	SickLeave    string `json:"sick_leave"`
	UnpaidLeave  string `json:"unpaid_leave"`
	MaximumLeave string `json:"maximum_leave"`
	AppliedAt    string `json:"applied_at"`
}

// MyLeavesDTO is an employee's own requests plus their live balance.
type MyLeavesDTO struct {
	Balance string     `json:"balance"`
	Leaves  []LeaveDTO `json:"leaves"`
}

func toLeaveDTO(r leave.Request, loc *time.Location) LeaveDTO {
	return LeaveDTO{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		Type:         string(r.Type),
		FromDate:     r.FromDate.In(loc).Format("2006-01-02"),
		ToDate:       r.ToDate.In(loc).Format("2006-01-02"),
		Reason:       r.Reason,
		Status:       string(r.Status),
		LeaveTaken:   r.LeaveTaken.String(),
		LeaveBalance: r.LeaveBalance.String(),
		SickLeave:    r.SickLeave.String(),
		UnpaidLeave:  r.UnpaidLeave.String(),
		MaximumLeave: r.MaximumLeave.String(),
		AppliedAt:    formatInstant(&r.AppliedAt, loc),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// SaveEmployeeRequest creates or updates an employee.
type SaveEmployeeRequest struct {
	ID        string `json:"id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	TimeZone  string `json:"time_zone" validate:"required"`
	BranchID  string `json:"branch_id"`
	Branch    string `json:"branch"`
	JoinDate  string `json:"join_date" validate:"required"`
}

// EmployeeDTO is one employee record.
type EmployeeDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	TimeZone  string `json:"time_zone"`
	BranchID  string `json:"branch_id,omitempty"`
	Branch    string `json:"branch,omitempty"`
	JoinDate  string `json:"join_date,omitempty"`
}

// SaveBranchRequest creates or updates a branch.
type SaveBranchRequest struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Weekends []string `json:"weekends" validate:"required,min=1,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
}

// BranchDTO is one branch with its weekend policy.
type BranchDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Weekends []string `json:"weekends"`
}

// SaveHolidayRequest creates or updates a holiday calendar entry.
type SaveHolidayRequest struct {
	ID       string `json:"id"`
	BranchID string `json:"branch_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Optional bool   `json:"optional"`
}

// HolidayDTO is one holiday calendar entry.
type HolidayDTO struct {
	ID       string `json:"id"`
	BranchID string `json:"branch_id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
}
