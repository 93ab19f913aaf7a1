/*
handlers.go - HTTP handlers for the attendance and leave API

PURPOSE:
  Exposes the attendance engine and leave lifecycle via REST. Handles
  HTTP request/response and JSON shapes, delegates all decisions to the
  domain services.

IDENTITY:
  There is no authentication middleware; the acting user arrives as an
  explicit user_id in the body or query string. An auth layer in front
  of this API would populate the same field from the session instead.

ERROR HANDLING:
  Handlers never inspect error strings. Domain errors carry a fault
  category and writeDomainError maps the category to the HTTP status.

SEE ALSO:
  - dto.go: request/response shapes and validation
  - errors.go: fault category to status mapping
  - server.go: router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/geo"
	"github.com/falconhr/attendance-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the services the HTTP layer delegates to.
type Handler struct {
	Attendance *attendance.Service
	Leaves     *leave.Manager
	Directory  directory.Store
	Log        *logrus.Logger
}

// NewHandler creates a handler over the given services.
func NewHandler(att *attendance.Service, leaves *leave.Manager, dir directory.Store, log *logrus.Logger) *Handler {
	return &Handler{
		Attendance: att,
		Leaves:     leaves,
		Directory:  dir,
		Log:        log,
	}
}

// decodeValid decodes the JSON body into dst and runs struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

// userZone resolves the user's display zone, falling back to UTC so a
// read endpoint can still render rows for a misconfigured profile.
func (h *Handler) userZone(r *http.Request, userID string) *time.Location {
	user, err := h.Directory.GetUser(r.Context(), userID)
	if err != nil {
		return time.UTC
	}
	loc, err := calendar.ZoneOrUTC(user.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// ATTENDANCE - punches
// =============================================================================

// CheckIn records a punch-in for the current local day.
// POST /api/attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, h.Attendance.PunchIn)
}

// CheckOut records a punch-out and computes the worked duration.
// POST /api/attendance/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, h.Attendance.PunchOut)
}

func (h *Handler) punch(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID string, coords geo.Coordinates, client attendance.Client) (*attendance.Record, error)) {

	var req PunchRequest
	if !decodeValid(w, r, &req) {
		return
	}

	client := attendance.Client(req.Client)
	if client == "" {
		client = attendance.ClientAPI
	}

	rec, err := op(r.Context(), req.UserID, geo.Coordinates{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}, client)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceDTO(rec, h.userZone(r, req.UserID)))
}

// =============================================================================
// ATTENDANCE - today and history
// =============================================================================

// Today returns the resolved status of one user's current day.
// GET /api/attendance/today?user_id=...
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	st, err := h.Attendance.Today(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toTodayDTO(r, *st))
}

// TodayAll returns every user's resolved current day.
// GET /api/attendance/today/all
func (h *Handler) TodayAll(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Attendance.TodayAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]TodayDTO, len(statuses))
	for i, st := range statuses {
		dtos[i] = h.toTodayDTO(r, st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) toTodayDTO(r *http.Request, st attendance.TodayStatus) TodayDTO {
	loc := h.userZone(r, st.User.ID)
	dto := TodayDTO{
		UserID: st.User.ID,
		Name:   st.User.Name(),
		Date:   st.Date.String(),
		Status: string(st.Status),
		Record: toAttendanceDTO(st.Record, loc),
	}
	if st.Worked > 0 {
		dto.Worked = attendance.FormatDuration(st.Worked)
	}
	return dto
}

// History returns one user's gap-free history, join date through today.
// GET /api/attendance/history?user_id=...
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	hist, err := h.Attendance.History(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toHistoryDTO(r, *hist))
}

// HistoryAll returns every user's history.
// GET /api/attendance/history/all
func (h *Handler) HistoryAll(w http.ResponseWriter, r *http.Request) {
	histories, err := h.Attendance.HistoryAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]HistoryDTO, len(histories))
	for i, hist := range histories {
		dtos[i] = h.toHistoryDTO(r, hist)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) toHistoryDTO(r *http.Request, hist attendance.UserHistory) HistoryDTO {
	loc := h.userZone(r, hist.User.ID)
	return HistoryDTO{
		UserID: hist.User.ID,
		Name:   hist.User.Name(),
		Days:   toDayDTOs(hist.Days, loc),
	}
}

// =============================================================================
// LEAVE
// =============================================================================

// ApplyLeave submits a new leave request.
// POST /api/leaves
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if !decodeValid(w, r, &req) {
		return
	}

	leaveType, err := leave.ParseType(req.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	from, err := calendar.ParseDate(req.FromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from_date format (use YYYY-MM-DD)", err)
		return
	}
	to, err := calendar.ParseDate(req.ToDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to_date format (use YYYY-MM-DD)", err)
		return
	}

	created, err := h.Leaves.Apply(r.Context(), leave.ApplyInput{
		EmployeeID: req.EmployeeID,
		Type:       leaveType,
		From:       from,
		To:         to,
		Reason:     req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(*created, h.userZone(r, created.EmployeeID)))
}

// ListLeaves returns leave requests, optionally narrowed by status and a
// UTC date window.
// GET /api/leaves?status=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	filter := leave.Filter{Status: leave.Status(r.URL.Query().Get("status"))}

	fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromStr != "" && toStr != "" {
		fromDate, err := calendar.ParseDate(fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format (use YYYY-MM-DD)", err)
			return
		}
		toDate, err := calendar.ParseDate(toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format (use YYYY-MM-DD)", err)
			return
		}
		start, _ := calendar.DayBounds(fromDate, time.UTC)
		_, end := calendar.DayBounds(toDate, time.UTC)
		filter.From, filter.To = &start, &end
	}

	requests, err := h.Leaves.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toLeaveDTOs(r, requests))
}

// MyLeaves returns the caller's own requests plus their live balance.
// GET /api/leaves/mine?user_id=...
func (h *Handler) MyLeaves(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	requests, balance, err := h.Leaves.Mine(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MyLeavesDTO{
		Balance: balance.String(),
		Leaves:  h.toLeaveDTOs(r, requests),
	})
}

// LeavesByEmployee returns one employee's leave requests.
// GET /api/leaves/employee/{id}
func (h *Handler) LeavesByEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	requests, err := h.Leaves.List(r.Context(), leave.Filter{EmployeeID: employeeID})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toLeaveDTOs(r, requests))
}

// SetLeaveStatus performs an admin transition (approve/reject/cancel).
// PUT /api/leaves/{id}/status
func (h *Handler) SetLeaveStatus(w http.ResponseWriter, r *http.Request) {
	leaveID := chi.URLParam(r, "id")

	var req SetLeaveStatusRequest
	if !decodeValid(w, r, &req) {
		return
	}

	updated, err := h.Leaves.SetStatus(r.Context(), leaveID, leave.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*updated, h.userZone(r, updated.EmployeeID)))
}

// CancelLeave cancels the caller's own approved leave.
// POST /api/leaves/{id}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	leaveID := chi.URLParam(r, "id")

	var req CancelLeaveRequest
	if !decodeValid(w, r, &req) {
		return
	}

	cancelled, err := h.Leaves.CancelByUser(r.Context(), leaveID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*cancelled, h.userZone(r, cancelled.EmployeeID)))
}

func (h *Handler) toLeaveDTOs(r *http.Request, requests []leave.Request) []LeaveDTO {
	dtos := make([]LeaveDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toLeaveDTO(req, h.userZone(r, req.EmployeeID))
	}
	return dtos
}

// =============================================================================
// DIRECTORY - employees, branches, holidays
// =============================================================================

// SaveEmployee creates or updates an employee record.
// POST /api/employees
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req SaveEmployeeRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if _, err := calendar.Zone(req.TimeZone); err != nil {
		writeDomainError(w, err)
		return
	}
	joinDate, err := calendar.ParseDate(req.JoinDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid join_date format (use YYYY-MM-DD)", err)
		return
	}

	user := directory.User{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		TimeZone:  req.TimeZone,
		BranchID:  req.BranchID,
		Branch:    req.Branch,
		JoinDate:  joinDate,
	}
	if err := h.Directory.SaveUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(user))
}

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	users, err := h.Directory.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]EmployeeDTO, len(users))
	for i, u := range users {
		dtos[i] = toEmployeeDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	user, err := h.Directory.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*user))
}

func toEmployeeDTO(u directory.User) EmployeeDTO {
	joinDate := ""
	if !u.JoinDate.IsZero() {
		joinDate = u.JoinDate.String()
	}
	return EmployeeDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		TimeZone:  u.TimeZone,
		BranchID:  u.BranchID,
		Branch:    u.Branch,
		JoinDate:  joinDate,
	}
}

// SaveBranch creates or updates a branch and its weekend policy.
// POST /api/branches
func (h *Handler) SaveBranch(w http.ResponseWriter, r *http.Request) {
	var req SaveBranchRequest
	if !decodeValid(w, r, &req) {
		return
	}

	branch := directory.Branch{
		ID:       req.ID,
		Name:     req.Name,
		Weekends: calendar.WeekendPolicy(req.Weekends),
	}
	if err := branch.Weekends.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Directory.SaveBranch(r.Context(), branch); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BranchDTO{ID: branch.ID, Name: branch.Name, Weekends: req.Weekends})
}

// ListBranches returns all branches.
// GET /api/branches
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Directory.ListBranches(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]BranchDTO, len(branches))
	for i, b := range branches {
		dtos[i] = BranchDTO{ID: b.ID, Name: b.Name, Weekends: []string(b.Weekends)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveHoliday creates or updates a holiday calendar entry.
// POST /api/holidays
func (h *Handler) SaveHoliday(w http.ResponseWriter, r *http.Request) {
	var req SaveHolidayRequest
	if !decodeValid(w, r, &req) {
		return
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if _, err := h.Directory.GetBranch(r.Context(), req.BranchID); err != nil {
		writeDomainError(w, err)
		return
	}

	holiday := directory.Holiday{
		ID:       req.ID,
		BranchID: req.BranchID,
		Date:     date,
		Name:     req.Name,
		Optional: req.Optional,
	}
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if err := h.Directory.SaveHoliday(r.Context(), holiday); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// ListHolidays returns all holiday calendar entries.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Directory.ListHolidays(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toHolidayDTO(h directory.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:       h.ID,
		BranchID: h.BranchID,
		Date:     h.Date.String(),
		Name:     h.Name,
		Optional: h.Optional,
	}
}
