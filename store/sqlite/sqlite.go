/*
Package sqlite provides the SQLite-backed implementation of every
persistence interface in the system.

PURPOSE:
  One Store implements directory.Store, attendance.Store and leave.Store.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  users        employee directory (time zone, branch reference, join date)
  branches     weekend policy per branch (weekday names as JSON)
  holidays     per-branch holiday calendar with optional flag
  attendance   one row per (user_id, date), date being the LOCAL day key
  leaves       leave requests with balance snapshots

ATTENDANCE INVARIANT:
  PRIMARY KEY (user_id, date) plus conditional upserts make the
  one-record-per-day rule hold at the storage level: a punch-in lands
  only where in_time IS NULL, a punch-out only where in_time IS NOT NULL
  AND out_time IS NULL. Zero rows affected means the precondition did
  not hold, which callers surface as a precondition failure.

INSTANT ENCODING:
  Absolute instants are stored as UTC "YYYY-MM-DD HH:MM:SS" text. The
  fixed width keeps lexicographic order equal to chronological order,
  which the leave overlap query relies on. Decimal amounts are stored as
  text and re-parsed, never as floats.

WAL MODE:
  Opened with WAL plus a busy timeout; concurrent request handlers
  coordinate through the database, not in-process locks.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/falconhr/attendance-engine/attendance"
	"github.com/falconhr/attendance-engine/calendar"
	"github.com/falconhr/attendance-engine/directory"
	"github.com/falconhr/attendance-engine/fault"
	"github.com/falconhr/attendance-engine/leave"
)

const instantLayout = "2006-01-02 15:04:05"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements every storage interface. A Store bound to a
// transaction (via WithTx) shares the schema but routes all statements
// through the transaction.
type Store struct {
	db *sql.DB
	q  querier
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		time_zone TEXT NOT NULL DEFAULT '',
		branch_id TEXT NOT NULL DEFAULT '',
		branch_name TEXT NOT NULL DEFAULT '',
		join_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weekends_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_name
		ON branches(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		is_optional INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(branch_id, date, name);
	CREATE INDEX IF NOT EXISTS idx_holidays_branch_date
		ON holidays(branch_id, date);

	-- CRITICAL: one attendance row per (user, local date)
	CREATE TABLE IF NOT EXISTS attendance (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		in_time TEXT,
		out_time TEXT,
		duration TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		checkin_json TEXT,
		checkout_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		leave_taken TEXT NOT NULL DEFAULT '0',
		leave_balance TEXT NOT NULL DEFAULT '0',
		sick_leave TEXT NOT NULL DEFAULT '0',
		unpaid_leave TEXT NOT NULL DEFAULT '0',
		maximum_leave TEXT NOT NULL DEFAULT '14',
		applied_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_leaves_employee
		ON leaves(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leaves_employee_status
		ON leaves(employee_id, status);
	-- hot path: approved-leave overlap checks
	CREATE INDEX IF NOT EXISTS idx_leaves_status_range
		ON leaves(status, from_date, to_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx runs fn inside a database transaction. The Store passed to fn
// routes every statement through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func encodeInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func decodeInstant(s string) (time.Time, error) {
	return time.ParseInLocation(instantLayout, s, time.UTC)
}

func decodeInstantPtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := decodeInstant(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func encodeLocation(loc *attendance.Location) (sql.NullString, error) {
	if loc == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeLocation(ns sql.NullString) (*attendance.Location, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var loc attendance.Location
	if err := json.Unmarshal([]byte(ns.String), &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// =============================================================================
// DIRECTORY STORE - users
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id string) (*directory.User, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, time_zone, branch_id, branch_name, join_date
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fault.Wrap(fault.ErrNotFound, "user %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]directory.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, time_zone, branch_id, branch_name, join_date
		FROM users ORDER BY first_name, last_name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, u directory.User) error {
	joinDate := ""
	if !u.JoinDate.IsZero() {
		joinDate = u.JoinDate.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, time_zone, branch_id, branch_name, join_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			time_zone = excluded.time_zone,
			branch_id = excluded.branch_id,
			branch_name = excluded.branch_name,
			join_date = excluded.join_date`,
		u.ID, u.FirstName, u.LastName, u.Email, u.TimeZone, u.BranchID, u.Branch, joinDate,
		encodeInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*directory.User, error) {
	var u directory.User
	var joinDate string
	if err := r.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.TimeZone, &u.BranchID, &u.Branch, &joinDate); err != nil {
		return nil, err
	}
	if joinDate != "" {
		d, err := calendar.ParseDate(joinDate)
		if err != nil {
			return nil, err
		}
		u.JoinDate = d
	}
	return &u, nil
}

// =============================================================================
// DIRECTORY STORE - branches
// =============================================================================

func (s *Store) GetBranch(ctx context.Context, id string) (*directory.Branch, error) {
	return s.branchBy(ctx, "id = ?", id)
}

func (s *Store) GetBranchByName(ctx context.Context, name string) (*directory.Branch, error) {
	return s.branchBy(ctx, "name = ? COLLATE NOCASE", strings.TrimSpace(name))
}

func (s *Store) branchBy(ctx context.Context, where string, arg any) (*directory.Branch, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, weekends_json FROM branches WHERE `+where, arg)
	b, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, fault.Wrap(fault.ErrNotFound, "branch %v", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]directory.Branch, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, weekends_json FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var branches []directory.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

func (s *Store) SaveBranch(ctx context.Context, b directory.Branch) error {
	weekends, err := json.Marshal(b.Weekends)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO branches (id, name, weekends_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			weekends_json = excluded.weekends_json`,
		b.ID, b.Name, string(weekends), encodeInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("save branch: %w", err)
	}
	return nil
}

func scanBranch(r rowScanner) (*directory.Branch, error) {
	var b directory.Branch
	var weekends string
	if err := r.Scan(&b.ID, &b.Name, &weekends); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(weekends), &b.Weekends); err != nil {
		return nil, err
	}
	return &b, nil
}

// =============================================================================
// DIRECTORY STORE - holidays
// =============================================================================

func (s *Store) HolidaysForBranch(ctx context.Context, branchID string, nonOptionalOnly bool) ([]directory.Holiday, error) {
	query := `SELECT id, branch_id, date, name, is_optional FROM holidays WHERE branch_id = ?`
	if nonOptionalOnly {
		query += ` AND is_optional = 0`
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY date`, branchID)
	if err != nil {
		return nil, fmt.Errorf("holidays for branch: %w", err)
	}
	defer rows.Close()
	return collectHolidays(rows)
}

func (s *Store) ListHolidays(ctx context.Context) ([]directory.Holiday, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, branch_id, date, name, is_optional FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()
	return collectHolidays(rows)
}

func (s *Store) SaveHoliday(ctx context.Context, h directory.Holiday) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO holidays (id, branch_id, date, name, is_optional, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			branch_id = excluded.branch_id,
			date = excluded.date,
			name = excluded.name,
			is_optional = excluded.is_optional`,
		h.ID, h.BranchID, h.Date.String(), h.Name, h.Optional, encodeInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}

func collectHolidays(rows *sql.Rows) ([]directory.Holiday, error) {
	var holidays []directory.Holiday
	for rows.Next() {
		var h directory.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.BranchID, &date, &h.Name, &h.Optional); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		d, err := calendar.ParseDate(date)
		if err != nil {
			return nil, err
		}
		h.Date = d
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

const attendanceColumns = `user_id, date, in_time, out_time, duration, status, checkin_json, checkout_json`

func (s *Store) Get(ctx context.Context, userID string, date calendar.Date) (*attendance.Record, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? AND date = ?`,
		userID, date.String())
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return rec, nil
}

func (s *Store) ForUser(ctx context.Context, userID string) ([]attendance.Record, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? ORDER BY date`, userID)
	if err != nil {
		return nil, fmt.Errorf("attendance for user: %w", err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

func (s *Store) ForDate(ctx context.Context, date calendar.Date) ([]attendance.Record, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE date = ? ORDER BY user_id`, date.String())
	if err != nil {
		return nil, fmt.Errorf("attendance for date: %w", err)
	}
	defer rows.Close()
	return collectAttendance(rows)
}

// SetPunchIn is the atomic first-punch upsert. The DO UPDATE clause only
// fires where in_time IS NULL; zero affected rows means the user already
// punched in on this date.
func (s *Store) SetPunchIn(ctx context.Context, userID string, date calendar.Date, at time.Time, loc attendance.Location) error {
	checkin, err := encodeLocation(&loc)
	if err != nil {
		return err
	}
	now := encodeInstant(time.Now())
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO attendance (user_id, date, in_time, checkin_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			in_time = excluded.in_time,
			checkin_json = excluded.checkin_json,
			updated_at = excluded.updated_at
		WHERE attendance.in_time IS NULL`,
		userID, date.String(), encodeInstant(at), checkin, now, now)
	if err != nil {
		return fmt.Errorf("punch in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fault.Wrap(fault.ErrPrecondition, "already punched in today")
	}
	return nil
}

// SetPunchOut only lands where a punch-in exists and no punch-out does.
func (s *Store) SetPunchOut(ctx context.Context, userID string, date calendar.Date, at time.Time, duration string, loc attendance.Location) error {
	checkout, err := encodeLocation(&loc)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE attendance
		SET out_time = ?, duration = ?, checkout_json = ?, updated_at = ?
		WHERE user_id = ? AND date = ? AND in_time IS NOT NULL AND out_time IS NULL`,
		encodeInstant(at), duration, checkout, encodeInstant(time.Now()), userID, date.String())
	if err != nil {
		return fmt.Errorf("punch out: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fault.Wrap(fault.ErrPrecondition, "punch out requires an open punch in")
	}
	return nil
}

func (s *Store) SetAttendanceStatus(ctx context.Context, userID string, date calendar.Date, status attendance.Status) error {
	return s.SetStatus(ctx, userID, date, status)
}

// SetStatus upserts the row and pins its status label. Used by leave
// approval; idempotent per (user, date).
func (s *Store) SetStatus(ctx context.Context, userID string, date calendar.Date, status attendance.Status) error {
	now := encodeInstant(time.Now())
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO attendance (user_id, date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		userID, date.String(), string(status), now, now)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (s *Store) ClearAttendanceStatus(ctx context.Context, userID string, date calendar.Date, only ...attendance.Status) error {
	return s.ClearStatus(ctx, userID, date, only...)
}

// ClearStatus resets the status label. With a non-empty only list, rows
// carrying other labels are left untouched, which makes repeated
// cancellation idempotent.
func (s *Store) ClearStatus(ctx context.Context, userID string, date calendar.Date, only ...attendance.Status) error {
	query := `UPDATE attendance SET status = '', updated_at = ? WHERE user_id = ? AND date = ?`
	args := []any{encodeInstant(time.Now()), userID, date.String()}
	if len(only) > 0 {
		query += ` AND status IN (` + placeholders(len(only)) + `)`
		for _, st := range only {
			args = append(args, string(st))
		}
	}
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear status: %w", err)
	}
	return nil
}

func scanAttendance(r rowScanner) (*attendance.Record, error) {
	var rec attendance.Record
	var date string
	var inTime, outTime, checkin, checkout sql.NullString
	var status string
	if err := r.Scan(&rec.UserID, &date, &inTime, &outTime, &rec.Duration, &status, &checkin, &checkout); err != nil {
		return nil, err
	}

	d, err := calendar.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rec.Date = d
	rec.Status = attendance.Status(status)

	if rec.InTime, err = decodeInstantPtr(inTime); err != nil {
		return nil, err
	}
	if rec.OutTime, err = decodeInstantPtr(outTime); err != nil {
		return nil, err
	}
	if rec.CheckIn, err = decodeLocation(checkin); err != nil {
		return nil, err
	}
	if rec.CheckOut, err = decodeLocation(checkout); err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectAttendance(rows *sql.Rows) ([]attendance.Record, error) {
	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const leaveColumns = `id, employee_id, leave_type, from_date, to_date, reason, status,
	leave_taken, leave_balance, sick_leave, unpaid_leave, maximum_leave, applied_at`

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+leaveColumns+` FROM leaves WHERE id = ?`, id)
	req, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, fault.Wrap(fault.ErrNotFound, "leave %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get leave: %w", err)
	}
	return req, nil
}

func (s *Store) SaveRequest(ctx context.Context, r leave.Request) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leaves (id, employee_id, leave_type, from_date, to_date, reason, status,
			leave_taken, leave_balance, sick_leave, unpaid_leave, maximum_leave, applied_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type = excluded.leave_type,
			from_date = excluded.from_date,
			to_date = excluded.to_date,
			reason = excluded.reason,
			status = excluded.status,
			leave_taken = excluded.leave_taken,
			leave_balance = excluded.leave_balance,
			sick_leave = excluded.sick_leave,
			unpaid_leave = excluded.unpaid_leave,
			maximum_leave = excluded.maximum_leave,
			updated_at = excluded.updated_at`,
		r.ID, r.EmployeeID, string(r.Type),
		encodeInstant(r.FromDate), encodeInstant(r.ToDate),
		r.Reason, string(r.Status),
		r.LeaveTaken.String(), r.LeaveBalance.String(),
		r.SickLeave.String(), r.UnpaidLeave.String(), r.MaximumLeave.String(),
		encodeInstant(r.AppliedAt), encodeInstant(time.Now()))
	if err != nil {
		return fmt.Errorf("save leave: %w", err)
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, f leave.Filter) ([]leave.Request, error) {
	query := `SELECT ` + leaveColumns + ` FROM leaves WHERE 1=1`
	var args []any
	if f.EmployeeID != "" {
		query += ` AND employee_id = ?`
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.From != nil && f.To != nil {
		query += ` AND from_date <= ? AND to_date >= ?`
		args = append(args, encodeInstant(*f.To), encodeInstant(*f.From))
	}
	query += ` ORDER BY applied_at DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	defer rows.Close()
	return collectLeaves(rows)
}

func (s *Store) ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) (*leave.Request, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+leaveColumns+` FROM leaves
		WHERE employee_id = ? AND status = ? AND from_date <= ? AND to_date >= ?
		LIMIT 1`,
		employeeID, string(leave.StatusApproved), encodeInstant(end), encodeInstant(start))
	req, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	return req, nil
}

func (s *Store) ApprovedRequests(ctx context.Context, employeeID string, types []leave.Type) ([]leave.Request, error) {
	query := `SELECT ` + leaveColumns + ` FROM leaves WHERE employee_id = ? AND status = ?`
	args := []any{employeeID, string(leave.StatusApproved)}
	if len(types) > 0 {
		query += ` AND leave_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY from_date`, args...)
	if err != nil {
		return nil, fmt.Errorf("approved leaves: %w", err)
	}
	defer rows.Close()
	return collectLeaves(rows)
}

func scanLeave(r rowScanner) (*leave.Request, error) {
	var req leave.Request
	var leaveType, status, fromDate, toDate, appliedAt string
	var taken, balance, sick, unpaid, max string
	if err := r.Scan(&req.ID, &req.EmployeeID, &leaveType, &fromDate, &toDate, &req.Reason, &status,
		&taken, &balance, &sick, &unpaid, &max, &appliedAt); err != nil {
		return nil, err
	}

	req.Type = leave.Type(leaveType)
	req.Status = leave.Status(status)

	var err error
	if req.FromDate, err = decodeInstant(fromDate); err != nil {
		return nil, err
	}
	if req.ToDate, err = decodeInstant(toDate); err != nil {
		return nil, err
	}
	if req.AppliedAt, err = decodeInstant(appliedAt); err != nil {
		return nil, err
	}
	if req.LeaveTaken, err = decodeDecimal(taken); err != nil {
		return nil, err
	}
	if req.LeaveBalance, err = decodeDecimal(balance); err != nil {
		return nil, err
	}
	if req.SickLeave, err = decodeDecimal(sick); err != nil {
		return nil, err
	}
	if req.UnpaidLeave, err = decodeDecimal(unpaid); err != nil {
		return nil, err
	}
	if req.MaximumLeave, err = decodeDecimal(max); err != nil {
		return nil, err
	}
	return &req, nil
}

func collectLeaves(rows *sql.Rows) ([]leave.Request, error) {
	var requests []leave.Request
	for rows.Next() {
		req, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}
