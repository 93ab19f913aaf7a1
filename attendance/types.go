/*
Package attendance implements attendance tracking: punch capture, the
status resolution engine, and full-history reconstruction.

PURPOSE:
  An attendance Record is keyed by (user, local calendar date) and holds
  the UTC punch instants plus location metadata. The status of a day is
  never trusted from storage alone: it is derived by a single pure
  precedence function (Resolve in status.go) that reconciles punches,
  branch holidays, branch weekends, and approved leave. Every read path
  (today, today-for-all, full history) goes through that one function.

KEY INVARIANT:
  At most one Record exists per (user, date). The store enforces this
  with an atomic conditional upsert; the service layer surfaces repeat
  punches as precondition failures, never silent overwrites.

SEE ALSO:
  - status.go: the precedence engine
  - history.go: join-date-to-today reconstruction
  - service.go: punch lifecycle and report queries
  - store/sqlite: persistence
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/falconhr/attendance-engine/calendar"
)

// =============================================================================
// RECORD - One row per (user, local date)
// =============================================================================

// Client identifies the class of client a punch originated from.
type Client string

const (
	ClientMobile Client = "Mobile"
	ClientWeb    Client = "Web"
	ClientAPI    Client = "API"
)

// Location is the geo-tag captured with a punch.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Client    Client  `json:"client"`
}

// Record is the attendance row for one user on one local calendar date.
// InTime/OutTime are absolute UTC instants; Date is the local calendar
// day they belong to in the user's zone at punch time.
type Record struct {
	UserID   string
	Date     calendar.Date
	InTime   *time.Time
	OutTime  *time.Time
	Duration string // "HH:mm:ss", set once both punches exist
	Status   Status // persisted label; empty means "derive on read"
	CheckIn  *Location
	CheckOut *Location
}

// Worked returns the wall-clock time between the punches, or zero when
// either punch is missing.
func (r *Record) Worked() time.Duration {
	if r == nil || r.InTime == nil || r.OutTime == nil {
		return 0
	}
	return r.OutTime.Sub(*r.InTime)
}

// FormatDuration renders a duration as "HH:mm:ss".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists attendance records. All punch writes are conditional at
// the storage level so the one-record-per-day invariant holds even under
// concurrent requests; callers still pre-check to produce precise errors.
type Store interface {
	// Get returns the record for (userID, date), or nil when absent.
	Get(ctx context.Context, userID string, date calendar.Date) (*Record, error)

	// ForUser returns every record for a user, ordered by date ascending.
	ForUser(ctx context.Context, userID string) ([]Record, error)

	// ForDate returns every user's record for one date.
	ForDate(ctx context.Context, date calendar.Date) ([]Record, error)

	// SetPunchIn atomically upserts the row and sets the in-punch, failing
	// with a precondition error if an in-punch already exists.
	SetPunchIn(ctx context.Context, userID string, date calendar.Date, at time.Time, loc Location) error

	// SetPunchOut sets the out-punch and duration, failing with a
	// precondition error unless an in-punch exists and no out-punch does.
	SetPunchOut(ctx context.Context, userID string, date calendar.Date, at time.Time, duration string, loc Location) error

	// SetStatus upserts the row and pins its status label (leave approval).
	SetStatus(ctx context.Context, userID string, date calendar.Date, status Status) error

	// ClearStatus resets the status label to empty. When only is non-empty
	// the reset applies solely to rows currently carrying one of those
	// labels, which makes repeated cancellation idempotent.
	ClearStatus(ctx context.Context, userID string, date calendar.Date, only ...Status) error
}
