// Package notify defines the fire-and-forget notification sink consumed
// by the attendance and leave services. Delivery transport (email, push)
// lives behind the Sink interface; failures are logged and never abort
// the operation that triggered them.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notification is addressed either to a role set or to a single user.
type Notification struct {
	ID          string
	Roles       []string // e.g. {"admin", "hr"}; empty when UserID is set
	UserID      string
	Title       string
	Message     string
	Link        string
	PerformedBy string
}

// Sink delivers notifications. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// =============================================================================
// LOG SINK - Records notifications in the structured log
// =============================================================================

// LogSink writes every notification to the structured log. Used as the
// default sink and in tests.
type LogSink struct {
	Log *logrus.Logger
}

func (s *LogSink) Send(_ context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	s.Log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"roles":           n.Roles,
		"user_id":         n.UserID,
		"title":           n.Title,
		"link":            n.Link,
		"performed_by":    n.PerformedBy,
	}).Info(n.Message)
	return nil
}

// Dispatch sends best-effort: a sink failure is logged and swallowed so
// the primary operation is never aborted by notification delivery.
func Dispatch(ctx context.Context, sink Sink, log *logrus.Logger, n Notification) {
	if sink == nil {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := sink.Send(ctx, n); err != nil && log != nil {
		log.WithError(err).WithField("title", n.Title).Warn("notification delivery failed")
	}
}
