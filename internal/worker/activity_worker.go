// Package worker holds the background jobs: persisting activity events from
// the broker and sweeping expired sessions.
package worker

import (
	"context"
	"fmt"

	"evergreen/internal/amqp"
	"evergreen/internal/log"
	"evergreen/internal/services"
)

// ActivityWorker writes activity events consumed from AMQP into the shared
// activity log.
type ActivityWorker struct {
	log    services.ActivityLog
	logger *log.Logger
}

func NewActivityWorker(activityLog services.ActivityLog, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ActivityWorker{log: activityLog, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleActivityMessage persists one event. A returned error makes the
// consumer requeue the message.
func (w *ActivityWorker) HandleActivityMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	w.logger.DebugContext(ctx, "Processing activity message",
		log.FieldActivityKind, msg.Kind,
		"timestamp", msg.Timestamp)

	if err := w.log.AppendActivity(ctx, msg.Activity()); err != nil {
		w.logger.ErrorContext(ctx, "Failed to store activity",
			log.FieldActivityKind, msg.Kind,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return fmt.Errorf("store activity: %w", err)
	}
	return nil
}
