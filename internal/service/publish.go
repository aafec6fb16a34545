package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/events"
)

// publishEvent dispatches an event. Delivery failures are logged and never fail the
// operation that produced the event.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}
