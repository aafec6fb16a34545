package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/service"
)

// StartNotificationWorker attaches the broker forwarder to the dispatcher. Without a
// broker, events are only logged at debug level.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications.RegisterHandlers()
	logger.Info("event forwarder started",
		zap.Int("event_types", len(events.AllEventTypes)),
		zap.Bool("broker", notifications.HasBroker()))
}
