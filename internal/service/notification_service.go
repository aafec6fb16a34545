package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/events"
)

// NotificationService forwards domain events to the external broker.
type NotificationService struct {
	dispatcher events.Dispatcher
	broker     events.Broker
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil broker only logs events.
func NewNotificationService(dispatcher events.Dispatcher, broker events.Broker, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		broker:     broker,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the forwarder to every event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAll(n.forward)
}

// HasBroker reports whether events leave the process.
func (n *NotificationService) HasBroker() bool {
	return n.broker != nil
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Debug("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID))
	if n.broker == nil {
		return nil
	}
	if err := n.broker.Forward(ctx, event); err != nil {
		n.logger.Warn("failed to forward event",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
		return err
	}
	return nil
}
