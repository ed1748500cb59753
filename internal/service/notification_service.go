package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/events"
)

// EventPublisher forwards events outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// NotificationService logs every domain event and forwards it to an external publisher
// when one is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  EventPublisher
	logger     *zap.Logger
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, publisher EventPublisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.AllEvents, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.Bool("system", event.Actor.System),
	}
	switch event.Type {
	case events.EventTicketSLABreached:
		n.logger.Warn("ticket event", fields...)
	default:
		n.logger.Info("ticket event", fields...)
	}

	if n.publisher == nil {
		return nil
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Error("forward event", append(fields, zap.Error(err))...)
	}
	return nil
}
