package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing reservation events
type EventPublisher struct {
	writer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(writer EventWriter) *EventPublisher {
	return &EventPublisher{writer: writer}
}

func reservationKey(id string) string {
	return fmt.Sprintf("reservation-%s", id)
}

// PublishReservationCreated publishes ReservationCreated event
func (ep *EventPublisher) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	return ep.writer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationStatusChanged publishes ReservationConfirmed or ReservationCancelled
func (ep *EventPublisher) PublishReservationStatusChanged(ctx context.Context, event *models.ReservationStatusChangedEvent) error {
	return ep.writer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// EventHandler routes incoming reservation events
type EventHandler struct {
	onCreated       func(context.Context, *models.ReservationCreatedEvent) error
	onStatusChanged func(context.Context, *models.ReservationStatusChangedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.ComponentLogger("event-handler")}
}

// OnReservationCreated registers a handler for ReservationCreated events
func (eh *EventHandler) OnReservationCreated(handler func(context.Context, *models.ReservationCreatedEvent) error) {
	eh.onCreated = handler
}

// OnReservationStatusChanged registers a handler for confirm and cancel events
func (eh *EventHandler) OnReservationStatusChanged(handler func(context.Context, *models.ReservationStatusChangedEvent) error) {
	eh.onStatusChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeReservationCreated:
		if eh.onCreated != nil {
			var event models.ReservationCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationCreated event: %w", err)
			}
			return eh.onCreated(ctx, &event)
		}

	case models.EventTypeReservationConfirmed, models.EventTypeReservationCancelled:
		if eh.onStatusChanged != nil {
			var event models.ReservationStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onStatusChanged(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
