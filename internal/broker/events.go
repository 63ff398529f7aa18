package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing reservation lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReservationCreated publishes ReservationCreated event
func (ep *EventPublisher) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationConfirmed publishes ReservationConfirmed event
func (ep *EventPublisher) PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationCancelled publishes ReservationCancelled event
func (ep *EventPublisher) PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

// PublishReservationRefunded publishes ReservationRefunded event
func (ep *EventPublisher) PublishReservationRefunded(ctx context.Context, event *models.ReservationRefundedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.ReservationID), event)
}

func reservationKey(id string) string {
	return fmt.Sprintf("reservation-%s", id)
}

// EventHandler routes consumed reservation events to registered callbacks
type EventHandler struct {
	onConfirmed func(context.Context, *models.ReservationConfirmedEvent) error
	onCancelled func(context.Context, *models.ReservationCancelledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReservationConfirmed registers a handler for ReservationConfirmed events
func (eh *EventHandler) OnReservationConfirmed(handler func(context.Context, *models.ReservationConfirmedEvent) error) {
	eh.onConfirmed = handler
}

// OnReservationCancelled registers a handler for ReservationCancelled events
func (eh *EventHandler) OnReservationCancelled(handler func(context.Context, *models.ReservationCancelledEvent) error) {
	eh.onCancelled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeReservationConfirmed:
		if eh.onConfirmed != nil {
			var event models.ReservationConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationConfirmed event: %w", err)
			}
			return eh.onConfirmed(ctx, &event)
		}

	case models.EventTypeReservationCancelled:
		if eh.onCancelled != nil {
			var event models.ReservationCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationCancelled event: %w", err)
			}
			return eh.onCancelled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
