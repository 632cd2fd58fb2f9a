package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishDealEvent publishes a deal lifecycle event.
func (ep *EventPublisher) PublishDealEvent(ctx context.Context, eventType string, deal *models.Deal) error {
	event := &models.DealEvent{
		BaseEvent: newBaseEvent(eventType),
		DealID:    deal.ID,
		Name:      deal.Name,
		Category:  deal.Category,
		State:     string(deal.State),
		Origin:    deal.Origin,
	}
	return ep.producer.PublishEvent(ctx, dealKey(deal.ID), event)
}

// PublishCommitmentAccepted publishes a CommitmentAccepted event.
func (ep *EventPublisher) PublishCommitmentAccepted(ctx context.Context, c *models.Commitment, deal *models.Deal) error {
	event := &models.CommitmentAcceptedEvent{
		BaseEvent:         newBaseEvent(models.EventTypeCommitmentAccepted),
		CommitmentID:      c.ID,
		DealID:            c.DealID,
		BuyerEmail:        c.BuyerEmail,
		Quantity:          c.Quantity,
		PriceLocked:       c.PriceLocked.String(),
		CommittedQuantity: deal.CommittedQuantity,
		TargetQuantity:    deal.TargetQuantity,
		Fulfilled:         deal.State == lifecycle.StateFulfilled,
	}
	return ep.producer.PublishEvent(ctx, dealKey(c.DealID), event)
}

// PublishCommitmentCancelled publishes a CommitmentCancelled event.
func (ep *EventPublisher) PublishCommitmentCancelled(ctx context.Context, c *models.Commitment, committed int) error {
	event := &models.CommitmentCancelledEvent{
		BaseEvent:         newBaseEvent(models.EventTypeCommitmentCancelled),
		CommitmentID:      c.ID,
		DealID:            c.DealID,
		Quantity:          c.Quantity,
		CommittedQuantity: committed,
	}
	return ep.producer.PublishEvent(ctx, dealKey(c.DealID), event)
}

func dealKey(dealID int64) string {
	return fmt.Sprintf("deal-%d", dealID)
}

// EventHandler routes consumed messages to registered handlers.
type EventHandler struct {
	onCommitmentAccepted  func(context.Context, *models.CommitmentAcceptedEvent) error
	onCommitmentCancelled func(context.Context, *models.CommitmentCancelledEvent) error
	onDealEvent           func(context.Context, *models.DealEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnCommitmentAccepted registers a handler for CommitmentAccepted events
func (eh *EventHandler) OnCommitmentAccepted(handler func(context.Context, *models.CommitmentAcceptedEvent) error) {
	eh.onCommitmentAccepted = handler
}

// OnCommitmentCancelled registers a handler for CommitmentCancelled events
func (eh *EventHandler) OnCommitmentCancelled(handler func(context.Context, *models.CommitmentCancelledEvent) error) {
	eh.onCommitmentCancelled = handler
}

// OnDealEvent registers a handler for deal lifecycle events
func (eh *EventHandler) OnDealEvent(handler func(context.Context, *models.DealEvent) error) {
	eh.onDealEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeCommitmentAccepted:
		if eh.onCommitmentAccepted != nil {
			var event models.CommitmentAcceptedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CommitmentAccepted event: %w", err)
			}
			return eh.onCommitmentAccepted(ctx, &event)
		}

	case models.EventTypeCommitmentCancelled:
		if eh.onCommitmentCancelled != nil {
			var event models.CommitmentCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CommitmentCancelled event: %w", err)
			}
			return eh.onCommitmentCancelled(ctx, &event)
		}

	case models.EventTypeDealCreated, models.EventTypeDealApproved,
		models.EventTypeDealFulfilled, models.EventTypeDealExpired,
		models.EventTypeDealClosed:
		if eh.onDealEvent != nil {
			var event models.DealEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal deal event: %w", err)
			}
			return eh.onDealEvent(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
