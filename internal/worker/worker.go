package worker

import (
	"context"
	"log"
	"time"

	"groupbuy-service/internal/broker"
	"groupbuy-service/internal/models"
	"groupbuy-service/internal/redisclient"
	"groupbuy-service/internal/service"
)

// SourcingWorker periodically runs the deal finder.
type SourcingWorker struct {
	finder   *service.Finder
	interval time.Duration
}

// NewSourcingWorker creates a new sourcing worker
func NewSourcingWorker(finder *service.Finder, interval time.Duration) *SourcingWorker {
	return &SourcingWorker{finder: finder, interval: interval}
}

// Start runs discovery on a ticker until the context is cancelled.
func (w *SourcingWorker) Start(ctx context.Context) error {
	log.Printf("Starting sourcing worker: interval=%s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sourcing worker stopping...")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.finder.Run(ctx); err != nil {
				log.Printf("Sourcing run failed: %v", err)
			}
		}
	}
}

// ExpiryWorker sweeps past-deadline deals so reporting stays fresh even for
// deals nobody reads. Lazy expiry on access remains the authoritative path.
type ExpiryWorker struct {
	registry *service.Registry
	interval time.Duration
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(registry *service.Registry, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{registry: registry, interval: interval}
}

// Start runs the sweep on a ticker until the context is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	log.Printf("Starting expiry worker: interval=%s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry worker stopping...")
			return ctx.Err()
		case <-ticker.C:
			expired, err := w.registry.ExpireOverdue(ctx)
			if err != nil {
				log.Printf("Expiry sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("Expiry sweep: %d deals expired", expired)
			}
		}
	}
}

// ProgressWorker consumes commitment events and maintains the Redis
// progress mirror used by fast progress reads.
type ProgressWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewProgressWorker creates a new progress worker
func NewProgressWorker(consumer *broker.Consumer, redis *redisclient.Client) *ProgressWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnCommitmentAccepted(func(ctx context.Context, event *models.CommitmentAcceptedEvent) error {
		_, err := redis.ApplyProgress(ctx, event.DealID, event.Quantity, event.TargetQuantity)
		return err
	})

	eventHandler.OnCommitmentCancelled(func(ctx context.Context, event *models.CommitmentCancelledEvent) error {
		_, err := redis.ApplyProgress(ctx, event.DealID, -event.Quantity, 0)
		return err
	})

	eventHandler.OnDealEvent(func(ctx context.Context, event *models.DealEvent) error {
		// Any lifecycle change can shift dashboard totals.
		return redis.InvalidateDashboard(ctx)
	})

	return &ProgressWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *ProgressWorker) Start(ctx context.Context) error {
	log.Println("Starting progress worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ProgressWorker) Stop() error {
	log.Println("Stopping progress worker...")
	return w.consumer.Close()
}
