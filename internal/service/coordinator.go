package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
	"groupbuy-service/internal/store"
	"groupbuy-service/internal/util"
)

// DefaultCommitRetries is the retry budget for transparent retries on
// storage write conflicts before ErrConflict surfaces to the caller.
const DefaultCommitRetries = 3

// Coordinator owns the commitment write path. All aggregate and state
// mutation for a deal happens under that deal's lock, and the ledger append
// plus counter update are applied as one store transaction, so the deal's
// committed quantity always equals the sum of its non-cancelled commitments.
type Coordinator struct {
	store   store.Store
	locks   *DealLocks
	events  EventSink
	retries int
	logger  *zap.Logger
}

// NewCoordinator creates a new commitment coordinator.
func NewCoordinator(st store.Store, locks *DealLocks, events EventSink, retries int) *Coordinator {
	if retries <= 0 {
		retries = DefaultCommitRetries
	}
	return &Coordinator{
		store:   st,
		locks:   locks,
		events:  events,
		retries: retries,
		logger:  util.GetLogger(),
	}
}

// Commit accepts a buyer pledge against a deal. The group price is read and
// locked inside the critical section, so a concurrent pricing update can
// never split a commitment's locked price from the price that was current
// when it was accepted. Identical repeated requests are not deduplicated;
// the idempotency key is recorded for audit only.
func (c *Coordinator) Commit(ctx context.Context, dealID int64, buyerEmail string, quantity int, idempotencyKey string) (*models.Commitment, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.Commit")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CommitLatency.Observe(time.Since(start).Seconds())
	}()

	c.locks.Lock(dealID)
	defer c.locks.Unlock(dealID)

	deal, err := c.store.GetDeal(ctx, dealID)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			util.CommitmentsRejectedTotal.WithLabelValues("not_found").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if !lifecycle.AcceptsCommitments(deal.State) {
		util.CommitmentsRejectedTotal.WithLabelValues("not_open").Inc()
		return nil, fmt.Errorf("%w: deal %d is %s", models.ErrDealNotOpen, dealID, deal.State)
	}

	if deal.PastDeadline(time.Now()) {
		c.expireLocked(ctx, deal)
		util.CommitmentsRejectedTotal.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("%w: deal %d", models.ErrDealExpired, dealID)
	}

	if quantity < 1 {
		util.CommitmentsRejectedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidQuantity, quantity)
	}

	commitment := &models.Commitment{
		DealID:         dealID,
		BuyerEmail:     buyerEmail,
		Quantity:       quantity,
		PriceLocked:    deal.GroupPrice,
		Status:         models.CommitmentStatusPending,
		IdempotencyKey: idempotencyKey,
	}

	// The increment is applied before the threshold check, so the
	// commitment that crosses the target is always counted.
	newQuantity := deal.CommittedQuantity + quantity
	newState := deal.State
	if newQuantity >= deal.TargetQuantity {
		newState = lifecycle.StateFulfilled
	}

	if err := c.append(ctx, commitment, newQuantity, newState); err != nil {
		return nil, err
	}

	deal.CommittedQuantity = newQuantity
	deal.State = newState

	util.CommitmentsAcceptedTotal.Inc()
	c.logger.Info("Commitment accepted",
		zap.Int64("commitment_id", commitment.ID),
		zap.Int64("deal_id", dealID),
		zap.Int("quantity", quantity),
		zap.Int("committed_quantity", newQuantity))

	if newState == lifecycle.StateFulfilled {
		util.DealsFulfilledTotal.Inc()
		c.logger.Info("Deal fulfilled",
			zap.Int64("deal_id", dealID),
			zap.Int("committed_quantity", newQuantity),
			zap.Int("target_quantity", deal.TargetQuantity))
		c.publishDealEvent(ctx, models.EventTypeDealFulfilled, deal)
	}

	if c.events != nil {
		if err := c.events.PublishCommitmentAccepted(ctx, commitment, deal); err != nil {
			c.logger.Error("Failed to publish CommitmentAccepted event", zap.Error(err))
		}
	}

	return commitment, nil
}

// append writes the commitment and the new aggregate, retrying transparently
// on storage write conflicts up to the budget.
func (c *Coordinator) append(ctx context.Context, commitment *models.Commitment, quantity int, state lifecycle.State) error {
	var err error
	for attempt := 0; attempt < c.retries; attempt++ {
		err = c.store.AppendCommitment(ctx, commitment, quantity, state)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrSerialization) {
			util.CommitmentsRejectedTotal.WithLabelValues("storage").Inc()
			return fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}
		util.CommitRetriesTotal.Inc()
	}

	util.CommitmentsRejectedTotal.WithLabelValues("conflict").Inc()
	return fmt.Errorf("%w: retry budget exhausted: %v", models.ErrConflict, err)
}

// Cancel cancels a commitment and returns its quantity to the deal's
// headroom. A fulfilled deal stays fulfilled even if the decrement drops
// the aggregate back below target: fulfilment records that the threshold
// was reached at least once.
func (c *Coordinator) Cancel(ctx context.Context, commitmentID int64) error {
	ctx, span := util.StartSpan(ctx, "Coordinator.Cancel")
	defer span.End()

	// Resolve the owning deal first; the lock must be held before the
	// commitment status is trusted.
	commitment, err := c.store.GetCommitment(ctx, commitmentID)
	if err != nil {
		if errors.Is(err, models.ErrCommitmentNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	dealID := commitment.DealID

	c.locks.Lock(dealID)
	defer c.locks.Unlock(dealID)

	commitment, err = c.store.GetCommitment(ctx, commitmentID)
	if err != nil {
		if errors.Is(err, models.ErrCommitmentNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if commitment.Status == models.CommitmentStatusCancelled {
		return fmt.Errorf("%w: %d", models.ErrAlreadyCancelled, commitmentID)
	}

	deal, err := c.store.GetDeal(ctx, dealID)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if !lifecycle.AcceptsCancellation(deal.State) {
		return fmt.Errorf("%w: deal %d is %s", models.ErrDealNotOpen, dealID, deal.State)
	}

	newQuantity := deal.CommittedQuantity - commitment.Quantity
	if err := c.store.CancelCommitment(ctx, commitmentID, dealID, newQuantity); err != nil {
		if errors.Is(err, store.ErrSerialization) {
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	util.CommitmentsCancelledTotal.Inc()
	c.logger.Info("Commitment cancelled",
		zap.Int64("commitment_id", commitmentID),
		zap.Int64("deal_id", dealID),
		zap.Int("quantity", commitment.Quantity),
		zap.Int("committed_quantity", newQuantity))

	if c.events != nil {
		if err := c.events.PublishCommitmentCancelled(ctx, commitment, newQuantity); err != nil {
			c.logger.Error("Failed to publish CommitmentCancelled event", zap.Error(err))
		}
	}

	return nil
}

// GetCommitment retrieves a commitment by ID.
func (c *Coordinator) GetCommitment(ctx context.Context, id int64) (*models.Commitment, error) {
	return c.store.GetCommitment(ctx, id)
}

// GetCommitmentsByBuyer retrieves all commitments for a buyer identity.
func (c *Coordinator) GetCommitmentsByBuyer(ctx context.Context, email string) ([]models.Commitment, error) {
	return c.store.GetCommitmentsByBuyer(ctx, email)
}

// GetCommitmentsByDeal retrieves the ledger entries referencing a deal.
func (c *Coordinator) GetCommitmentsByDeal(ctx context.Context, dealID int64) ([]models.Commitment, error) {
	return c.store.GetCommitmentsByDeal(ctx, dealID)
}

// expireLocked moves a deal past its deadline to EXPIRED. Caller holds the
// deal lock.
func (c *Coordinator) expireLocked(ctx context.Context, deal *models.Deal) {
	if !lifecycle.CanTransition(deal.State, lifecycle.StateExpired) {
		return
	}
	if err := c.store.UpdateDealState(ctx, deal.ID, lifecycle.StateExpired); err != nil {
		c.logger.Error("Failed to expire deal", zap.Int64("deal_id", deal.ID), zap.Error(err))
		return
	}
	deal.State = lifecycle.StateExpired
	util.DealsExpiredTotal.Inc()
	c.logger.Info("Deal expired", zap.Int64("deal_id", deal.ID))
	c.publishDealEvent(ctx, models.EventTypeDealExpired, deal)
}

func (c *Coordinator) publishDealEvent(ctx context.Context, eventType string, deal *models.Deal) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishDealEvent(ctx, eventType, deal); err != nil {
		c.logger.Error("Failed to publish deal event",
			zap.String("event_type", eventType),
			zap.Int64("deal_id", deal.ID),
			zap.Error(err))
	}
}
