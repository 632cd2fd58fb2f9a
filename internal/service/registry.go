package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
	"groupbuy-service/internal/store"
	"groupbuy-service/internal/util"
)

// Registry owns deal records and their lifecycle. It shares the per-deal
// lock map with the coordinator so pricing and lifecycle changes never race
// an in-flight commit or cancel on the same deal.
type Registry struct {
	store  store.Store
	locks  *DealLocks
	events EventSink
	logger *zap.Logger
}

// NewRegistry creates a new deal registry.
func NewRegistry(st store.Store, locks *DealLocks, events EventSink) *Registry {
	return &Registry{
		store:  st,
		locks:  locks,
		events: events,
		logger: util.GetLogger(),
	}
}

// CreateDealInput carries the attributes of a new deal.
type CreateDealInput struct {
	Name           string
	Description    string
	Category       string
	RetailPrice    decimal.Decimal
	GroupPrice     decimal.Decimal
	TargetQuantity int
	Origin         string
	ImageURL       string
	TariffImpact   float64
	Deadline       *time.Time
}

// CreateDeal registers a new deal. Manual deals open immediately; deals from
// automated discovery start as drafts and move straight to pending approval,
// waiting for an admin decision before going live.
func (r *Registry) CreateDeal(ctx context.Context, input CreateDealInput) (*models.Deal, error) {
	if err := validatePricing(input.RetailPrice, input.GroupPrice); err != nil {
		return nil, err
	}
	if input.TargetQuantity < 1 {
		return nil, fmt.Errorf("%w: target quantity %d", models.ErrInvalidQuantity, input.TargetQuantity)
	}

	origin := input.Origin
	if origin == "" {
		origin = models.OriginManual
	}

	state := lifecycle.StateActive
	if origin == models.OriginDiscovery {
		state = lifecycle.StateDraft
	}

	deal := &models.Deal{
		Name:              input.Name,
		Description:       input.Description,
		Category:          input.Category,
		RetailPrice:       input.RetailPrice,
		GroupPrice:        input.GroupPrice,
		SavingsPercentage: models.ComputeSavings(input.RetailPrice, input.GroupPrice),
		TargetQuantity:    input.TargetQuantity,
		State:             state,
		Origin:            origin,
		ImageURL:          input.ImageURL,
		TariffImpact:      input.TariffImpact,
		Deadline:          input.Deadline,
	}

	if err := r.store.CreateDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	// Drafts are reviewed, never committed against, so the draft state is
	// transient: discovery deals queue for approval as soon as they exist.
	if deal.State == lifecycle.StateDraft {
		if err := r.store.UpdateDealState(ctx, deal.ID, lifecycle.StatePendingApproval); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
		}
		deal.State = lifecycle.StatePendingApproval
	}

	util.DealsCreatedTotal.WithLabelValues(deal.Origin).Inc()
	r.logger.Info("Deal created",
		zap.Int64("deal_id", deal.ID),
		zap.String("name", deal.Name),
		zap.String("origin", deal.Origin),
		zap.String("state", string(deal.State)))

	r.publishDealEvent(ctx, models.EventTypeDealCreated, deal)
	return deal, nil
}

// Get retrieves a deal. If its deadline has passed while it was still
// expirable, the transition to EXPIRED is applied lazily here, so callers
// always observe the post-deadline state.
func (r *Registry) Get(ctx context.Context, id int64) (*models.Deal, error) {
	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if lifecycle.Expirable(deal.State) && deal.PastDeadline(time.Now()) {
		return r.expire(ctx, id)
	}
	return deal, nil
}

// List retrieves deals with optional category filtering.
func (r *Registry) List(ctx context.Context, category string, limit, offset int) ([]models.Deal, error) {
	return r.store.ListDeals(ctx, category, limit, offset)
}

// Categories returns the distinct deal categories.
func (r *Registry) Categories(ctx context.Context) ([]string, error) {
	return r.store.Categories(ctx)
}

// UpdatePricing changes a deal's price pair and recomputes the savings
// percentage. Existing commitments keep the price that was locked when they
// were accepted.
func (r *Registry) UpdatePricing(ctx context.Context, id int64, retail, group decimal.Decimal) (*models.Deal, error) {
	if err := validatePricing(retail, group); err != nil {
		return nil, err
	}

	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	savings := models.ComputeSavings(retail, group)
	if err := r.store.UpdateDealPricing(ctx, id, retail, group, savings); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	deal.RetailPrice = retail
	deal.GroupPrice = group
	deal.SavingsPercentage = savings

	r.logger.Info("Deal pricing updated",
		zap.Int64("deal_id", id),
		zap.String("retail_price", retail.String()),
		zap.String("group_price", group.String()),
		zap.Float64("savings_percentage", savings))
	return deal, nil
}

// SetApproval decides a pending deal: approval opens it for commitments,
// rejection closes it. Deals in any other state are not awaiting a decision.
func (r *Registry) SetApproval(ctx context.Context, id int64, approved bool) (*models.Deal, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if deal.State != lifecycle.StatePendingApproval {
		return nil, fmt.Errorf("%w: deal %d is %s, not awaiting approval", models.ErrDealNotOpen, id, deal.State)
	}

	if deal.PastDeadline(time.Now()) {
		r.expireLocked(ctx, deal)
		return nil, fmt.Errorf("%w: deal %d", models.ErrDealExpired, id)
	}

	if !approved {
		return r.closeLocked(ctx, deal)
	}

	if err := r.store.UpdateDealState(ctx, id, lifecycle.StateActive); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	deal.State = lifecycle.StateActive

	r.logger.Info("Deal approved", zap.Int64("deal_id", id), zap.String("name", deal.Name))
	r.publishDealEvent(ctx, models.EventTypeDealApproved, deal)
	return deal, nil
}

// Close deactivates a deal administratively. Terminal deals cannot be
// closed again.
func (r *Registry) Close(ctx context.Context, id int64) (*models.Deal, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if !lifecycle.CanTransition(deal.State, lifecycle.StateClosed) {
		return nil, fmt.Errorf("%w: deal %d is %s", models.ErrDealNotOpen, id, deal.State)
	}

	return r.closeLocked(ctx, deal)
}

// ExpireOverdue sweeps every expirable deal whose deadline has passed.
// Lazy expiry on access remains the authoritative path; the sweep keeps
// reporting fresh for deals nobody touches. Returns the number expired.
func (r *Registry) ExpireOverdue(ctx context.Context) (int, error) {
	deals, err := r.store.SnapshotDeals(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	now := time.Now()
	expired := 0
	for i := range deals {
		d := &deals[i]
		if !lifecycle.Expirable(d.State) || !d.PastDeadline(now) {
			continue
		}
		if _, err := r.expire(ctx, d.ID); err != nil {
			r.logger.Error("Failed to expire deal", zap.Int64("deal_id", d.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// expire acquires the deal lock, re-reads the deal and applies the expiry
// transition if it still holds.
func (r *Registry) expire(ctx context.Context, id int64) (*models.Deal, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	deal, err := r.store.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDealNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if !lifecycle.Expirable(deal.State) || !deal.PastDeadline(time.Now()) {
		return deal, nil
	}

	r.expireLocked(ctx, deal)
	return deal, nil
}

// expireLocked applies the expiry transition. Caller holds the deal lock.
func (r *Registry) expireLocked(ctx context.Context, deal *models.Deal) {
	if err := r.store.UpdateDealState(ctx, deal.ID, lifecycle.StateExpired); err != nil {
		r.logger.Error("Failed to expire deal", zap.Int64("deal_id", deal.ID), zap.Error(err))
		return
	}
	deal.State = lifecycle.StateExpired
	util.DealsExpiredTotal.Inc()
	r.logger.Info("Deal expired", zap.Int64("deal_id", deal.ID))
	r.publishDealEvent(ctx, models.EventTypeDealExpired, deal)
}

// closeLocked applies the close transition. Caller holds the deal lock.
func (r *Registry) closeLocked(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	if err := r.store.UpdateDealState(ctx, deal.ID, lifecycle.StateClosed); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	deal.State = lifecycle.StateClosed

	util.DealsClosedTotal.Inc()
	r.logger.Info("Deal closed", zap.Int64("deal_id", deal.ID), zap.String("name", deal.Name))
	r.publishDealEvent(ctx, models.EventTypeDealClosed, deal)
	return deal, nil
}

func (r *Registry) publishDealEvent(ctx context.Context, eventType string, deal *models.Deal) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishDealEvent(ctx, eventType, deal); err != nil {
		r.logger.Error("Failed to publish deal event",
			zap.String("event_type", eventType),
			zap.Int64("deal_id", deal.ID),
			zap.Error(err))
	}
}

func validatePricing(retail, group decimal.Decimal) error {
	if !retail.IsPositive() || !group.IsPositive() {
		return fmt.Errorf("%w: prices must be positive", models.ErrInvalidPricing)
	}
	if group.GreaterThan(retail) {
		return fmt.Errorf("%w: group %s > retail %s", models.ErrInvalidPricing, group, retail)
	}
	return nil
}
