package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

func TestCreateManualDealStartsActive(t *testing.T) {
	env := newTestEnv()

	deal, err := env.registry.CreateDeal(context.Background(), CreateDealInput{
		Name:           "Grain Cluster",
		Category:       "Food",
		RetailPrice:    decimal.NewFromInt(500),
		GroupPrice:     decimal.NewFromInt(300),
		TargetQuantity: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StateActive, deal.State)
	assert.Equal(t, models.OriginManual, deal.Origin)
	assert.Equal(t, 40.0, deal.SavingsPercentage)
	assert.Equal(t, 0, deal.CommittedQuantity)
}

func TestCreateDiscoveryDealQueuesForApproval(t *testing.T) {
	env := newTestEnv()

	deal, err := env.registry.CreateDeal(context.Background(), CreateDealInput{
		Name:           "Irrigation Node",
		Category:       "Outdoors",
		RetailPrice:    decimal.NewFromInt(850),
		GroupPrice:     decimal.NewFromInt(600),
		TargetQuantity: 100,
		Origin:         models.OriginDiscovery,
	})
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatePendingApproval, deal.State)
	assert.Equal(t, models.OriginDiscovery, deal.Origin)
}

func TestCreateDealValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Bad Pricing",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(120),
		TargetQuantity: 10,
	})
	assert.ErrorIs(t, err, models.ErrInvalidPricing)

	_, err = env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Free Retail",
		RetailPrice:    decimal.Zero,
		GroupPrice:     decimal.NewFromInt(1),
		TargetQuantity: 10,
	})
	assert.ErrorIs(t, err, models.ErrInvalidPricing)

	_, err = env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "No Target",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(80),
		TargetQuantity: 0,
	})
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
}

func TestUpdatePricingRecomputesSavings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal := env.activeDeal(t, 100, 100, 80)

	updated, err := env.registry.UpdatePricing(ctx, deal.ID, decimal.NewFromInt(200), decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.SavingsPercentage)

	_, err = env.registry.UpdatePricing(ctx, deal.ID, decimal.NewFromInt(100), decimal.NewFromInt(150))
	assert.ErrorIs(t, err, models.ErrInvalidPricing)

	_, err = env.registry.UpdatePricing(ctx, 9999, decimal.NewFromInt(100), decimal.NewFromInt(80))
	assert.ErrorIs(t, err, models.ErrDealNotFound)
}

func TestSetApproval(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	deal, err := env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Pending Deal",
		Category:       "Electronics",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(70),
		TargetQuantity: 10,
		Origin:         models.OriginDiscovery,
	})
	require.NoError(t, err)

	approved, err := env.registry.SetApproval(ctx, deal.ID, true)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateActive, approved.State)

	// Approving twice is not a decision anymore.
	_, err = env.registry.SetApproval(ctx, deal.ID, true)
	assert.ErrorIs(t, err, models.ErrDealNotOpen)
}

func TestSetApprovalRejectionCloses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	deal, err := env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Rejected Deal",
		Category:       "Home",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(70),
		TargetQuantity: 10,
		Origin:         models.OriginDiscovery,
	})
	require.NoError(t, err)

	rejected, err := env.registry.SetApproval(ctx, deal.ID, false)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateClosed, rejected.State)
}

func TestCloseDeal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal := env.activeDeal(t, 100, 100, 80)

	closed, err := env.registry.Close(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateClosed, closed.State)

	_, err = env.registry.Close(ctx, deal.ID)
	assert.ErrorIs(t, err, models.ErrDealNotOpen)

	_, err = env.registry.Close(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrDealNotFound)
}

func TestCloseFulfilledDealRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	deal := env.activeDeal(t, 1, 100, 80)

	_, err := env.coordinator.Commit(ctx, deal.ID, "buyer@example.com", 1, "")
	require.NoError(t, err)

	_, err = env.registry.Close(ctx, deal.ID)
	assert.ErrorIs(t, err, models.ErrDealNotOpen)
}

func TestGetAppliesLazyExpiry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	deal, err := env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Overdue Deal",
		Category:       "Food",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(80),
		TargetQuantity: 10,
		Deadline:       &past,
	})
	require.NoError(t, err)

	got, err := env.registry.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateExpired, got.State)

	// The transition persisted.
	stored, err := env.store.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateExpired, stored.State)
}

func TestSetApprovalPastDeadlineExpires(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	deal, err := env.registry.CreateDeal(ctx, CreateDealInput{
		Name:           "Stale Draft",
		Category:       "Home",
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(80),
		TargetQuantity: 10,
		Origin:         models.OriginDiscovery,
		Deadline:       &past,
	})
	require.NoError(t, err)

	_, err = env.registry.SetApproval(ctx, deal.ID, true)
	assert.ErrorIs(t, err, models.ErrDealExpired)

	stored, err := env.store.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateExpired, stored.State)
}

func TestExpireOverdue(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	for _, deadline := range []*time.Time{&past, &future, nil} {
		_, err := env.registry.CreateDeal(ctx, CreateDealInput{
			Name:           "Deal",
			Category:       "Home",
			RetailPrice:    decimal.NewFromInt(100),
			GroupPrice:     decimal.NewFromInt(80),
			TargetQuantity: 10,
			Deadline:       deadline,
		})
		require.NoError(t, err)
	}

	expired, err := env.registry.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	// A second sweep finds nothing left to expire.
	expired, err = env.registry.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}
