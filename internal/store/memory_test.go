package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

func newDeal(name, category string) *models.Deal {
	return &models.Deal{
		Name:           name,
		Category:       category,
		RetailPrice:    decimal.NewFromInt(100),
		GroupPrice:     decimal.NewFromInt(80),
		TargetQuantity: 10,
		State:          lifecycle.StateActive,
		Origin:         models.OriginManual,
	}
}

func TestMemoryCreateAndGetDeal(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	deal := newDeal("Solar Inverter", "Electronics")
	require.NoError(t, s.CreateDeal(ctx, deal))
	assert.NotZero(t, deal.ID)

	got, err := s.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, deal.Name, got.Name)
	assert.Equal(t, lifecycle.StateActive, got.State)

	_, err = s.GetDeal(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrDealNotFound)
}

func TestMemoryGetDealReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	deal := newDeal("Solar Inverter", "Electronics")
	require.NoError(t, s.CreateDeal(ctx, deal))

	got, err := s.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	got.CommittedQuantity = 42

	again, err := s.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CommittedQuantity, "mutating a returned deal must not touch the store")
}

func TestMemoryAppendCommitmentAtomicity(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	deal := newDeal("HEPA Filters", "Home")
	require.NoError(t, s.CreateDeal(ctx, deal))

	c := &models.Commitment{
		DealID:      deal.ID,
		BuyerEmail:  "buyer@example.com",
		Quantity:    4,
		PriceLocked: deal.GroupPrice,
		Status:      models.CommitmentStatusPending,
	}
	require.NoError(t, s.AppendCommitment(ctx, c, 4, lifecycle.StateActive))
	assert.NotZero(t, c.ID)

	got, err := s.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CommittedQuantity)

	total, err := s.LedgerQuantity(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, got.CommittedQuantity, total)

	err = s.AppendCommitment(ctx, &models.Commitment{DealID: 9999}, 1, lifecycle.StateActive)
	assert.ErrorIs(t, err, models.ErrDealNotFound)
}

func TestMemoryCancelCommitment(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	deal := newDeal("Irrigation Node", "Outdoors")
	require.NoError(t, s.CreateDeal(ctx, deal))

	c := &models.Commitment{DealID: deal.ID, BuyerEmail: "a@b.c", Quantity: 3, Status: models.CommitmentStatusPending}
	require.NoError(t, s.AppendCommitment(ctx, c, 3, lifecycle.StateActive))

	require.NoError(t, s.CancelCommitment(ctx, c.ID, deal.ID, 0))

	got, err := s.GetCommitment(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommitmentStatusCancelled, got.Status)

	total, err := s.LedgerQuantity(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total, "cancelled commitments leave the ledger sum")
}

func TestMemoryListDeals(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.CreateDeal(ctx, newDeal("A", "Electronics")))
	require.NoError(t, s.CreateDeal(ctx, newDeal("B", "Home")))
	require.NoError(t, s.CreateDeal(ctx, newDeal("C", "Electronics")))

	all, err := s.ListDeals(ctx, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name, "insertion order")

	electronics, err := s.ListDeals(ctx, "Electronics", 20, 0)
	require.NoError(t, err)
	assert.Len(t, electronics, 2)

	page, err := s.ListDeals(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Name)
}

func TestMemoryCategories(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.CreateDeal(ctx, newDeal("A", "Home")))
	require.NoError(t, s.CreateDeal(ctx, newDeal("B", "Electronics")))
	require.NoError(t, s.CreateDeal(ctx, newDeal("C", "Home")))

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics", "Home"}, categories)
}

func TestMemoryCommitmentsByBuyer(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	deal := newDeal("Grain Cluster", "Food")
	require.NoError(t, s.CreateDeal(ctx, deal))

	for i := 0; i < 3; i++ {
		c := &models.Commitment{DealID: deal.ID, BuyerEmail: "buyer@example.com", Quantity: 1, Status: models.CommitmentStatusPending}
		require.NoError(t, s.AppendCommitment(ctx, c, i+1, lifecycle.StateActive))
	}

	mine, err := s.GetCommitmentsByBuyer(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	none, err := s.GetCommitmentsByBuyer(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}
