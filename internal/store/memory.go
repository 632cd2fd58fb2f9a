package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

// Memory is an in-process Store backend with the same atomicity contract as
// Postgres: every compound write happens under one mutex hold, so readers
// never observe a deal aggregate that disagrees with the ledger. It backs
// the test suite and local development without a database.
type Memory struct {
	mu               sync.RWMutex
	deals            map[int64]*models.Deal
	commitments      map[int64]*models.Commitment
	nextDealID       int64
	nextCommitmentID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		deals:       make(map[int64]*models.Deal),
		commitments: make(map[int64]*models.Commitment),
	}
}

func (s *Memory) Close() error { return nil }

func (s *Memory) CreateDeal(_ context.Context, deal *models.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDealID++
	deal.ID = s.nextDealID
	deal.CreatedAt = time.Now()
	deal.UpdatedAt = deal.CreatedAt

	cp := *deal
	s.deals[deal.ID] = &cp
	return nil
}

func (s *Memory) GetDeal(_ context.Context, id int64) (*models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deal, ok := s.deals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrDealNotFound, id)
	}
	cp := *deal
	return &cp, nil
}

func (s *Memory) ListDeals(_ context.Context, category string, limit, offset int) ([]models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deals := s.sortedDeals()
	if category != "" {
		filtered := deals[:0]
		for _, d := range deals {
			if d.Category == category {
				filtered = append(filtered, d)
			}
		}
		deals = filtered
	}
	if offset >= len(deals) {
		return []models.Deal{}, nil
	}
	deals = deals[offset:]
	if limit > 0 && limit < len(deals) {
		deals = deals[:limit]
	}
	return deals, nil
}

func (s *Memory) SnapshotDeals(_ context.Context) ([]models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDeals(), nil
}

// sortedDeals copies all deals in insertion (id) order. Caller holds mu.
func (s *Memory) sortedDeals() []models.Deal {
	deals := make([]models.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		deals = append(deals, *d)
	}
	sort.Slice(deals, func(i, j int) bool { return deals[i].ID < deals[j].ID })
	return deals
}

func (s *Memory) UpdateDealPricing(_ context.Context, id int64, retail, group decimal.Decimal, savings float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, ok := s.deals[id]
	if !ok {
		return fmt.Errorf("%w: %d", models.ErrDealNotFound, id)
	}
	deal.RetailPrice = retail
	deal.GroupPrice = group
	deal.SavingsPercentage = savings
	deal.UpdatedAt = time.Now()
	return nil
}

func (s *Memory) UpdateDealState(_ context.Context, id int64, state lifecycle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, ok := s.deals[id]
	if !ok {
		return fmt.Errorf("%w: %d", models.ErrDealNotFound, id)
	}
	deal.State = state
	deal.UpdatedAt = time.Now()
	return nil
}

func (s *Memory) AppendCommitment(_ context.Context, c *models.Commitment, committed int, state lifecycle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, ok := s.deals[c.DealID]
	if !ok {
		return fmt.Errorf("%w: %d", models.ErrDealNotFound, c.DealID)
	}

	s.nextCommitmentID++
	c.ID = s.nextCommitmentID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	cp := *c
	s.commitments[c.ID] = &cp

	deal.CommittedQuantity = committed
	deal.State = state
	deal.UpdatedAt = time.Now()
	return nil
}

func (s *Memory) CancelCommitment(_ context.Context, commitmentID, dealID int64, committed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commitments[commitmentID]
	if !ok {
		return fmt.Errorf("%w: %d", models.ErrCommitmentNotFound, commitmentID)
	}
	deal, ok := s.deals[dealID]
	if !ok {
		return fmt.Errorf("%w: %d", models.ErrDealNotFound, dealID)
	}

	c.Status = models.CommitmentStatusCancelled
	c.UpdatedAt = time.Now()
	deal.CommittedQuantity = committed
	deal.UpdatedAt = time.Now()
	return nil
}

func (s *Memory) GetCommitment(_ context.Context, id int64) (*models.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commitments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrCommitmentNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (s *Memory) GetCommitmentsByDeal(_ context.Context, dealID int64) ([]models.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commitments := []models.Commitment{}
	for _, c := range s.commitments {
		if c.DealID == dealID {
			commitments = append(commitments, *c)
		}
	}
	sort.Slice(commitments, func(i, j int) bool { return commitments[i].ID < commitments[j].ID })
	return commitments, nil
}

func (s *Memory) GetCommitmentsByBuyer(_ context.Context, email string) ([]models.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commitments := []models.Commitment{}
	for _, c := range s.commitments {
		if c.BuyerEmail == email {
			commitments = append(commitments, *c)
		}
	}
	sort.Slice(commitments, func(i, j int) bool { return commitments[i].ID > commitments[j].ID })
	return commitments, nil
}

func (s *Memory) LedgerQuantity(_ context.Context, dealID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, c := range s.commitments {
		if c.DealID == dealID && c.Status != models.CommitmentStatusCancelled {
			total += c.Quantity
		}
	}
	return total, nil
}

func (s *Memory) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	categories := []string{}
	for _, d := range s.sortedDeals() {
		if d.Category != "" && !seen[d.Category] {
			seen[d.Category] = true
			categories = append(categories, d.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

var _ Store = (*Memory)(nil)
var _ Store = (*Postgres)(nil)
