package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

// CreateDeal inserts a new deal row.
func (s *Postgres) CreateDeal(ctx context.Context, deal *models.Deal) error {
	query := `
		INSERT INTO deals (name, description, category, retail_price, group_price,
			savings_percentage, target_quantity, committed_quantity, state, origin,
			image_url, tariff_impact, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		deal.Name, deal.Description, deal.Category,
		deal.RetailPrice, deal.GroupPrice, deal.SavingsPercentage,
		deal.TargetQuantity, deal.CommittedQuantity, deal.State, deal.Origin,
		deal.ImageURL, deal.TariffImpact, deal.Deadline,
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)
	return translateErr(err)
}

// GetDeal retrieves a deal by ID.
func (s *Postgres) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	var deal models.Deal
	err := s.db.GetContext(ctx, &deal, "SELECT * FROM deals WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", models.ErrDealNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// ListDeals retrieves deals with optional category filtering.
func (s *Postgres) ListDeals(ctx context.Context, category string, limit, offset int) ([]models.Deal, error) {
	deals := []models.Deal{}
	var err error
	if category != "" {
		err = s.db.SelectContext(ctx, &deals,
			"SELECT * FROM deals WHERE category = $1 ORDER BY id LIMIT $2 OFFSET $3",
			category, limit, offset)
	} else {
		err = s.db.SelectContext(ctx, &deals,
			"SELECT * FROM deals ORDER BY id LIMIT $1 OFFSET $2", limit, offset)
	}
	return deals, err
}

// SnapshotDeals reads every deal inside a REPEATABLE READ read-only
// transaction so reporting sees aggregates from a single instant.
func (s *Postgres) SnapshotDeals(ctx context.Context) ([]models.Deal, error) {
	deals := []models.Deal{}
	err := s.inTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		func(tx *sqlx.Tx) error {
			return tx.SelectContext(ctx, &deals, "SELECT * FROM deals ORDER BY id")
		})
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// UpdateDealPricing updates the price pair and the derived savings
// percentage. Locked prices on existing commitments are unaffected.
func (s *Postgres) UpdateDealPricing(ctx context.Context, id int64, retail, group decimal.Decimal, savings float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deals SET retail_price = $1, group_price = $2, savings_percentage = $3, updated_at = NOW() WHERE id = $4",
		retail, group, savings, id)
	if err != nil {
		return translateErr(err)
	}
	return checkAffected(res, id)
}

// UpdateDealState moves a deal to a new lifecycle state.
func (s *Postgres) UpdateDealState(ctx context.Context, id int64, state lifecycle.State) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deals SET state = $1, updated_at = NOW() WHERE id = $2", state, id)
	if err != nil {
		return translateErr(err)
	}
	return checkAffected(res, id)
}

// Categories returns the distinct deal categories.
func (s *Postgres) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.SelectContext(ctx, &categories,
		"SELECT DISTINCT category FROM deals WHERE category <> '' ORDER BY category")
	return categories, err
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", models.ErrDealNotFound, id)
	}
	return nil
}
