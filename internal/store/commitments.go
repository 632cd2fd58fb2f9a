package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

// AppendCommitment appends the commitment to the ledger and applies the new
// deal aggregate in one transaction. The deal row is locked FOR UPDATE so a
// concurrent writer from another process serializes behind this one.
func (s *Postgres) AppendCommitment(ctx context.Context, c *models.Commitment, committed int, state lifecycle.State) error {
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		var current int
		err := tx.GetContext(ctx, &current,
			"SELECT committed_quantity FROM deals WHERE id = $1 FOR UPDATE", c.DealID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %d", models.ErrDealNotFound, c.DealID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock deal: %w", err)
		}

		query := `
			INSERT INTO commitments (deal_id, buyer_email, quantity, price_locked, status, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`
		err = tx.QueryRowxContext(ctx, query,
			c.DealID, c.BuyerEmail, c.Quantity, c.PriceLocked, c.Status, c.IdempotencyKey,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to append commitment: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE deals SET committed_quantity = $1, state = $2, updated_at = NOW() WHERE id = $3",
			committed, state, c.DealID)
		if err != nil {
			return fmt.Errorf("failed to update deal aggregate: %w", err)
		}
		return nil
	})
}

// CancelCommitment marks the commitment cancelled and applies the reduced
// deal aggregate in one transaction.
func (s *Postgres) CancelCommitment(ctx context.Context, commitmentID, dealID int64, committed int) error {
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		var current int
		err := tx.GetContext(ctx, &current,
			"SELECT committed_quantity FROM deals WHERE id = $1 FOR UPDATE", dealID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %d", models.ErrDealNotFound, dealID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock deal: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE commitments SET status = $1, updated_at = NOW() WHERE id = $2",
			models.CommitmentStatusCancelled, commitmentID)
		if err != nil {
			return fmt.Errorf("failed to cancel commitment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", models.ErrCommitmentNotFound, commitmentID)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE deals SET committed_quantity = $1, updated_at = NOW() WHERE id = $2",
			committed, dealID)
		if err != nil {
			return fmt.Errorf("failed to update deal aggregate: %w", err)
		}
		return nil
	})
}

// GetCommitment retrieves a commitment by ID.
func (s *Postgres) GetCommitment(ctx context.Context, id int64) (*models.Commitment, error) {
	var c models.Commitment
	err := s.db.GetContext(ctx, &c, "SELECT * FROM commitments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", models.ErrCommitmentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommitmentsByDeal retrieves all commitments referencing a deal.
func (s *Postgres) GetCommitmentsByDeal(ctx context.Context, dealID int64) ([]models.Commitment, error) {
	commitments := []models.Commitment{}
	err := s.db.SelectContext(ctx, &commitments,
		"SELECT * FROM commitments WHERE deal_id = $1 ORDER BY id", dealID)
	return commitments, err
}

// GetCommitmentsByBuyer retrieves all commitments for a buyer.
func (s *Postgres) GetCommitmentsByBuyer(ctx context.Context, email string) ([]models.Commitment, error) {
	commitments := []models.Commitment{}
	err := s.db.SelectContext(ctx, &commitments,
		"SELECT * FROM commitments WHERE buyer_email = $1 ORDER BY created_at DESC", email)
	return commitments, err
}

// LedgerQuantity sums the non-cancelled commitment quantities for a deal.
// Served by the (deal_id, status) index.
func (s *Postgres) LedgerQuantity(ctx context.Context, dealID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(quantity), 0) FROM commitments WHERE deal_id = $1 AND status <> $2",
		dealID, models.CommitmentStatusCancelled)
	return total, err
}
