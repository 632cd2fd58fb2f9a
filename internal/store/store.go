package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
)

// ErrSerialization is returned when the backend detected a write conflict
// that is safe to retry. The coordinator retries a bounded number of times
// before surfacing a conflict to the caller.
var ErrSerialization = errors.New("serialization conflict")

// Store is the persistence boundary shared by the Postgres and in-memory
// backends. Lookup misses are reported as models.ErrDealNotFound /
// models.ErrCommitmentNotFound; anything else is a storage failure.
//
// AppendCommitment and CancelCommitment are the two compound writes of the
// system: each applies its ledger mutation and the new deal aggregate as a
// single atomic unit, so no reader ever sees a counter that disagrees with
// the ledger.
type Store interface {
	CreateDeal(ctx context.Context, deal *models.Deal) error
	GetDeal(ctx context.Context, id int64) (*models.Deal, error)
	ListDeals(ctx context.Context, category string, limit, offset int) ([]models.Deal, error)
	// SnapshotDeals returns a read-consistent copy of every deal, taken at
	// a single instant. Reporting runs exclusively off this.
	SnapshotDeals(ctx context.Context) ([]models.Deal, error)
	UpdateDealPricing(ctx context.Context, id int64, retail, group decimal.Decimal, savings float64) error
	UpdateDealState(ctx context.Context, id int64, state lifecycle.State) error

	// AppendCommitment inserts the commitment and moves the owning deal to
	// the given aggregate quantity and state in one transaction.
	AppendCommitment(ctx context.Context, c *models.Commitment, committed int, state lifecycle.State) error
	// CancelCommitment marks the commitment cancelled and moves the owning
	// deal to the given aggregate quantity in one transaction. The deal
	// state is never touched here: fulfilment is one-way.
	CancelCommitment(ctx context.Context, commitmentID, dealID int64, committed int) error

	GetCommitment(ctx context.Context, id int64) (*models.Commitment, error)
	GetCommitmentsByDeal(ctx context.Context, dealID int64) ([]models.Commitment, error)
	GetCommitmentsByBuyer(ctx context.Context, email string) ([]models.Commitment, error)
	// LedgerQuantity returns the sum of quantity over the deal's
	// non-cancelled commitments (the invariant-check counterpart of the
	// deal's committed_quantity column).
	LedgerQuantity(ctx context.Context, dealID int64) (int, error)

	Categories(ctx context.Context) ([]string, error)
	Close() error
}
