package models

import (
	"time"

	"github.com/shopspring/decimal"

	"groupbuy-service/internal/lifecycle"
)

// Deal origins
const (
	OriginManual    = "manual"
	OriginDiscovery = "automated-discovery"
)

// Deal represents a group-buy campaign. The committed quantity aggregate is
// owned by the deal row and only ever moves through the coordinator, so it
// stays equal to the sum of the deal's non-cancelled commitments.
type Deal struct {
	ID                int64           `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Description       string          `db:"description" json:"description,omitempty"`
	Category          string          `db:"category" json:"category"`
	RetailPrice       decimal.Decimal `db:"retail_price" json:"retail_price"`
	GroupPrice        decimal.Decimal `db:"group_price" json:"group_price"`
	SavingsPercentage float64         `db:"savings_percentage" json:"savings_percentage"`
	TargetQuantity    int             `db:"target_quantity" json:"target_quantity"`
	CommittedQuantity int             `db:"committed_quantity" json:"committed_quantity"`
	State             lifecycle.State `db:"state" json:"state"`
	Origin            string          `db:"origin" json:"origin"`
	ImageURL          string          `db:"image_url" json:"image_url,omitempty"`
	TariffImpact      float64         `db:"tariff_impact" json:"tariff_impact"`
	Deadline          *time.Time      `db:"deadline" json:"deadline,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// PastDeadline reports whether the deal has a deadline and the given
// instant is after it.
func (d *Deal) PastDeadline(now time.Time) bool {
	return d.Deadline != nil && now.After(*d.Deadline)
}

// ProgressPercentage returns committed quantity as a share of the target,
// rounded to one decimal. It is computed at reporting time and may exceed
// 100 when the commitment that crossed the threshold overshot the target.
func (d *Deal) ProgressPercentage() float64 {
	if d.TargetQuantity <= 0 {
		return 0
	}
	pct := float64(d.CommittedQuantity) / float64(d.TargetQuantity) * 100
	return float64(int(pct*10+0.5)) / 10
}

// ComputeSavings derives the savings percentage from a retail/group price
// pair, rounded to two decimals. Pricing validation guarantees the result
// is never negative.
func ComputeSavings(retail, group decimal.Decimal) float64 {
	if retail.IsZero() {
		return 0
	}
	savings, _ := retail.Sub(group).
		Div(retail).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return savings
}

// Commitment statuses (buyer-facing sub-lifecycle, independent of the deal
// lifecycle).
const (
	CommitmentStatusPending   = "PENDING"
	CommitmentStatusConfirmed = "CONFIRMED"
	CommitmentStatusCompleted = "COMPLETED"
	CommitmentStatusCancelled = "CANCELLED"
)

// Commitment is a single buyer pledge against a deal. Rows are append-only:
// after creation only the status may change, never the quantity, the locked
// price or the deal reference.
type Commitment struct {
	ID             int64           `db:"id" json:"id"`
	DealID         int64           `db:"deal_id" json:"deal_id"`
	BuyerEmail     string          `db:"buyer_email" json:"buyer_email"`
	Quantity       int             `db:"quantity" json:"quantity"`
	PriceLocked    decimal.Decimal `db:"price_locked" json:"price_locked"`
	Status         string          `db:"status" json:"status"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
