package service

import (
	"context"

	"groupbuy-service/internal/models"
)

// EventSink is the slice of the broker publisher the services depend on.
// A nil sink is valid; publishing is best-effort and never gates the
// ledger write.
type EventSink interface {
	PublishDealEvent(ctx context.Context, eventType string, deal *models.Deal) error
	PublishCommitmentAccepted(ctx context.Context, c *models.Commitment, deal *models.Deal) error
	PublishCommitmentCancelled(ctx context.Context, c *models.Commitment, committed int) error
}
