package models

import "time"

// Event types
const (
	EventTypeDealCreated         = "DEAL_CREATED"
	EventTypeDealApproved        = "DEAL_APPROVED"
	EventTypeDealFulfilled       = "DEAL_FULFILLED"
	EventTypeDealExpired         = "DEAL_EXPIRED"
	EventTypeDealClosed          = "DEAL_CLOSED"
	EventTypeCommitmentAccepted  = "COMMITMENT_ACCEPTED"
	EventTypeCommitmentCancelled = "COMMITMENT_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// DealEvent is published on every deal lifecycle change.
type DealEvent struct {
	BaseEvent
	DealID   int64  `json:"deal_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	State    string `json:"state"`
	Origin   string `json:"origin"`
}

// CommitmentAcceptedEvent is published after a commitment has been durably
// appended to the ledger.
type CommitmentAcceptedEvent struct {
	BaseEvent
	CommitmentID      int64  `json:"commitment_id"`
	DealID            int64  `json:"deal_id"`
	BuyerEmail        string `json:"buyer_email"`
	Quantity          int    `json:"quantity"`
	PriceLocked       string `json:"price_locked"`
	CommittedQuantity int    `json:"committed_quantity"`
	TargetQuantity    int    `json:"target_quantity"`
	Fulfilled         bool   `json:"fulfilled"`
}

// CommitmentCancelledEvent is published after a cancellation has been
// applied to the ledger and the deal aggregate.
type CommitmentCancelledEvent struct {
	BaseEvent
	CommitmentID      int64 `json:"commitment_id"`
	DealID            int64 `json:"deal_id"`
	Quantity          int   `json:"quantity"`
	CommittedQuantity int   `json:"committed_quantity"`
}
