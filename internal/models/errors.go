package models

import "errors"

// Error taxonomy returned by the coordinator and registry. Callers match
// with errors.Is; the transport layer translates them to response codes.
var (
	ErrDealNotFound       = errors.New("deal not found")
	ErrCommitmentNotFound = errors.New("commitment not found")
	ErrDealNotOpen        = errors.New("deal is not open for commitments")
	ErrDealExpired        = errors.New("deal deadline has passed")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidPricing     = errors.New("group price must be positive and not exceed retail price")
	ErrAlreadyCancelled   = errors.New("commitment already cancelled")
	ErrConflict           = errors.New("concurrent update conflict")
	ErrPersistence        = errors.New("persistence failure")
)
