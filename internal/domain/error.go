package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrUnauthorized        = errors.New("not allowed")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrRateLimited         = errors.New("rate limited by remote store")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyFinalized    = errors.New("withdrawal already finalized")
)
