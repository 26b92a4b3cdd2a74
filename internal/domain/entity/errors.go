package entity

import "errors"

var (
	// ErrInvalidTransfer marks every input-shape rejection at the ingestion boundary.
	ErrInvalidTransfer = errors.New("invalid transfer")

	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidAmount    = errors.New("amount is not a decimal number")
	ErrInvalidTimestamp = errors.New("timestamp is required")
	ErrMissingField     = errors.New("missing required field")

	// ErrNotFound is returned by repositories when a lookup has no result.
	ErrNotFound = errors.New("not found")
)
