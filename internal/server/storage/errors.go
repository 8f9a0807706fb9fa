package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that record was not found for the owner
	ErrRecordNotFound = errors.New("record not found")

	// ErrOwnershipConflict indicates that record with this id belongs to another user
	ErrOwnershipConflict = errors.New("record belongs to another user")

	// ErrUnknownTable indicates that table is not one of the synchronized tables
	ErrUnknownTable = errors.New("unknown table")

	// ErrMissingID indicates that record has no id
	ErrMissingID = errors.New("record has no id")

	// ErrMissingOwner indicates that record has no user_id
	ErrMissingOwner = errors.New("record has no user_id")
)
