package domain

import "errors"

var (
	// ErrInvalidInput is returned for missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoData is returned when a well-formed query matches zero rows.
	ErrNoData = errors.New("no data")
	// ErrEmptyAttemptSet is returned when a score is requested over zero attempts.
	ErrEmptyAttemptSet = errors.New("empty attempt set")
	// ErrStorageUnavailable wraps transient storage failures. The core never
	// retries; callers decide.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNameTaken is returned by a store when a concurrent insert lost the
	// unique-name race. The identity resolver retries the lookup once.
	ErrNameTaken = errors.New("user name already taken")
)
