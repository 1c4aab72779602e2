package core

import "errors"

// Failure taxonomy of the client layer. Callers match with errors.Is; the
// underlying cause stays reachable through wrapping.
var (
	// ErrFetch: load or refresh failed, the collection is left as last-known-good.
	ErrFetch = errors.New("fetch failed")
	// ErrSubmission: create failed, nothing was inserted locally.
	ErrSubmission = errors.New("submission failed")
	// ErrInvalidTransition: the record is not pending.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrActionInProgress: another action holds the record's lock.
	ErrActionInProgress = errors.New("action already in progress")
	// ErrActionFailed: the remote rejected the status change, local state unchanged.
	ErrActionFailed = errors.New("status change failed")
	// ErrPrediction: the prediction service is unavailable.
	ErrPrediction = errors.New("category prediction unavailable")
	// ErrPredictionInput: title or amount missing.
	ErrPredictionInput = errors.New("title and amount are required for prediction")

	ErrNotFound       = errors.New("expense not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbiddenScope = errors.New("scope not allowed for role")
)
