package dispatch

import "errors"

var (
	// Ownership errors.
	ErrOwnerConflict  = errors.New("dispatch: already claimed by a different owner")
	ErrNotOwner       = errors.New("dispatch: caller does not hold the claimed owner handle")
	ErrAlreadyServing = errors.New("dispatch: serve loop already running")

	// Invocation errors.
	ErrNotServing      = errors.New("dispatch: owner loop is not accepting work")
	ErrQueueFull       = errors.New("dispatch: invocation queue is full")
	ErrDispatchTimeout = errors.New("dispatch: timed out waiting for the owner loop")
	ErrNilOperation    = errors.New("dispatch: operation cannot be nil")
)
