package notify

import "errors"

var (
	// ErrNotify wraps every sink failure. Callers log it and move on.
	ErrNotify = errors.New("notification failed")

	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)
