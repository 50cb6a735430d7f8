package apiclient

import "errors"

var (
	// ErrServiceUnavailable is returned when the API service is unavailable (HTTP 5xx, timeout)
	ErrServiceUnavailable = errors.New("api service unavailable")

	// ErrBadRequest is returned when the API rejected the delivery (HTTP 400, 413)
	ErrBadRequest = errors.New("bad request")
)
