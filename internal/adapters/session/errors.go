package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrUnknownToken = errors.New("unknown or expired token")
)
