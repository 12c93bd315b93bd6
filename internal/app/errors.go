package service

import "errors"

// Sentinel kinds returned by the service. The HTTP layer maps them to status codes.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrOfflineDisabled    = errors.New("offline mode disabled")
	ErrInvalidRole        = errors.New("Invalid role")
	ErrEmailExists        = errors.New("Email exists")
	ErrDeviceExists       = errors.New("device exists")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrStoreUnavailable   = errors.New("database not configured")
)
