// Package session issues and resolves bearer tokens.
package session

import (
	"context"
	"time"
)

// Session is what a bearer token resolves to.
type Session struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// Store issues and resolves tokens.
type Store interface {
	// Issue creates a new token for s that expires after the store's TTL.
	Issue(ctx context.Context, s Session) (string, error)
	// Lookup resolves a token. Returns ErrUnknownToken when absent or expired.
	Lookup(ctx context.Context, token string) (Session, error)
	// Revoke deletes a token. Unknown tokens are ignored.
	Revoke(ctx context.Context, token string) error
}

const defaultTTL = time.Hour
