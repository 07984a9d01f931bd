package tokenstore

import (
	"context"
	"errors"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks.go -package=tokenstore

var ErrUnknownUser = errors.New("user not authorized or token missing")

// TokenRecord holds one user's provider tokens. Re-authorization overwrites
// the whole record, partial fields are never merged.
type TokenRecord struct {
	UserID       string `json:"-"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store persists the user id -> token record mapping.
type Store interface {
	// Load restores the mapping from durable storage. Total absence of
	// storage yields an empty mapping, not an error.
	Load(ctx context.Context) error
	// Save writes the full mapping back to durable storage.
	Save(ctx context.Context) error
	// Get returns the record for the given user id, or ErrUnknownUser.
	Get(ctx context.Context, userID string) (TokenRecord, error)
	// Put stores the record wholesale and persists the mapping.
	Put(ctx context.Context, record TokenRecord) error
	// All returns the user ids present in the store.
	All(ctx context.Context) ([]string, error)
}
