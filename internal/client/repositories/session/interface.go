package session

import "context"

// Store persists session values (access and refresh tokens) across
// restarts. It has no expiry logic of its own.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// BatchStore is implemented by stores that can write several keys atomically.
type BatchStore interface {
	Store
	SetAll(ctx context.Context, values map[string]string) error
}
