package ports

import (
	"context"
)

// SessionStore persists the serialized session record under a fixed key.
// It plays the role of the browser's local storage.
type SessionStore interface {
	// Load returns the stored value, or (nil, nil) when nothing is stored.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the value stored under key.
	Save(ctx context.Context, key string, value []byte) error

	// Clear removes the key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}
