package ports

import "context"

// Storage is a key/value store partitioned by session.
// Values are opaque text; callers own the encoding.
type Storage interface {
	// GetItem returns the value stored under key for the session.
	// Returns domain.ErrItemNotFound if the key is absent.
	GetItem(ctx context.Context, sessionID, key string) (string, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, sessionID, key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, sessionID, key string) error

	// Clear drops every key of the session. This is how a session ends.
	Clear(ctx context.Context, sessionID string) error
}

// Closer is implemented by storages holding external resources.
type Closer interface {
	Close() error
}
