package domain

import "context"

// ObjectStore is a remote bucket reached with already resolved credentials.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Put stores data under key in a single request and returns the
	// canonical location of the object.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Name() string
}

// Notifier delivers a short text message about a run.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
