package persistence

import (
	"context"
)

// Provider is an interface used by the adapter to open its data-store.
type Provider interface {
	// Open returns the data-store.
	Open(ctx context.Context) (DataStore, error)
}
