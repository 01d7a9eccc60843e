// Package memorypersistence implements the persistence interfaces using
// in-process memory.
//
// It provides no durability and no cross-process sharing. It is intended for
// tests and for single-process deployments that can tolerate losing queued
// work on restart.
package memorypersistence

import (
	"context"
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// Provider is an implementation of persistence.Provider that stores data in
// memory.
type Provider struct {
	m  sync.Mutex
	db *database
}

// Open returns the data-store.
//
// All data-stores opened from the same provider share the same data,
// simulating the behavior of multiple workers sharing a durable store.
func (p *Provider) Open(ctx context.Context) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		p.db = newDatabase()
	}

	return &dataStore{db: p.db}, nil
}
