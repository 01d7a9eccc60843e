package boltpersistence

import (
	"context"
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/bboltx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"go.etcd.io/bbolt"
)

// dataStore is an implementation of persistence.DataStore for BoltDB.
type dataStore struct {
	db *bbolt.DB

	m       sync.RWMutex
	release func() error
}

// QueueRepository returns the repository used to read the queue.
func (ds *dataStore) QueueRepository() persistence.QueueRepository {
	return ds
}

// CorrelationRepository returns the repository used to read correlation
// entries.
func (ds *dataStore) CorrelationRepository() persistence.CorrelationRepository {
	return ds
}

// Persist commits a batch of operations atomically.
//
// If any one of the operations causes an optimistic concurrency conflict the
// entire batch is aborted and a ConflictError is returned.
func (ds *dataStore) Persist(
	ctx context.Context,
	b persistence.Batch,
) (err error) {
	b.MustValidate()

	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			c := &committer{tx: tx}
			bboltx.Must(b.AcceptVisitor(ctx, c))
		},
	)

	return nil
}

// Close closes the data store.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	r := ds.release
	ds.db = nil
	ds.release = nil

	return r()
}

// checkOpen returns ErrDataStoreClosed if the data-store has been closed.
//
// It must be called with ds.m held for reading.
func (ds *dataStore) checkOpen() error {
	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	return nil
}

// committer is an implementation of persistence.OperationVisitor that applies
// operations to the database.
type committer struct {
	tx *bbolt.Tx
}
