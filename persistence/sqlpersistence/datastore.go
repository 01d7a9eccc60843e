package sqlpersistence

import (
	"context"
	"database/sql"
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// dataStore is an implementation of persistence.DataStore for SQL databases.
type dataStore struct {
	db     *sql.DB
	driver Driver

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
) error {
	b.MustValidate()

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return err
	}

	tx, err := ds.driver.Begin(ctx, ds.db)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	c := &committer{
		driver: ds.driver,
		tx:     tx,
	}

	if err := b.AcceptVisitor(ctx, c); err != nil {
		return err
	}

	return tx.Commit()
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
	ds.driver = nil
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
	driver Driver
	tx     *sql.Tx
}
