package memorypersistence

import (
	"context"
	"sync"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// dataStore is an implementation of persistence.DataStore backed by in-process
// memory.
type dataStore struct {
	db *database

	m      sync.Mutex
	closed bool
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
func (ds *dataStore) Persist(ctx context.Context, b persistence.Batch) error {
	b.MustValidate()

	if err := ds.checkOpen(); err != nil {
		return err
	}

	ds.db.m.Lock()
	defer ds.db.m.Unlock()

	v := &validator{db: ds.db}
	for _, op := range b {
		if err := op.AcceptVisitor(ctx, v); err != nil {
			return err
		}
	}

	c := &committer{db: ds.db}
	for _, op := range b {
		if err := op.AcceptVisitor(ctx, c); err != nil {
			// The validator has already authorized every operation in the
			// batch, so the committer can not fail.
			panic(err)
		}
	}

	return nil
}

// Close closes the data store.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.closed {
		return persistence.ErrDataStoreClosed
	}

	ds.closed = true

	return nil
}

func (ds *dataStore) checkOpen() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.closed {
		return persistence.ErrDataStoreClosed
	}

	return nil
}

// validator is an OperationVisitor that verifies that each operation in a
// batch can be applied without a conflict. It does not modify the database.
type validator struct {
	db *database
}

func (v *validator) VisitSaveQueueItem(
	_ context.Context,
	op persistence.SaveQueueItem,
) error {
	existing, ok := v.db.queue[op.Item.ID]

	var rev uint64
	if ok {
		rev = existing.Revision
	}

	if op.Item.Revision != rev {
		return persistence.ConflictError{Cause: op}
	}

	return nil
}

func (v *validator) VisitRemoveQueueItem(
	_ context.Context,
	op persistence.RemoveQueueItem,
) error {
	existing, ok := v.db.queue[op.Item.ID]

	if !ok || op.Item.Revision != existing.Revision {
		return persistence.ConflictError{Cause: op}
	}

	return nil
}

func (v *validator) VisitReleaseQueueLease(
	context.Context,
	persistence.ReleaseQueueLease,
) error {
	return nil
}

func (v *validator) VisitSaveCorrelationItem(
	_ context.Context,
	op persistence.SaveCorrelationItem,
) error {
	if _, ok := v.db.correlations[correlationKey{
		key:  op.Item.Key,
		kind: op.Item.Kind.Opposite(),
	}]; ok {
		return persistence.ConflictError{Cause: op}
	}

	return nil
}

func (v *validator) VisitRemoveCorrelationItem(
	_ context.Context,
	op persistence.RemoveCorrelationItem,
) error {
	if _, ok := v.db.correlations[correlationKey{
		key:  op.Item.Key,
		kind: op.Item.Kind,
	}]; !ok {
		return persistence.ConflictError{Cause: op}
	}

	return nil
}

// committer is an OperationVisitor that applies operations to the database.
//
// It is expected that the operations have already been authorized by a
// validator.
type committer struct {
	db *database
}

func (c *committer) VisitSaveQueueItem(
	_ context.Context,
	op persistence.SaveQueueItem,
) error {
	item := op.Item
	item.Revision++
	item.LeaseOwner = ""
	item.LeaseExpiresAt = time.Time{}

	c.db.queue[item.ID] = item

	return nil
}

func (c *committer) VisitRemoveQueueItem(
	_ context.Context,
	op persistence.RemoveQueueItem,
) error {
	delete(c.db.queue, op.Item.ID)
	return nil
}

func (c *committer) VisitReleaseQueueLease(
	_ context.Context,
	op persistence.ReleaseQueueLease,
) error {
	item, ok := c.db.queue[op.ID]
	if !ok {
		return nil
	}

	item.LeaseOwner = ""
	item.LeaseExpiresAt = time.Time{}
	c.db.queue[op.ID] = item

	return nil
}

func (c *committer) VisitSaveCorrelationItem(
	_ context.Context,
	op persistence.SaveCorrelationItem,
) error {
	c.db.correlations[correlationKey{
		key:  op.Item.Key,
		kind: op.Item.Kind,
	}] = op.Item

	return nil
}

func (c *committer) VisitRemoveCorrelationItem(
	_ context.Context,
	op persistence.RemoveCorrelationItem,
) error {
	delete(c.db.correlations, correlationKey{
		key:  op.Item.Key,
		kind: op.Item.Kind,
	})

	return nil
}
