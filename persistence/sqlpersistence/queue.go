package sqlpersistence

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// QueueDriver is the subset of the Driver interface that is concerned with the
// message queue subsystem.
type QueueDriver interface {
	// InsertQueueItem inserts an item in the queue.
	//
	// It returns false if the row already exists.
	InsertQueueItem(
		ctx context.Context,
		tx *sql.Tx,
		item persistence.QueueItem,
	) (bool, error)

	// UpdateQueueItem updates meta-data about an item that is already on the
	// queue, releasing any lease held on it.
	//
	// It returns false if the row does not exist or item.Revision is not
	// current.
	UpdateQueueItem(
		ctx context.Context,
		tx *sql.Tx,
		item persistence.QueueItem,
	) (bool, error)

	// DeleteQueueItem deletes an item from the queue.
	//
	// It returns false if the row does not exist or item.Revision is not
	// current.
	DeleteQueueItem(
		ctx context.Context,
		tx *sql.Tx,
		item persistence.QueueItem,
	) (bool, error)

	// ReleaseQueueLease clears the lease on an item without otherwise
	// modifying it. It is not an error if the row does not exist.
	ReleaseQueueLease(
		ctx context.Context,
		tx *sql.Tx,
		id string,
	) error

	// AcquireQueueItems atomically claims up to n items that are due for
	// processing, recording a lease held by owner that lapses at the expires
	// time.
	AcquireQueueItems(
		ctx context.Context,
		db *sql.DB,
		n int,
		owner string,
		now, expires time.Time,
	) ([]persistence.QueueItem, error)
}

// AcquireQueueItems claims up to n items that are due for processing.
func (ds *dataStore) AcquireQueueItems(
	ctx context.Context,
	n int,
	owner string,
	ttl time.Duration,
) ([]persistence.QueueItem, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	now := time.Now()

	items, err := ds.driver.AcquireQueueItems(
		ctx,
		ds.db,
		n,
		owner,
		now,
		now.Add(ttl),
	)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].NextAttemptAt.Before(items[j].NextAttemptAt)
	})

	return items, nil
}

// VisitSaveQueueItem applies the changes in a "SaveQueueItem" operation to the
// database.
func (c *committer) VisitSaveQueueItem(
	ctx context.Context,
	op persistence.SaveQueueItem,
) error {
	fn := c.driver.InsertQueueItem
	if op.Item.Revision > 0 {
		fn = c.driver.UpdateQueueItem
	}

	if ok, err := fn(
		ctx,
		c.tx,
		op.Item,
	); ok || err != nil {
		return err
	}

	return persistence.ConflictError{
		Cause: op,
	}
}

// VisitRemoveQueueItem applies the changes in a "RemoveQueueItem" operation to
// the database.
func (c *committer) VisitRemoveQueueItem(
	ctx context.Context,
	op persistence.RemoveQueueItem,
) error {
	if ok, err := c.driver.DeleteQueueItem(
		ctx,
		c.tx,
		op.Item,
	); ok || err != nil {
		return err
	}

	return persistence.ConflictError{
		Cause: op,
	}
}

// VisitReleaseQueueLease applies the changes in a "ReleaseQueueLease"
// operation to the database.
func (c *committer) VisitReleaseQueueLease(
	ctx context.Context,
	op persistence.ReleaseQueueLease,
) error {
	return c.driver.ReleaseQueueLease(ctx, c.tx, op.ID)
}
