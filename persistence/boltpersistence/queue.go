package boltpersistence

import (
	"bytes"
	"context"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/bboltx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"go.etcd.io/bbolt"
)

var (
	// queueBucketKey is the key for the root bucket for the message queue.
	queueBucketKey = []byte("queue")

	// queueItemsBucketKey is the key for a child bucket that contains each
	// queued item.
	//
	// The keys are the item IDs. The values are queueItemRecord values
	// marshaled as JSON.
	queueItemsBucketKey = []byte("items")

	// queueOrderBucketKey is the key for a child bucket that is used to index
	// the queued items by their next-attempt time.
	//
	// The keys are the next-attempt time, marshaled via marshalOrderKey().
	// The values are buckets indicating which items are due to be attempted
	// at that time.
	//
	// Within this further sub-bucket, the keys are the item IDs, and the
	// values are always nil. This allows representation of multiple items
	// with the same next-attempt time.
	queueOrderBucketKey = []byte("order")
)

// AcquireQueueItems claims up to n items that are due for processing.
func (ds *dataStore) AcquireQueueItems(
	_ context.Context,
	n int,
	owner string,
	ttl time.Duration,
) (_ []persistence.QueueItem, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	now := time.Now()
	expires := now.Add(ttl)

	var result []persistence.QueueItem

	bboltx.Update(
		ds.db,
		func(tx *bbolt.Tx) {
			items, ok := bboltx.TryBucket(
				tx,
				queueBucketKey,
				queueItemsBucketKey,
			)
			if !ok {
				return
			}

			order := bboltx.Bucket(
				tx,
				queueBucketKey,
				queueOrderBucketKey,
			)

			max := marshalOrderKey(now)

			orderCursor := order.Cursor()

			for k, _ := orderCursor.First(); k != nil; k, _ = orderCursor.Next() {
				if bytes.Compare(k, max) > 0 {
					return
				}

				idCursor := order.Bucket(k).Cursor()

				for id, _ := idCursor.First(); id != nil; id, _ = idCursor.Next() {
					rec := unmarshalQueueItemRecord(items.Get(id))

					if rec.LeaseOwner != "" && unmarshalTime(rec.LeaseExpiresAt).After(now) {
						continue
					}

					rec.LeaseOwner = owner
					rec.LeaseExpiresAt = marshalTime(expires)
					rec.Revision++

					bboltx.Put(items, id, marshalQueueItemRecord(rec))

					result = append(result, rec.toItem())

					if len(result) == n {
						return
					}
				}
			}
		},
	)

	return result, nil
}

// VisitSaveQueueItem applies the changes in a "SaveQueueItem" operation to the
// database.
func (c *committer) VisitSaveQueueItem(
	_ context.Context,
	op persistence.SaveQueueItem,
) error {
	items := bboltx.CreateBucketIfNotExists(
		c.tx,
		queueBucketKey,
		queueItemsBucketKey,
	)

	id := []byte(op.Item.ID)
	old := items.Get(id)

	var oldRev uint64
	if old != nil {
		oldRev = unmarshalQueueItemRecord(old).Revision
	}

	if op.Item.Revision != oldRev {
		return persistence.ConflictError{
			Cause: op,
		}
	}

	rec := recordFromItem(op.Item)
	rec.Revision++
	rec.LeaseOwner = ""
	rec.LeaseExpiresAt = 0

	bboltx.Put(items, id, marshalQueueItemRecord(rec))

	if old != nil {
		c.removeQueueOrder(unmarshalQueueItemRecord(old))
	}

	c.saveQueueOrder(rec)

	return nil
}

// VisitRemoveQueueItem applies the changes in a "RemoveQueueItem" operation to
// the database.
func (c *committer) VisitRemoveQueueItem(
	_ context.Context,
	op persistence.RemoveQueueItem,
) error {
	items, ok := bboltx.TryBucket(
		c.tx,
		queueBucketKey,
		queueItemsBucketKey,
	)

	id := []byte(op.Item.ID)

	var old []byte
	if ok {
		old = items.Get(id)
	}

	if old == nil || op.Item.Revision != unmarshalQueueItemRecord(old).Revision {
		return persistence.ConflictError{
			Cause: op,
		}
	}

	bboltx.Delete(items, id)
	c.removeQueueOrder(unmarshalQueueItemRecord(old))

	return nil
}

// VisitReleaseQueueLease applies the changes in a "ReleaseQueueLease"
// operation to the database.
func (c *committer) VisitReleaseQueueLease(
	_ context.Context,
	op persistence.ReleaseQueueLease,
) error {
	items, ok := bboltx.TryBucket(
		c.tx,
		queueBucketKey,
		queueItemsBucketKey,
	)
	if !ok {
		return nil
	}

	id := []byte(op.ID)

	old := items.Get(id)
	if old == nil {
		return nil
	}

	rec := unmarshalQueueItemRecord(old)
	rec.LeaseOwner = ""
	rec.LeaseExpiresAt = 0

	bboltx.Put(items, id, marshalQueueItemRecord(rec))

	return nil
}

// saveQueueOrder adds an item to the order index.
func (c *committer) saveQueueOrder(rec queueItemRecord) {
	bboltx.Put(
		bboltx.CreateBucketIfNotExists(
			c.tx,
			queueBucketKey,
			queueOrderBucketKey,
			marshalOrderKey(unmarshalTime(rec.NextAttemptAt)),
		),
		[]byte(rec.ID),
		nil,
	)
}

// removeQueueOrder removes an item from the order index, removing the
// sub-bucket for its next-attempt time if it becomes empty.
func (c *committer) removeQueueOrder(rec queueItemRecord) {
	k := marshalOrderKey(unmarshalTime(rec.NextAttemptAt))

	order := bboltx.Bucket(
		c.tx,
		queueBucketKey,
		queueOrderBucketKey,
	)

	ids := order.Bucket(k)
	bboltx.Delete(ids, []byte(rec.ID))

	if first, _ := ids.Cursor().First(); first == nil {
		bboltx.Must(order.DeleteBucket(k))
	}
}
