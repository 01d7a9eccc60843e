package persistence

import (
	"context"
	"time"

	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// QueueItem is a unit of work persisted on the queue.
type QueueItem struct {
	// ID is a unique identifier for the item, equal to the message ID of the
	// parcel it contains.
	ID string

	// Channel is the channel the contained parcel is dispatched on when the
	// item is processed.
	Channel process.Channel

	// FailureCount is the number of times processing of this item has
	// failed.
	FailureCount uint

	// CreatedAt is the time at which the item was first enqueued.
	CreatedAt time.Time

	// NextAttemptAt is the earliest time at which the item may be claimed
	// for processing.
	NextAttemptAt time.Time

	// LeaseOwner identifies the worker that currently holds a claim on the
	// item. It is empty if the item is unclaimed.
	LeaseOwner string

	// LeaseExpiresAt is the time at which the current lease lapses, making
	// the item claimable again even if its owner never released it.
	LeaseExpiresAt time.Time

	// Revision is the item's version, used to enforce optimistic concurrency
	// control. It is zero for an item that has not been persisted.
	//
	// Acquiring a lease increments the revision, so a worker whose lease has
	// expired can no longer modify the item once another worker has claimed
	// it.
	Revision uint64

	// Packet is the marshaled parcel.
	Packet marshalkit.Packet
}

// QueueRepository is an interface for reading and claiming queued items.
type QueueRepository interface {
	// AcquireQueueItems claims up to n items that are due for processing.
	//
	// An item is due if its next-attempt time has passed and it is not
	// claimed by another worker with an unexpired lease. Each returned item
	// carries a lease held by owner that lapses after ttl. No other caller,
	// in this process or any other sharing the same store, can claim the
	// same item until the lease is released or expires.
	AcquireQueueItems(
		ctx context.Context,
		n int,
		owner string,
		ttl time.Duration,
	) ([]QueueItem, error)
}
