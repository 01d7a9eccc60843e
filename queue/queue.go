// Package queue provides the durable queue that allows parcels to be retried
// with a delay and to survive process restarts.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Queue enqueues parcels for later dispatch by a Consumer.
type Queue struct {
	// DataStore is the data-store that the queue is persisted in.
	DataStore persistence.DataStore

	// Marshaler is used to marshal parcels for storage.
	Marshaler marshalkit.ValueMarshaler
}

// Enqueue durably stores p for dispatch at or after next.
//
// fc is the number of times p has already failed to be handled. Enqueueing a
// parcel that is already on the queue has no effect.
func (q *Queue) Enqueue(
	ctx context.Context,
	p process.Parcel,
	fc uint,
	next time.Time,
) error {
	packet, err := process.MarshalParcel(q.Marshaler, p)
	if err != nil {
		return err
	}

	err = q.DataStore.Persist(
		ctx,
		persistence.Batch{
			persistence.SaveQueueItem{
				Item: persistence.QueueItem{
					ID:            p.MessageID,
					Channel:       p.Channel,
					FailureCount:  fc,
					CreatedAt:     time.Now(),
					NextAttemptAt: next,
					Packet:        packet,
				},
			},
		},
	)

	// A conflict on a zero-revision save means an item with this message ID
	// is already queued, which satisfies the caller's intent.
	var conflict persistence.ConflictError
	if errors.As(err, &conflict) {
		return nil
	}

	return err
}
