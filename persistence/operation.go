package persistence

import (
	"context"
)

// Operation is a persistence operation that can be performed as part of an
// atomic batch.
type Operation interface {
	// AcceptVisitor calls the appropriate visit method on the given visitor.
	AcceptVisitor(context.Context, OperationVisitor) error

	// entityKey returns a value that identifies the persisted "entity" that
	// the operation manipulates.
	entityKey() entityKey
}

// OperationVisitor visits operations, performing the relevant persistence
// logic for each operation type.
type OperationVisitor interface {
	VisitSaveQueueItem(context.Context, SaveQueueItem) error
	VisitRemoveQueueItem(context.Context, RemoveQueueItem) error
	VisitReleaseQueueLease(context.Context, ReleaseQueueLease) error
	VisitSaveCorrelationItem(context.Context, SaveCorrelationItem) error
	VisitRemoveCorrelationItem(context.Context, RemoveCorrelationItem) error
}

// entityKey uniquely identifies the entity that is affected by an operation.
type entityKey [3]string

// SaveQueueItem is a persistence operation that creates or updates an item on
// the queue.
type SaveQueueItem struct {
	// Item is the item to persist.
	//
	// Item.Revision must be the revision of the item as currently persisted,
	// otherwise an optimistic concurrency conflict occurs and the entire
	// batch of operations is rejected. A revision of zero inserts a new
	// item.
	//
	// Saving an item releases any lease held on it.
	Item QueueItem
}

// AcceptVisitor calls v.VisitSaveQueueItem().
func (op SaveQueueItem) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitSaveQueueItem(ctx, op)
}

func (op SaveQueueItem) entityKey() entityKey {
	return entityKey{"queue", op.Item.ID}
}

// RemoveQueueItem is a persistence operation that removes an item from the
// queue.
type RemoveQueueItem struct {
	// Item is the item to remove.
	//
	// Item.Revision must be the revision of the item as currently persisted,
	// otherwise an optimistic concurrency conflict occurs and the entire
	// batch of operations is rejected.
	Item QueueItem
}

// AcceptVisitor calls v.VisitRemoveQueueItem().
func (op RemoveQueueItem) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitRemoveQueueItem(ctx, op)
}

func (op RemoveQueueItem) entityKey() entityKey {
	return entityKey{"queue", op.Item.ID}
}

// ReleaseQueueLease is a persistence operation that releases the lease on a
// queue item without modifying it otherwise, making the item claimable again
// immediately.
//
// It does not perform an optimistic concurrency check, and it is not an error
// if the item no longer exists. It is used during crash-recovery cleanup.
type ReleaseQueueLease struct {
	// ID is the ID of the leased item.
	ID string
}

// AcceptVisitor calls v.VisitReleaseQueueLease().
func (op ReleaseQueueLease) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitReleaseQueueLease(ctx, op)
}

func (op ReleaseQueueLease) entityKey() entityKey {
	return entityKey{"queue", op.ID}
}

// SaveCorrelationItem is a persistence operation that parks one half of a
// correlation rendezvous.
//
// Any item already parked under the same key and kind is replaced. If an item
// of the opposite kind is parked under the same key a conflict occurs and the
// entire batch of operations is rejected; at most one half of a rendezvous is
// ever parked under a key.
type SaveCorrelationItem struct {
	// Item is the item to park.
	Item CorrelationItem
}

// AcceptVisitor calls v.VisitSaveCorrelationItem().
func (op SaveCorrelationItem) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitSaveCorrelationItem(ctx, op)
}

func (op SaveCorrelationItem) entityKey() entityKey {
	return entityKey{"correlation", op.Item.Key, string(op.Item.Kind)}
}

// RemoveCorrelationItem is a persistence operation that removes a parked
// correlation item.
//
// If no item is parked under the item's key and kind a conflict occurs and
// the entire batch of operations is rejected.
type RemoveCorrelationItem struct {
	// Item is the item to remove. Only its key and kind are significant.
	Item CorrelationItem
}

// AcceptVisitor calls v.VisitRemoveCorrelationItem().
func (op RemoveCorrelationItem) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitRemoveCorrelationItem(ctx, op)
}

func (op RemoveCorrelationItem) entityKey() entityKey {
	return entityKey{"correlation", op.Item.Key, string(op.Item.Kind)}
}
