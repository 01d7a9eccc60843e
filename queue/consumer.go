package queue

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/mlog"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/semaphore"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLeaseTTL is the default duration of the lease acquired on each
	// claimed item.
	DefaultLeaseTTL = 1 * time.Minute

	// DefaultPollInterval is the default duration the consumer waits before
	// polling the queue again when no items were due.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultBatchSize is the number of items claimed per poll when the
	// consumer's semaphore does not impose a limit.
	DefaultBatchSize = 10
)

// Handler dispatches parcels claimed from the queue.
type Handler interface {
	// Dispatch routes a parcel to the stage handler for its channel.
	Dispatch(ctx context.Context, p process.Parcel) error

	// Abandon gives up on a parcel that can not be handled, terminating its
	// process with an explicit error.
	Abandon(ctx context.Context, p process.Parcel, cause error)
}

// Consumer claims due items from the queue in order to dispatch them.
//
// Multiple consumers, in the same process or in separate processes sharing a
// data-store, may run concurrently; leasing ensures that no item is
// dispatched by more than one of them at a time.
type Consumer struct {
	// DataStore is the data-store that the queue is persisted in.
	DataStore persistence.DataStore

	// Marshaler is used to unmarshal stored parcels.
	Marshaler marshalkit.ValueMarshaler

	// Handler is the target for the parcels claimed from the queue.
	Handler Handler

	// Semaphore is used to limit the number of parcels being dispatched
	// concurrently.
	Semaphore semaphore.Semaphore

	// BackoffStrategy is the strategy used to delay individual parcels after
	// a failure. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// RetryLimit is the number of failures after which a parcel is abandoned
	// instead of retried.
	RetryLimit uint

	// LeaseTTL is the duration of the lease acquired on each claimed item.
	// If a consumer crashes, its leases lapse after this duration and the
	// items become claimable again. If it is zero, DefaultLeaseTTL is used.
	LeaseTTL time.Duration

	// PollInterval is the duration the consumer waits before polling the
	// queue again when no items were due. If it is zero,
	// DefaultPollInterval is used.
	PollInterval time.Duration

	// IsFatal is an optional predicate that reports whether an error can
	// not be resolved by retrying. A parcel that fails with a fatal error
	// is abandoned immediately, regardless of its failure count.
	IsFatal func(error) bool

	// Logger is the target for log messages about the parcels being
	// dispatched.
	Logger logging.Logger

	owner string
	group *errgroup.Group
}

// Run dispatches queued parcels until an error occurs or ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.owner = uuid.NewString()
	c.group, ctx = errgroup.WithContext(ctx)

	c.group.Go(func() error {
		return c.consume(ctx)
	})

	<-ctx.Done()
	return c.group.Wait()
}

// consume polls the queue for due items and starts a goroutine to dispatch
// each claimed item. It waits for c.Semaphore before starting each goroutine.
func (c *Consumer) consume(ctx context.Context) error {
	logging.Debug(
		c.Logger,
		"consuming queued parcels as %s",
		c.owner,
	)

	failures := &backoff.Counter{
		Strategy: c.BackoffStrategy,
	}

	for {
		items, err := c.DataStore.QueueRepository().AcquireQueueItems(
			ctx,
			c.batchSize(),
			c.owner,
			linger.MustCoalesce(c.LeaseTTL, DefaultLeaseTTL),
		)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logging.Log(
				c.Logger,
				"unable to claim queued parcels: %s",
				err,
			)

			if err := failures.Sleep(ctx, err); err != nil {
				return err
			}

			continue
		}

		failures.Reset()

		for _, item := range items {
			if err := c.Semaphore.Acquire(ctx); err != nil {
				return err
			}

			item := item // capture loop variable

			c.group.Go(func() error {
				defer c.Semaphore.Release()
				return c.dispatch(ctx, item)
			})
		}

		if len(items) == 0 {
			if err := linger.Sleep(
				ctx,
				linger.MustCoalesce(c.PollInterval, DefaultPollInterval),
			); err != nil {
				return err
			}
		}
	}
}

// dispatch handles a single claimed item, then removes or reschedules it as
// appropriate.
func (c *Consumer) dispatch(ctx context.Context, item persistence.QueueItem) error {
	p, err := process.UnmarshalParcel(c.Marshaler, item.Packet)
	if err != nil {
		logging.Log(
			c.Logger,
			"removing queue item %s, its parcel can not be unmarshaled: %s",
			item.ID,
			err,
		)

		return c.remove(ctx, item)
	}

	mlog.LogConsume(c.Logger, p, item.FailureCount)

	err = c.Handler.Dispatch(ctx, p)
	if err == nil {
		return c.remove(ctx, item)
	}

	if c.isFatal(err) || item.FailureCount+1 >= c.RetryLimit {
		c.Handler.Abandon(ctx, p, err)
		return c.remove(ctx, item)
	}

	delay := c.strategy()(err, item.FailureCount)
	mlog.LogNack(c.Logger, p, err, delay)

	item.FailureCount++
	item.NextAttemptAt = time.Now().Add(delay)

	return c.persist(
		ctx,
		item,
		persistence.SaveQueueItem{Item: item},
	)
}

// remove deletes an item whose parcel has been dispatched, abandoned or
// discarded.
func (c *Consumer) remove(ctx context.Context, item persistence.QueueItem) error {
	return c.persist(
		ctx,
		item,
		persistence.RemoveQueueItem{Item: item},
	)
}

// persist commits op, tolerating the conflict that occurs when this
// consumer's lease lapsed mid-dispatch and the item was claimed by another
// consumer.
func (c *Consumer) persist(
	ctx context.Context,
	item persistence.QueueItem,
	op persistence.Operation,
) error {
	err := c.DataStore.Persist(
		ctx,
		persistence.Batch{op},
	)

	var conflict persistence.ConflictError
	if errors.As(err, &conflict) {
		logging.Log(
			c.Logger,
			"lost the lease on queue item %s, another consumer has claimed it",
			item.ID,
		)

		return nil
	}

	return err
}

func (c *Consumer) batchSize() int {
	if n := c.Semaphore.Limit(); n != 0 {
		return n
	}

	return DefaultBatchSize
}

func (c *Consumer) strategy() backoff.Strategy {
	if c.BackoffStrategy != nil {
		return c.BackoffStrategy
	}

	return backoff.DefaultStrategy
}

func (c *Consumer) isFatal(err error) bool {
	return c.IsFatal != nil && c.IsFatal(err)
}
