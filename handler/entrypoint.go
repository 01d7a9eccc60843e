package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger/backoff"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/mlog"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/queue"
)

// EntryPoint routes parcels to the stage handler registered for their
// channel, and guarantees that every failure terminates the process with an
// explicit result.
//
// It is the listener through which all non-terminal channels are consumed,
// both from the bus and from the queue. A parcel that fails with a
// retriable error is enqueued for a delayed retry; one that fails fatally is
// abandoned, which publishes a terminal error record on the RESULT channel.
type EntryPoint struct {
	// Routes maps each channel to its stage handler.
	Routes map[process.Channel]bus.Listener

	// Queue is the queue that failed parcels are enqueued on for retry.
	Queue *queue.Queue

	// Packer is used to pack terminal records into parcels when a process
	// is abandoned.
	Packer *process.Packer

	// Bus is the bus that terminal parcels are sent on.
	Bus *bus.Bus

	// BackoffStrategy is the strategy used to delay the first retry of a
	// failed parcel. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// Logger is the target for log messages about the parcels being
	// dispatched.
	Logger logging.Logger
}

// HandleMessage dispatches p to the stage handler for its channel,
// converting any failure into a queued retry or an abandoned process.
//
// It never returns an error; a parcel that enters the entry point always
// leaves it resolved one way or another.
func (e *EntryPoint) HandleMessage(ctx context.Context, p process.Parcel) error {
	mlog.LogConsume(e.Logger, p, 0)

	err := e.Dispatch(ctx, p)
	if err == nil {
		return nil
	}

	if connector.IsFatal(err) {
		e.Abandon(ctx, p, err)
		return nil
	}

	delay := e.strategy()(err, 0)
	mlog.LogNack(e.Logger, p, err, delay)

	if qerr := e.Queue.Enqueue(ctx, p, 1, time.Now().Add(delay)); qerr != nil {
		// The retry can not be persisted. Abandoning is the only remaining
		// way to keep the trace from vanishing silently.
		e.Abandon(ctx, p, qerr)
	}

	return nil
}

// Dispatch routes p to the stage handler for its channel and returns the
// handler's error verbatim.
//
// It is used by the queue consumer, which makes its own retry decisions.
func (e *EntryPoint) Dispatch(ctx context.Context, p process.Parcel) error {
	l, ok := e.Routes[p.Channel]
	if !ok {
		return fmt.Errorf("no handler is registered for channel %s", p.Channel)
	}

	return l.HandleMessage(ctx, p)
}

// Abandon gives up on p, terminating its process with an explicit error
// record on the RESULT channel.
//
// A data-reference parcel has no process of its own; abandoning one only
// logs the loss.
func (e *EntryPoint) Abandon(ctx context.Context, p process.Parcel, cause error) {
	mlog.LogAbandon(e.Logger, p, cause)

	rec := p.Record
	if rec == nil {
		return
	}

	if !rec.IsTerminal() {
		rec.Fail(http.StatusBadGateway, "%s", cause)
	}

	e.Bus.Send(ctx, e.Packer.PackNext(p, process.ChannelResult))
}

func (e *EntryPoint) strategy() backoff.Strategy {
	if e.BackoffStrategy != nil {
		return e.BackoffStrategy
	}

	return backoff.DefaultStrategy
}
