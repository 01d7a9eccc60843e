// Package result reunites callers blocked in synchronous requests with the
// terminal records produced asynchronously on their behalf.
package result

import (
	"context"
	"fmt"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Exchange delivers terminal records to the callers waiting for them, keyed
// by trace ID.
//
// A caller registers its interest with Expect() before the parcel that will
// eventually produce the result is sent, then blocks in Pull(). Results
// published for a trace ID that no caller is waiting on are discarded.
//
// The zero-value is ready for use.
type Exchange struct {
	// Logger is the target for messages about discarded results.
	Logger logging.Logger

	m       sync.Mutex
	waiters map[string]chan *process.Record
}

// Expect registers the calling goroutine's interest in the result of the
// process identified by traceID.
//
// It must be called before the parcel that produces the result is sent, so
// that a result produced synchronously is not lost. Every call to Expect()
// must be paired with a call to Pull() with the same trace ID.
func (e *Exchange) Expect(traceID string) {
	e.m.Lock()
	defer e.m.Unlock()

	if e.waiters == nil {
		e.waiters = map[string]chan *process.Record{}
	}

	e.waiters[traceID] = make(chan *process.Record, 1)
}

// Publish delivers r to the caller waiting on the process identified by
// traceID.
//
// If no caller is waiting, or a result has already been published for this
// trace ID, r is discarded.
func (e *Exchange) Publish(traceID string, r *process.Record) {
	e.m.Lock()
	w, ok := e.waiters[traceID]
	e.m.Unlock()

	if !ok {
		logging.Debug(
			e.Logger,
			"discarded result of trace %s, no caller is waiting",
			traceID,
		)
		return
	}

	select {
	case w <- r:
	default:
		logging.Debug(
			e.Logger,
			"discarded duplicate result of trace %s",
			traceID,
		)
	}
}

// Pull blocks until the result of the process identified by traceID is
// published, or ctx is canceled.
//
// Expect() must have been called with the same trace ID. Pull always removes
// the registration before returning, whether or not a result was obtained;
// results published after that are discarded.
func (e *Exchange) Pull(ctx context.Context, traceID string) (*process.Record, error) {
	e.m.Lock()
	w, ok := e.waiters[traceID]
	e.m.Unlock()

	if !ok {
		return nil, fmt.Errorf("no result is expected for trace %s", traceID)
	}

	defer func() {
		e.m.Lock()
		delete(e.waiters, traceID)
		e.m.Unlock()
	}()

	select {
	case r := <-w:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleMessage publishes the record carried by a RESULT parcel.
//
// It allows the exchange to be subscribed directly to the RESULT channel of
// a bus.
func (e *Exchange) HandleMessage(_ context.Context, p process.Parcel) error {
	if p.Record == nil {
		return fmt.Errorf("parcel %s does not carry a record", p.MessageID)
	}

	e.Publish(p.TraceID, p.Record)
	return nil
}
