// Package bus provides in-process delivery of parcels to the stage handlers
// subscribed to each channel.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/mlog"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Listener is an interface for handling parcels delivered on a channel.
type Listener interface {
	// HandleMessage handles a parcel delivered to the listener.
	HandleMessage(ctx context.Context, p process.Parcel) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, p process.Parcel) error

// HandleMessage calls fn(ctx, p).
func (fn ListenerFunc) HandleMessage(ctx context.Context, p process.Parcel) error {
	return fn(ctx, p)
}

// Bus delivers parcels to the listeners subscribed to each channel.
//
// Delivery is synchronous. A failure in one listener does not prevent
// delivery to the remaining listeners, and is never propagated to the
// sender; reliability across failures is the queue's concern, not the
// bus's.
//
// The zero-value is ready for use.
type Bus struct {
	// Logger is the target for messages about listener failures.
	Logger logging.Logger

	m         sync.RWMutex
	listeners map[process.Channel][]Listener
}

// AddListener subscribes l to parcels sent on ch.
func (b *Bus) AddListener(ch process.Channel, l Listener) {
	b.m.Lock()
	defer b.m.Unlock()

	if b.listeners == nil {
		b.listeners = map[process.Channel][]Listener{}
	}

	b.listeners[ch] = append(b.listeners[ch], l)
}

// Send delivers p to each listener subscribed to p's channel, in the order
// they were added.
func (b *Bus) Send(ctx context.Context, p process.Parcel) {
	mlog.LogProduce(b.Logger, p)

	b.m.RLock()
	listeners := b.listeners[p.Channel]
	b.m.RUnlock()

	for _, l := range listeners {
		if err := b.deliver(ctx, l, p); err != nil {
			logging.Log(
				b.Logger,
				"listener on channel %s failed to handle message %s: %s",
				p.Channel,
				p.MessageID,
				err,
			)
		}
	}
}

// deliver dispatches p to a single listener, converting a panic in the
// listener into an error.
func (b *Bus) deliver(
	ctx context.Context,
	l Listener,
	p process.Parcel,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()

	return l.HandleMessage(ctx, p)
}
