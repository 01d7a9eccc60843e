// Package adapter provides a synchronous facade over a dataspace connector's
// asynchronous contract negotiation and data transfer flow.
package adapter

import (
	"context"
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/api"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/handler"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/lockmap"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/queue"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/result"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/semaphore"
	"golang.org/x/sync/errgroup"
)

// Engine runs the adapter: it serves the HTTP API, dispatches queued
// parcels, and reconciles parked processes against the connector's state.
type Engine struct {
	opts *options

	m      sync.Mutex
	cancel context.CancelFunc
}

// New returns a new engine that runs with the given options.
//
// It panics if a required option is omitted. WithConnector(),
// WithRetryLimit() and WithReconcileInterval() are required.
func New(options ...Option) *Engine {
	return &Engine{
		opts: resolveOptions(options...),
	}
}

// Run executes the engine until ctx is canceled, Close() is called, or an
// error occurs.
func (e *Engine) Run(ctx context.Context) (err error) {
	parent := ctx

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.m.Lock()
	e.cancel = cancel
	e.m.Unlock()

	ds, err := e.opts.PersistenceProvider.Open(ctx)
	if err != nil {
		return err
	}
	defer ds.Close()

	packer := &process.Packer{}

	b := &bus.Bus{
		Logger: e.opts.Logger,
	}

	results := &result.Exchange{
		Logger: e.opts.Logger,
	}
	b.AddListener(process.ChannelResult, results)

	cs := &correlation.Store{
		DataStore: ds,
		Marshaler: e.opts.Marshaler,
		Locks:     &lockmap.Map{},
		Logger:    e.opts.Logger,
	}

	q := &queue.Queue{
		DataStore: ds,
		Marshaler: e.opts.Marshaler,
	}

	negotiations := &handler.Negotiation{
		Packer: packer,
		Bus:    b,
		Logger: e.opts.Logger,
	}

	entry := &handler.EntryPoint{
		Routes: map[process.Channel]bus.Listener{
			process.ChannelInitial: &handler.Initial{
				Connector: e.opts.Connector,
				Packer:    packer,
				Bus:       b,
				Logger:    e.opts.Logger,
			},
			process.ChannelNegotiation: negotiations,
			process.ChannelConfirmation: &handler.Confirmation{
				Connector:   e.opts.Connector,
				Correlation: cs,
				Packer:      packer,
				Bus:         b,
				Logger:      e.opts.Logger,
			},
			process.ChannelDataReference: &handler.DataReference{
				Correlation: cs,
				Packer:      packer,
				Bus:         b,
				Logger:      e.opts.Logger,
			},
		},
		Queue:           q,
		Packer:          packer,
		Bus:             b,
		BackoffStrategy: e.opts.BackoffStrategy,
		Logger:          e.opts.Logger,
	}

	for _, ch := range []process.Channel{
		process.ChannelInitial,
		process.ChannelNegotiation,
		process.ChannelConfirmation,
		process.ChannelDataReference,
	} {
		b.AddListener(ch, entry)
	}

	consumer := &queue.Consumer{
		DataStore:       ds,
		Marshaler:       e.opts.Marshaler,
		Handler:         entry,
		Semaphore:       semaphore.New(e.opts.ConcurrencyLimit),
		BackoffStrategy: e.opts.BackoffStrategy,
		RetryLimit:      e.opts.RetryLimit,
		LeaseTTL:        e.opts.LeaseTTL,
		PollInterval:    e.opts.PollInterval,
		IsFatal:         connector.IsFatal,
		Logger:          e.opts.Logger,
	}

	server := &api.Server{
		ListenAddress: e.opts.ListenAddress,
		Bus:           b,
		Packer:        packer,
		Results:       results,
		Negotiations:  negotiations,
		ResultTimeout: e.opts.ResultTimeout,
		Logger:        e.opts.Logger,
	}

	rec := &reconciler{
		Connector:    e.opts.Connector,
		Correlation:  cs,
		Negotiations: negotiations,
		Packer:       packer,
		Bus:          b,
		Interval:     e.opts.ReconcileInterval,
		Logger:       e.opts.Logger,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	g.Go(func() error {
		return rec.Run(ctx)
	})

	err = g.Wait()

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// Close stops a running engine. Run() returns context.Canceled.
func (e *Engine) Close() {
	e.m.Lock()
	defer e.m.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
}
