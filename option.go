package adapter

import (
	"fmt"
	"net"
	"reflect"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/dogmatiq/marshalkit"
	"github.com/dogmatiq/marshalkit/codec"
	"github.com/dogmatiq/marshalkit/codec/json"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Option configures the behavior of an engine.
type Option func(*options)

// WithConnector returns an option that sets the client used to drive the
// connector's management API.
//
// This option is required.
func WithConnector(c connector.Client) Option {
	return func(opts *options) {
		opts.Connector = c
	}
}

// WithPersistence returns an option that sets the persistence provider that
// the queue and correlation entries are stored in.
//
// If this option is omitted or p is nil an in-memory provider is used, which
// is only suitable for a single-process deployment.
func WithPersistence(p persistence.Provider) Option {
	return func(opts *options) {
		opts.PersistenceProvider = p
	}
}

// DefaultListenAddress is the default TCP address for the HTTP listener.
const DefaultListenAddress = ":8186"

// WithListenAddress returns an option that sets the TCP address for the HTTP
// listener.
//
// If this option is omitted or addr is empty DefaultListenAddress is used.
func WithListenAddress(addr string) Option {
	if addr != "" {
		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			panic(fmt.Sprintf("invalid listen address: %s", err))
		}

		if _, err := net.LookupPort("tcp", port); err != nil {
			panic(fmt.Sprintf("invalid listen address: %s", err))
		}
	}

	return func(opts *options) {
		opts.ListenAddress = addr
	}
}

// DefaultResultTimeout is the default duration a synchronous request waits
// for its result before giving up.
const DefaultResultTimeout = 30 * time.Second

// WithResultTimeout returns an option that sets the duration a synchronous
// request waits for its result before giving up.
//
// If this option is omitted or d is zero DefaultResultTimeout is used.
func WithResultTimeout(d time.Duration) Option {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *options) {
		opts.ResultTimeout = d
	}
}

// WithRetryLimit returns an option that sets the number of failures after
// which a queued parcel is abandoned instead of retried.
//
// This option is required; there is no safe universal default, it depends on
// the deployment's tolerance for holding on to failing work.
func WithRetryLimit(n uint) Option {
	return func(opts *options) {
		opts.RetryLimit = n
	}
}

// WithReconcileInterval returns an option that sets the interval at which
// parked processes are checked against the connector's state and failed if
// that state is terminal.
//
// This option is required; there is no safe universal default, it depends on
// the connector's negotiation and transfer turnaround times.
func WithReconcileInterval(d time.Duration) Option {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *options) {
		opts.ReconcileInterval = d
	}
}

// DefaultBackoffStrategy is the default strategy used to delay retries of
// failed parcels.
var DefaultBackoffStrategy backoff.Strategy = backoff.WithTransforms(
	backoff.Exponential(100*time.Millisecond),
	linger.FullJitter,
	linger.Limiter(0, 1*time.Hour),
)

// WithBackoffStrategy returns an option that sets the strategy used to delay
// retries of failed parcels.
//
// If this option is omitted or s is nil DefaultBackoffStrategy is used.
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(opts *options) {
		opts.BackoffStrategy = s
	}
}

// DefaultConcurrencyLimit is the default number of queued parcels that are
// dispatched concurrently.
const DefaultConcurrencyLimit = 8

// WithConcurrencyLimit returns an option that sets the number of queued
// parcels that are dispatched concurrently.
//
// If this option is omitted or n is zero DefaultConcurrencyLimit is used.
func WithConcurrencyLimit(n int) Option {
	if n < 0 {
		panic("concurrency limit must not be negative")
	}

	return func(opts *options) {
		opts.ConcurrencyLimit = n
	}
}

// WithLeaseTTL returns an option that sets the duration of the lease
// acquired on each queue item that is claimed for dispatch.
//
// If this option is omitted or d is zero the queue consumer's default is
// used.
func WithLeaseTTL(d time.Duration) Option {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *options) {
		opts.LeaseTTL = d
	}
}

// WithPollInterval returns an option that sets the duration the queue
// consumer waits before polling the queue again when no items were due.
//
// If this option is omitted or d is zero the queue consumer's default is
// used.
func WithPollInterval(d time.Duration) Option {
	if d < 0 {
		panic("duration must not be negative")
	}

	return func(opts *options) {
		opts.PollInterval = d
	}
}

// NewDefaultMarshaler returns the default marshaler used to marshal parcels,
// records and data-references for storage.
func NewDefaultMarshaler() marshalkit.Marshaler {
	m, err := codec.NewMarshaler(
		[]reflect.Type{
			reflect.TypeOf(process.Parcel{}),
			reflect.TypeOf(process.Record{}),
			reflect.TypeOf(process.DataReference{}),
		},
		[]codec.Codec{
			&json.Codec{},
		},
	)
	if err != nil {
		panic(err)
	}

	return m
}

// WithMarshaler returns an option that sets the marshaler used to marshal
// parcels, records and data-references for storage.
//
// If this option is omitted or m is nil NewDefaultMarshaler() is called to
// obtain the default marshaler.
func WithMarshaler(m marshalkit.Marshaler) Option {
	return func(opts *options) {
		opts.Marshaler = m
	}
}

// DefaultLogger is the default target for log messages produced by the
// engine.
var DefaultLogger = logging.DefaultLogger

// WithLogger returns an option that sets the target for log messages
// produced by the engine.
//
// If this option is omitted or l is nil DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(opts *options) {
		opts.Logger = l
	}
}

// options is a container for a fully-resolved set of engine options.
type options struct {
	Connector           connector.Client
	PersistenceProvider persistence.Provider
	ListenAddress       string
	ResultTimeout       time.Duration
	RetryLimit          uint
	ReconcileInterval   time.Duration
	BackoffStrategy     backoff.Strategy
	ConcurrencyLimit    int
	LeaseTTL            time.Duration
	PollInterval        time.Duration
	Marshaler           marshalkit.Marshaler
	Logger              logging.Logger
}

// resolveOptions returns a fully-populated set of engine options built from
// the given set of option functions.
//
// It panics if a required option is omitted.
func resolveOptions(fns ...Option) *options {
	opts := &options{}

	for _, fn := range fns {
		fn(opts)
	}

	if opts.Connector == nil {
		panic("no connector client is configured, WithConnector() is required")
	}

	if opts.RetryLimit == 0 {
		panic("no retry limit is configured, WithRetryLimit() is required")
	}

	if opts.ReconcileInterval == 0 {
		panic("no reconcile interval is configured, WithReconcileInterval() is required")
	}

	if opts.PersistenceProvider == nil {
		opts.PersistenceProvider = &memorypersistence.Provider{}
	}

	if opts.ListenAddress == "" {
		opts.ListenAddress = DefaultListenAddress
	}

	if opts.ResultTimeout == 0 {
		opts.ResultTimeout = DefaultResultTimeout
	}

	if opts.BackoffStrategy == nil {
		opts.BackoffStrategy = DefaultBackoffStrategy
	}

	if opts.ConcurrencyLimit == 0 {
		opts.ConcurrencyLimit = DefaultConcurrencyLimit
	}

	if opts.Marshaler == nil {
		opts.Marshaler = NewDefaultMarshaler()
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	return opts
}
