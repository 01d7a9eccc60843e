package persistence

import (
	"errors"
)

// ErrDataStoreClosed is returned when performing any persistence operation on
// a closed data-store.
var ErrDataStoreClosed = errors.New("data store is closed")

// DataStore is an interface used by the adapter to persist and retrieve the
// state shared between worker processes: the queue of pending work and the
// correlation entries of parked processes.
type DataStore interface {
	Persister

	// QueueRepository returns the repository used to read the queue.
	QueueRepository() QueueRepository

	// CorrelationRepository returns the repository used to read correlation
	// entries.
	CorrelationRepository() CorrelationRepository

	// Close closes the data store.
	//
	// Closing a data-store prevents any further reads or writes. Operations
	// on a closed data-store return ErrDataStoreClosed.
	Close() error
}
