package persistence

import (
	"context"
	"time"

	"github.com/dogmatiq/marshalkit"
)

// CorrelationKind discriminates the two halves of a correlation rendezvous.
type CorrelationKind string

const (
	// CorrelationRequest identifies the parked half that carries a process
	// record awaiting its data-reference.
	CorrelationRequest CorrelationKind = "request"

	// CorrelationResult identifies the parked half that carries a
	// data-reference awaiting its process record.
	CorrelationResult CorrelationKind = "result"
)

// Opposite returns the kind of the other half of the rendezvous.
func (k CorrelationKind) Opposite() CorrelationKind {
	if k == CorrelationRequest {
		return CorrelationResult
	}

	return CorrelationRequest
}

// CorrelationItem is one half of a correlation rendezvous, parked until its
// counterpart arrives.
//
// At most one item exists per key and kind.
type CorrelationItem struct {
	// Key is the correlation key, a contract agreement ID.
	Key string

	// Kind indicates which half of the rendezvous the item is.
	Kind CorrelationKind

	// CreatedAt is the time at which the item was parked.
	CreatedAt time.Time

	// Packet is the marshaled record or data-reference.
	Packet marshalkit.Packet
}

// CorrelationRepository is an interface for reading parked correlation items.
type CorrelationRepository interface {
	// LoadCorrelationItem loads the item parked under the given key and
	// kind, if any.
	LoadCorrelationItem(
		ctx context.Context,
		key string,
		kind CorrelationKind,
	) (CorrelationItem, bool, error)

	// LoadCorrelationItems loads all items of the given kind.
	LoadCorrelationItems(
		ctx context.Context,
		kind CorrelationKind,
	) ([]CorrelationItem, error)
}
