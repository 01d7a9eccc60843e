// Package correlation implements the rendezvous between the two independently
// arriving halves of a process: the record awaiting its data-reference, and
// the data-reference awaiting its record.
package correlation

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/lockmap"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Store parks whichever half of a process arrives first and matches it with
// the other half when that arrives.
//
// Each offer operation is serialized per key within the process, and the
// persistence layer rejects parking one half while the opposite half is
// already parked. An offer that loses such a race to another process retries
// against the store's current state, so exactly one of two racing offers
// matches even when several processes share one data-store.
type Store struct {
	// DataStore is the data-store used to persist parked halves.
	DataStore persistence.DataStore

	// Marshaler is used to marshal records and data-references for storage.
	Marshaler marshalkit.ValueMarshaler

	// Locks provides per-key mutual exclusion across offer operations.
	Locks *lockmap.Map

	// Logger is the target for log messages about parked and matched halves.
	Logger logging.Logger
}

// ParkedRequest is a request half loaded back out of the store, as seen by
// the reconciliation sweep.
type ParkedRequest struct {
	// Key is the correlation key the record is parked under.
	Key string

	// CreatedAt is the time at which the record was parked.
	CreatedAt time.Time

	// Record is the parked record.
	Record *process.Record
}

// OfferRequest offers the record half of the process identified by key.
//
// If the data-reference half is already parked it is removed and returned,
// and nothing is parked. Otherwise r is parked and a nil reference is
// returned, indicating that the caller must wait for the data-reference to
// arrive.
func (s *Store) OfferRequest(
	ctx context.Context,
	key string,
	r *process.Record,
) (*process.DataReference, error) {
	if err := s.Locks.Lock(ctx, key); err != nil {
		return nil, err
	}
	defer s.Locks.Remove(key)
	defer s.Locks.Unlock(key)

	for {
		item, ok, err := s.DataStore.CorrelationRepository().LoadCorrelationItem(
			ctx,
			key,
			persistence.CorrelationResult,
		)
		if err != nil {
			return nil, err
		}

		if ok {
			ref, err := process.UnmarshalDataReference(s.Marshaler, item.Packet)
			if err != nil {
				return nil, err
			}

			removed, err := s.remove(ctx, item)
			if err != nil {
				return nil, err
			}
			if !removed {
				// The parked half was consumed by another process after it
				// was loaded. Retry against the store's current state.
				continue
			}

			logging.Debug(
				s.Logger,
				"matched request for agreement %s with parked data-reference",
				key,
			)

			return &ref, nil
		}

		packet, err := process.MarshalRecord(s.Marshaler, r)
		if err != nil {
			return nil, err
		}

		parked, err := s.park(ctx, key, persistence.CorrelationRequest, packet)
		if err != nil {
			return nil, err
		}
		if !parked {
			// The data-reference half was parked by another process after
			// the lookup. Retry; the next pass matches it.
			continue
		}

		logging.Debug(
			s.Logger,
			"parked request for agreement %s awaiting its data-reference",
			key,
		)

		return nil, nil
	}
}

// OfferResult offers the data-reference half of the process identified by
// key.
//
// If the record half is already parked it is removed and returned, and
// nothing is parked. Otherwise ref is parked and a nil record is returned,
// indicating that the record has not yet reached the rendezvous.
func (s *Store) OfferResult(
	ctx context.Context,
	key string,
	ref process.DataReference,
) (*process.Record, error) {
	if err := s.Locks.Lock(ctx, key); err != nil {
		return nil, err
	}
	defer s.Locks.Remove(key)
	defer s.Locks.Unlock(key)

	for {
		item, ok, err := s.DataStore.CorrelationRepository().LoadCorrelationItem(
			ctx,
			key,
			persistence.CorrelationRequest,
		)
		if err != nil {
			return nil, err
		}

		if ok {
			r, err := process.UnmarshalRecord(s.Marshaler, item.Packet)
			if err != nil {
				return nil, err
			}

			removed, err := s.remove(ctx, item)
			if err != nil {
				return nil, err
			}
			if !removed {
				// The parked half was consumed by another process after it
				// was loaded. Retry against the store's current state.
				continue
			}

			logging.Debug(
				s.Logger,
				"matched data-reference for agreement %s with parked request",
				key,
			)

			return r, nil
		}

		packet, err := process.MarshalDataReference(s.Marshaler, ref)
		if err != nil {
			return nil, err
		}

		parked, err := s.park(ctx, key, persistence.CorrelationResult, packet)
		if err != nil {
			return nil, err
		}
		if !parked {
			// The record half was parked by another process after the
			// lookup. Retry; the next pass matches it.
			continue
		}

		logging.Debug(
			s.Logger,
			"parked data-reference for agreement %s awaiting its request",
			key,
		)

		return nil, nil
	}
}

// RemoveRequest removes the request half parked under key.
//
// It returns false if no request half is parked under key, such as when it
// has already been matched by a concurrent offer.
func (s *Store) RemoveRequest(ctx context.Context, key string) (bool, error) {
	return s.removeByKey(ctx, key, persistence.CorrelationRequest)
}

// RemoveResult removes the data-reference half parked under key.
//
// It returns false if no data-reference half is parked under key.
func (s *Store) RemoveResult(ctx context.Context, key string) (bool, error) {
	return s.removeByKey(ctx, key, persistence.CorrelationResult)
}

// ListRequests loads all parked request halves, in order of arrival.
func (s *Store) ListRequests(ctx context.Context) ([]ParkedRequest, error) {
	items, err := s.DataStore.CorrelationRepository().LoadCorrelationItems(
		ctx,
		persistence.CorrelationRequest,
	)
	if err != nil {
		return nil, err
	}

	requests := make([]ParkedRequest, 0, len(items))
	for _, item := range items {
		r, err := process.UnmarshalRecord(s.Marshaler, item.Packet)
		if err != nil {
			return nil, err
		}

		requests = append(requests, ParkedRequest{
			Key:       item.Key,
			CreatedAt: item.CreatedAt,
			Record:    r,
		})
	}

	return requests, nil
}

// park persists one half of a rendezvous.
//
// It returns false if the opposite half is already parked under key.
func (s *Store) park(
	ctx context.Context,
	key string,
	kind persistence.CorrelationKind,
	packet marshalkit.Packet,
) (bool, error) {
	err := s.DataStore.Persist(
		ctx,
		persistence.Batch{
			persistence.SaveCorrelationItem{
				Item: persistence.CorrelationItem{
					Key:       key,
					Kind:      kind,
					CreatedAt: time.Now(),
					Packet:    packet,
				},
			},
		},
	)

	var conflict persistence.ConflictError
	if errors.As(err, &conflict) {
		return false, nil
	}

	return err == nil, err
}

// remove deletes a parked half.
//
// It returns false if the half is no longer parked.
func (s *Store) remove(
	ctx context.Context,
	item persistence.CorrelationItem,
) (bool, error) {
	err := s.DataStore.Persist(
		ctx,
		persistence.Batch{
			persistence.RemoveCorrelationItem{
				Item: item,
			},
		},
	)

	var conflict persistence.ConflictError
	if errors.As(err, &conflict) {
		return false, nil
	}

	return err == nil, err
}

func (s *Store) removeByKey(
	ctx context.Context,
	key string,
	kind persistence.CorrelationKind,
) (bool, error) {
	if err := s.Locks.Lock(ctx, key); err != nil {
		return false, err
	}
	defer s.Locks.Remove(key)
	defer s.Locks.Unlock(key)

	return s.remove(
		ctx,
		persistence.CorrelationItem{
			Key:  key,
			Kind: kind,
		},
	)
}
