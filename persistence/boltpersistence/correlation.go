package boltpersistence

import (
	"context"
	"sort"

	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/bboltx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"go.etcd.io/bbolt"
)

// correlationBucketKey is the key for the root bucket for the correlation
// store.
//
// It contains a child bucket per correlation kind. Within each child bucket
// the keys are correlation keys and the values are correlationRecord values
// marshaled as JSON.
var correlationBucketKey = []byte("correlation")

// LoadCorrelationItem loads the correlation item with a specific key and kind.
func (ds *dataStore) LoadCorrelationItem(
	_ context.Context,
	key string,
	kind persistence.CorrelationKind,
) (_ persistence.CorrelationItem, _ bool, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return persistence.CorrelationItem{}, false, err
	}

	var (
		item persistence.CorrelationItem
		ok   bool
	)

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			b, exists := bboltx.TryBucket(
				tx,
				correlationBucketKey,
				[]byte(kind),
			)
			if !exists {
				return
			}

			data := b.Get([]byte(key))
			if data == nil {
				return
			}

			item = unmarshalCorrelationItem(key, kind, data)
			ok = true
		},
	)

	return item, ok, nil
}

// LoadCorrelationItems loads all correlation items of a specific kind, in
// order of creation.
func (ds *dataStore) LoadCorrelationItems(
	_ context.Context,
	kind persistence.CorrelationKind,
) (_ []persistence.CorrelationItem, err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	var items []persistence.CorrelationItem

	bboltx.View(
		ds.db,
		func(tx *bbolt.Tx) {
			b, exists := bboltx.TryBucket(
				tx,
				correlationBucketKey,
				[]byte(kind),
			)
			if !exists {
				return
			}

			cur := b.Cursor()
			for k, v := cur.First(); k != nil; k, v = cur.Next() {
				items = append(
					items,
					unmarshalCorrelationItem(string(k), kind, v),
				)
			}
		},
	)

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	return items, nil
}

// VisitSaveCorrelationItem applies the changes in a "SaveCorrelationItem"
// operation to the database.
func (c *committer) VisitSaveCorrelationItem(
	_ context.Context,
	op persistence.SaveCorrelationItem,
) error {
	if b, exists := bboltx.TryBucket(
		c.tx,
		correlationBucketKey,
		[]byte(op.Item.Kind.Opposite()),
	); exists && b.Get([]byte(op.Item.Key)) != nil {
		return persistence.ConflictError{
			Cause: op,
		}
	}

	bboltx.Put(
		bboltx.CreateBucketIfNotExists(
			c.tx,
			correlationBucketKey,
			[]byte(op.Item.Kind),
		),
		[]byte(op.Item.Key),
		marshalCorrelationRecord(correlationRecord{
			CreatedAt: marshalTime(op.Item.CreatedAt),
			MediaType: op.Item.Packet.MediaType,
			Data:      op.Item.Packet.Data,
		}),
	)

	return nil
}

// VisitRemoveCorrelationItem applies the changes in a "RemoveCorrelationItem"
// operation to the database.
func (c *committer) VisitRemoveCorrelationItem(
	_ context.Context,
	op persistence.RemoveCorrelationItem,
) error {
	b, exists := bboltx.TryBucket(
		c.tx,
		correlationBucketKey,
		[]byte(op.Item.Kind),
	)
	if !exists || b.Get([]byte(op.Item.Key)) == nil {
		return persistence.ConflictError{
			Cause: op,
		}
	}

	bboltx.DeletePath(
		c.tx,
		correlationBucketKey,
		[]byte(op.Item.Kind),
		[]byte(op.Item.Key),
	)

	return nil
}

// unmarshalCorrelationItem unmarshals a correlation item from its binary
// representation.
func unmarshalCorrelationItem(
	key string,
	kind persistence.CorrelationKind,
	data []byte,
) persistence.CorrelationItem {
	rec := unmarshalCorrelationRecord(data)

	return persistence.CorrelationItem{
		Key:       key,
		Kind:      kind,
		CreatedAt: unmarshalTime(rec.CreatedAt),
		Packet: marshalkit.Packet{
			MediaType: rec.MediaType,
			Data:      rec.Data,
		},
	}
}
