package memorypersistence

import (
	"context"
	"sort"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// LoadCorrelationItem loads the correlation item with a specific key and kind.
func (ds *dataStore) LoadCorrelationItem(
	ctx context.Context,
	key string,
	kind persistence.CorrelationKind,
) (persistence.CorrelationItem, bool, error) {
	if err := ds.checkOpen(); err != nil {
		return persistence.CorrelationItem{}, false, err
	}

	ds.db.m.Lock()
	defer ds.db.m.Unlock()

	item, ok := ds.db.correlations[correlationKey{
		key:  key,
		kind: kind,
	}]

	return item, ok, nil
}

// LoadCorrelationItems loads all correlation items of a specific kind, in
// order of creation.
func (ds *dataStore) LoadCorrelationItems(
	ctx context.Context,
	kind persistence.CorrelationKind,
) ([]persistence.CorrelationItem, error) {
	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	ds.db.m.Lock()
	defer ds.db.m.Unlock()

	var items []persistence.CorrelationItem
	for k, item := range ds.db.correlations {
		if k.kind == kind {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	return items, nil
}
