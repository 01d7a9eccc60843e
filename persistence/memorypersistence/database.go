package memorypersistence

import (
	"sync"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// correlationKey identifies a correlation item by its key and kind.
type correlationKey struct {
	key  string
	kind persistence.CorrelationKind
}

// database contains the in-memory data shared by all data-stores opened from
// the same provider.
type database struct {
	m            sync.Mutex
	queue        map[string]persistence.QueueItem
	correlations map[correlationKey]persistence.CorrelationItem
}

func newDatabase() *database {
	return &database{
		queue:        map[string]persistence.QueueItem{},
		correlations: map[correlationKey]persistence.CorrelationItem{},
	}
}
