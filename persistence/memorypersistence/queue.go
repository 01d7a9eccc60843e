package memorypersistence

import (
	"context"
	"sort"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// AcquireQueueItems claims up to n items that are due for processing.
func (ds *dataStore) AcquireQueueItems(
	ctx context.Context,
	n int,
	owner string,
	ttl time.Duration,
) ([]persistence.QueueItem, error) {
	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	ds.db.m.Lock()
	defer ds.db.m.Unlock()

	now := time.Now()

	var due []persistence.QueueItem
	for _, item := range ds.db.queue {
		if item.NextAttemptAt.After(now) {
			continue
		}

		if item.LeaseOwner != "" && item.LeaseExpiresAt.After(now) {
			continue
		}

		due = append(due, item)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})

	if len(due) > n {
		due = due[:n]
	}

	for i, item := range due {
		item.LeaseOwner = owner
		item.LeaseExpiresAt = now.Add(ttl)
		item.Revision++

		ds.db.queue[item.ID] = item
		due[i] = item
	}

	return due, nil
}
