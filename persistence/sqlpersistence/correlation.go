package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// CorrelationDriver is the subset of the Driver interface that is concerned
// with the correlation store subsystem.
type CorrelationDriver interface {
	// SaveCorrelationItem inserts or updates the item parked under a specific
	// key and kind.
	//
	// It returns false if an item of the opposite kind is parked under the
	// same key.
	SaveCorrelationItem(
		ctx context.Context,
		tx *sql.Tx,
		item persistence.CorrelationItem,
	) (bool, error)

	// DeleteCorrelationItem deletes a parked item.
	//
	// It returns false if the row does not exist.
	DeleteCorrelationItem(
		ctx context.Context,
		tx *sql.Tx,
		item persistence.CorrelationItem,
	) (bool, error)

	// SelectCorrelationItem selects the item parked under a specific key and
	// kind.
	SelectCorrelationItem(
		ctx context.Context,
		db *sql.DB,
		key string,
		kind persistence.CorrelationKind,
	) (persistence.CorrelationItem, bool, error)

	// SelectCorrelationItems selects all items of a specific kind, in order
	// of creation.
	SelectCorrelationItems(
		ctx context.Context,
		db *sql.DB,
		kind persistence.CorrelationKind,
	) ([]persistence.CorrelationItem, error)
}

// LoadCorrelationItem loads the correlation item with a specific key and kind.
func (ds *dataStore) LoadCorrelationItem(
	ctx context.Context,
	key string,
	kind persistence.CorrelationKind,
) (persistence.CorrelationItem, bool, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return persistence.CorrelationItem{}, false, err
	}

	return ds.driver.SelectCorrelationItem(ctx, ds.db, key, kind)
}

// LoadCorrelationItems loads all correlation items of a specific kind, in
// order of creation.
func (ds *dataStore) LoadCorrelationItems(
	ctx context.Context,
	kind persistence.CorrelationKind,
) ([]persistence.CorrelationItem, error) {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if err := ds.checkOpen(); err != nil {
		return nil, err
	}

	return ds.driver.SelectCorrelationItems(ctx, ds.db, kind)
}

// VisitSaveCorrelationItem applies the changes in a "SaveCorrelationItem"
// operation to the database.
func (c *committer) VisitSaveCorrelationItem(
	ctx context.Context,
	op persistence.SaveCorrelationItem,
) error {
	if ok, err := c.driver.SaveCorrelationItem(
		ctx,
		c.tx,
		op.Item,
	); ok || err != nil {
		return err
	}

	return persistence.ConflictError{
		Cause: op,
	}
}

// VisitRemoveCorrelationItem applies the changes in a "RemoveCorrelationItem"
// operation to the database.
func (c *committer) VisitRemoveCorrelationItem(
	ctx context.Context,
	op persistence.RemoveCorrelationItem,
) error {
	if ok, err := c.driver.DeleteCorrelationItem(
		ctx,
		c.tx,
		op.Item,
	); ok || err != nil {
		return err
	}

	return persistence.ConflictError{
		Cause: op,
	}
}
