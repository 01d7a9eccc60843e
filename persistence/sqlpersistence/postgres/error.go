package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// convertContextErrors converts PostgreSQL "query_canceled" errors into a
// context.Canceled or DeadlineExceeeded error.
//
// The postgres drivers appear to prefer returning their own error if the
// context is canceled after a query is already started.
func convertContextErrors(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		if strings.Contains(err.Error(), "canceling statement due to user request") {
			return ctx.Err()
		}
	}

	return err
}

// errorConverter is an implementation of sqlpersistence.Driver that decorates
// the PostgreSQL driver in order to convert native "query_canceled" errors
// into regular context.Canceled / DeadlineExceeded errors.
//
// The error conversion is implemented this way so that conversions don't get
// missed when new methods are added to the sqlpersistence.Driver interface.
type errorConverter struct {
	d driver
}

func (d errorConverter) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	err := d.d.IsCompatibleWith(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := d.d.Begin(ctx, db)
	return tx, convertContextErrors(ctx, err)
}

func (d errorConverter) CreateSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.CreateSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) DropSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.DropSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

//
// queue
//

func (d errorConverter) InsertQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (bool, error) {
	ok, err := d.d.InsertQueueItem(ctx, tx, item)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) UpdateQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (bool, error) {
	ok, err := d.d.UpdateQueueItem(ctx, tx, item)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) DeleteQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (bool, error) {
	ok, err := d.d.DeleteQueueItem(ctx, tx, item)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) ReleaseQueueLease(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) error {
	err := d.d.ReleaseQueueLease(ctx, tx, id)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) AcquireQueueItems(
	ctx context.Context,
	db *sql.DB,
	n int,
	owner string,
	now, expires time.Time,
) ([]persistence.QueueItem, error) {
	items, err := d.d.AcquireQueueItems(ctx, db, n, owner, now, expires)
	return items, convertContextErrors(ctx, err)
}

//
// correlation
//

func (d errorConverter) SaveCorrelationItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.CorrelationItem,
) (bool, error) {
	ok, err := d.d.SaveCorrelationItem(ctx, tx, item)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) DeleteCorrelationItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.CorrelationItem,
) (bool, error) {
	ok, err := d.d.DeleteCorrelationItem(ctx, tx, item)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectCorrelationItem(
	ctx context.Context,
	db *sql.DB,
	key string,
	kind persistence.CorrelationKind,
) (persistence.CorrelationItem, bool, error) {
	item, ok, err := d.d.SelectCorrelationItem(ctx, db, key, kind)
	return item, ok, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectCorrelationItems(
	ctx context.Context,
	db *sql.DB,
	kind persistence.CorrelationKind,
) ([]persistence.CorrelationItem, error) {
	items, err := d.d.SelectCorrelationItems(ctx, db, kind)
	return items, convertContextErrors(ctx, err)
}
