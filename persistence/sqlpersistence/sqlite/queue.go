package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/sqlx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// InsertQueueItem inserts an item in the queue.
//
// It returns false if the row already exists.
func (driver) InsertQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	res := sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO queue (
				id,
				channel,
				failure_count,
				created_at,
				next_attempt_at,
				media_type,
				data
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7
			) ON CONFLICT (id) DO NOTHING`,
		item.ID,
		string(item.Channel),
		item.FailureCount,
		sqlx.MarshalTime(item.CreatedAt),
		sqlx.MarshalTime(item.NextAttemptAt),
		item.Packet.MediaType,
		item.Packet.Data,
	)

	n, err := res.RowsAffected()
	return n == 1, err
}

// UpdateQueueItem updates meta-data about an item that is already on the
// queue, releasing any lease held on it.
//
// It returns false if the row does not exist or item.Revision is not current.
func (driver) UpdateQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`UPDATE queue SET
			revision = revision + 1,
			failure_count = $1,
			next_attempt_at = $2,
			lease_owner = '',
			lease_expires_at = 0
		WHERE id = $3
		AND revision = $4`,
		item.FailureCount,
		sqlx.MarshalTime(item.NextAttemptAt),
		item.ID,
		item.Revision,
	), nil
}

// DeleteQueueItem deletes an item from the queue.
//
// It returns false if the row does not exist or item.Revision is not current.
func (driver) DeleteQueueItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.QueueItem,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`DELETE FROM queue
		WHERE id = $1
		AND revision = $2`,
		item.ID,
		item.Revision,
	), nil
}

// ReleaseQueueLease clears the lease on an item without otherwise modifying
// it.
func (driver) ReleaseQueueLease(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE queue SET
			lease_owner = '',
			lease_expires_at = 0
		WHERE id = $1`,
		id,
	)

	return err
}

// AcquireQueueItems atomically claims up to n items that are due for
// processing.
//
// SQLite serializes writers, so the due items are selected and leased
// row-by-row within a single transaction.
func (driver) AcquireQueueItems(
	ctx context.Context,
	db *sql.DB,
	n int,
	owner string,
	now, expires time.Time,
) (_ []persistence.QueueItem, err error) {
	defer sqlx.Recover(&err)

	tx := sqlx.Begin(ctx, db)
	defer tx.Rollback() // nolint:errcheck

	nowMS := sqlx.MarshalTime(now)

	rows := sqlx.Query(
		ctx,
		tx,
		`SELECT
			q.id,
			q.channel,
			q.failure_count,
			q.created_at,
			q.next_attempt_at,
			q.revision,
			q.media_type,
			q.data
		FROM queue AS q
		WHERE q.next_attempt_at <= $1
		AND (q.lease_owner = '' OR q.lease_expires_at <= $1)
		ORDER BY q.next_attempt_at
		LIMIT $2`,
		nowMS,
		n,
	)
	defer rows.Close()

	var items []persistence.QueueItem

	for rows.Next() {
		var (
			item      persistence.QueueItem
			channel   string
			createdAt int64
			nextAt    int64
		)

		sqlx.Must(rows.Scan(
			&item.ID,
			&channel,
			&item.FailureCount,
			&createdAt,
			&nextAt,
			&item.Revision,
			&item.Packet.MediaType,
			&item.Packet.Data,
		))

		item.Channel = process.Channel(channel)
		item.CreatedAt = sqlx.UnmarshalTime(createdAt)
		item.NextAttemptAt = sqlx.UnmarshalTime(nextAt)

		items = append(items, item)
	}

	sqlx.Must(rows.Err())
	sqlx.Must(rows.Close())

	for i := range items {
		items[i].LeaseOwner = owner
		items[i].LeaseExpiresAt = expires
		items[i].Revision++

		sqlx.UpdateRow(
			ctx,
			tx,
			`UPDATE queue SET
				lease_owner = $1,
				lease_expires_at = $2,
				revision = $3
			WHERE id = $4`,
			owner,
			sqlx.MarshalTime(expires),
			items[i].Revision,
			items[i].ID,
		)
	}

	return items, tx.Commit()
}

// createQueueSchema creates the schema elements for the message queue.
func createQueueSchema(ctx context.Context, db *sql.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS queue (
			id               TEXT NOT NULL,
			channel          TEXT NOT NULL,
			revision         INTEGER NOT NULL DEFAULT 1,
			failure_count    INTEGER NOT NULL DEFAULT 0,
			created_at       INTEGER NOT NULL,
			next_attempt_at  INTEGER NOT NULL,
			lease_owner      TEXT NOT NULL DEFAULT '',
			lease_expires_at INTEGER NOT NULL DEFAULT 0,
			media_type       TEXT NOT NULL,
			data             BLOB NOT NULL,

			PRIMARY KEY (id)
		) WITHOUT ROWID`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE INDEX IF NOT EXISTS queue_by_next_attempt ON queue (
			next_attempt_at
		)`,
	)
}

// dropQueueSchema drops the schema elements for the message queue.
func dropQueueSchema(ctx context.Context, db *sql.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS queue`)
}
