package postgres

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
		`INSERT INTO adapter.queue (
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
		`UPDATE adapter.queue SET
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
		`DELETE FROM adapter.queue
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
		`UPDATE adapter.queue SET
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
// The due rows are locked with SKIP LOCKED so that concurrent workers never
// contend for the same items.
func (driver) AcquireQueueItems(
	ctx context.Context,
	db *sql.DB,
	n int,
	owner string,
	now, expires time.Time,
) (_ []persistence.QueueItem, err error) {
	defer sqlx.Recover(&err)

	nowMS := sqlx.MarshalTime(now)

	rows := sqlx.Query(
		ctx,
		db,
		`UPDATE adapter.queue AS q SET
			lease_owner = $1,
			lease_expires_at = $2,
			revision = q.revision + 1
		FROM (
			SELECT id
			FROM adapter.queue
			WHERE next_attempt_at <= $3
			AND (lease_owner = '' OR lease_expires_at <= $3)
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		) AS due
		WHERE q.id = due.id
		RETURNING
			q.id,
			q.channel,
			q.failure_count,
			q.created_at,
			q.next_attempt_at,
			q.lease_owner,
			q.lease_expires_at,
			q.revision,
			q.media_type,
			q.data`,
		owner,
		sqlx.MarshalTime(expires),
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
			leaseAt   int64
		)

		sqlx.Must(rows.Scan(
			&item.ID,
			&channel,
			&item.FailureCount,
			&createdAt,
			&nextAt,
			&item.LeaseOwner,
			&leaseAt,
			&item.Revision,
			&item.Packet.MediaType,
			&item.Packet.Data,
		))

		item.Channel = process.Channel(channel)
		item.CreatedAt = sqlx.UnmarshalTime(createdAt)
		item.NextAttemptAt = sqlx.UnmarshalTime(nextAt)
		item.LeaseExpiresAt = sqlx.UnmarshalTime(leaseAt)

		items = append(items, item)
	}

	return items, rows.Err()
}

// createQueueSchema creates the schema elements for the message queue.
func createQueueSchema(ctx context.Context, db *sql.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS adapter.queue (
			id               TEXT NOT NULL PRIMARY KEY,
			channel          TEXT NOT NULL,
			revision         BIGINT NOT NULL DEFAULT 1,
			failure_count    INTEGER NOT NULL DEFAULT 0,
			created_at       BIGINT NOT NULL,
			next_attempt_at  BIGINT NOT NULL,
			lease_owner      TEXT NOT NULL DEFAULT '',
			lease_expires_at BIGINT NOT NULL DEFAULT 0,
			media_type       TEXT NOT NULL,
			data             BYTEA NOT NULL
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE INDEX IF NOT EXISTS queue_by_next_attempt ON adapter.queue (
			next_attempt_at
		)`,
	)
}
