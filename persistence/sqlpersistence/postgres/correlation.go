package postgres

import (
	"context"
	"database/sql"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/sqlx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
)

// SaveCorrelationItem inserts or updates the item parked under a specific key
// and kind.
//
// It returns false if an item of the opposite kind is parked under the same
// key. The key column alone is the primary key, so a concurrent save of the
// opposite half blocks on the unique index until this transaction resolves,
// and the guarded upsert then affects no rows.
func (driver) SaveCorrelationItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.CorrelationItem,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`INSERT INTO adapter.correlation_item (
				correlation_key,
				kind,
				created_at,
				media_type,
				data
			) VALUES (
				$1, $2, $3, $4, $5
			) ON CONFLICT (correlation_key) DO UPDATE SET
				created_at = excluded.created_at,
				media_type = excluded.media_type,
				data = excluded.data
			WHERE correlation_item.kind = excluded.kind`,
		item.Key,
		string(item.Kind),
		sqlx.MarshalTime(item.CreatedAt),
		item.Packet.MediaType,
		item.Packet.Data,
	), nil
}

// DeleteCorrelationItem deletes a parked item.
//
// It returns false if the row does not exist.
func (driver) DeleteCorrelationItem(
	ctx context.Context,
	tx *sql.Tx,
	item persistence.CorrelationItem,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`DELETE FROM adapter.correlation_item
		WHERE correlation_key = $1
		AND kind = $2`,
		item.Key,
		string(item.Kind),
	), nil
}

// SelectCorrelationItem selects the item parked under a specific key and kind.
func (driver) SelectCorrelationItem(
	ctx context.Context,
	db *sql.DB,
	key string,
	kind persistence.CorrelationKind,
) (persistence.CorrelationItem, bool, error) {
	row := db.QueryRowContext(
		ctx,
		`SELECT
			c.created_at,
			c.media_type,
			c.data
		FROM adapter.correlation_item AS c
		WHERE c.correlation_key = $1
		AND c.kind = $2`,
		key,
		string(kind),
	)

	item := persistence.CorrelationItem{
		Key:  key,
		Kind: kind,
	}

	var createdAt int64

	err := row.Scan(
		&createdAt,
		&item.Packet.MediaType,
		&item.Packet.Data,
	)
	if err == sql.ErrNoRows {
		return persistence.CorrelationItem{}, false, nil
	}
	if err != nil {
		return persistence.CorrelationItem{}, false, err
	}

	item.CreatedAt = sqlx.UnmarshalTime(createdAt)

	return item, true, nil
}

// SelectCorrelationItems selects all items of a specific kind, in order of
// creation.
func (driver) SelectCorrelationItems(
	ctx context.Context,
	db *sql.DB,
	kind persistence.CorrelationKind,
) (_ []persistence.CorrelationItem, err error) {
	defer sqlx.Recover(&err)

	rows := sqlx.Query(
		ctx,
		db,
		`SELECT
			c.correlation_key,
			c.created_at,
			c.media_type,
			c.data
		FROM adapter.correlation_item AS c
		WHERE c.kind = $1
		ORDER BY c.created_at`,
		string(kind),
	)
	defer rows.Close()

	var items []persistence.CorrelationItem

	for rows.Next() {
		item := persistence.CorrelationItem{
			Kind: kind,
		}

		var createdAt int64

		sqlx.Must(rows.Scan(
			&item.Key,
			&createdAt,
			&item.Packet.MediaType,
			&item.Packet.Data,
		))

		item.CreatedAt = sqlx.UnmarshalTime(createdAt)

		items = append(items, item)
	}

	return items, rows.Err()
}

// createCorrelationSchema creates the schema elements for the correlation
// store.
func createCorrelationSchema(ctx context.Context, db *sql.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS adapter.correlation_item (
			correlation_key TEXT NOT NULL,
			kind            TEXT NOT NULL,
			created_at      BIGINT NOT NULL,
			media_type      TEXT NOT NULL,
			data            BYTEA NOT NULL,

			PRIMARY KEY (correlation_key)
		)`,
	)
}
