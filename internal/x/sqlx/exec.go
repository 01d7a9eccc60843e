package sqlx

import (
	"context"
	"database/sql"
	"fmt"
)

// Exec executes a statement on the given DB.
func Exec(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) sql.Result {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)
	return res
}

// TryExecRow executes a statement on the given DB and returns true if it
// affects exactly one row.
func TryExecRow(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) bool {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)

	n, err := res.RowsAffected()
	Must(err)

	return n == 1
}

// UpdateRow executes an update statement on the given DB.
//
// It panics if the update does not affect exactly one row.
func UpdateRow(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) {
	if !TryExecRow(ctx, db, query, args...) {
		Must(fmt.Errorf("update did not affect exactly one row"))
	}
}
