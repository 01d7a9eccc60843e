package bboltx

import "go.etcd.io/bbolt"

// View executes a read-only function within a transaction.
func View(db *bbolt.DB, fn func(*bbolt.Tx)) {
	Must(db.View(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}

// Update executes a read/write function within a transaction.
//
// If fn panics the transaction is rolled back, and the panic is propagated.
func Update(db *bbolt.DB, fn func(*bbolt.Tx)) {
	Must(db.Update(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}

// TryBucket gets nested buckets with names given by the elements of path.
//
// ok is false if any of the nested buckets does not exist.
func TryBucket(p BucketParent, path ...[]byte) (b *bbolt.Bucket, ok bool) {
	b = Bucket(p, path...)
	return b, b != nil
}

// DeletePath removes the key given by the final element of path from the
// bucket identified by the preceding elements.
//
// It does nothing if any of the buckets do not exist.
func DeletePath(p BucketParent, path ...[]byte) {
	if len(path) < 2 {
		panic("at least two path elements must be provided")
	}

	n := len(path) - 1

	if b, ok := TryBucket(p, path[:n]...); ok {
		Delete(b, path[n])
	}
}
