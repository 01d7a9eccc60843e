package sqlx

import "time"

// MarshalTime marshals a time to the number of milliseconds since the Unix
// epoch. The zero-value is marshaled to zero.
func MarshalTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

// UnmarshalTime is the inverse of MarshalTime().
func UnmarshalTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.UnixMilli(n)
}
