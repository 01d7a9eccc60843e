package connector

import (
	"errors"
	"fmt"
)

// APIError is an error describing a non-success response from the connector's
// management API.
type APIError struct {
	// Status is the HTTP status code of the response.
	Status int

	// Message is the response body, if any.
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("connector returned HTTP %d", e.Status)
	}

	return fmt.Sprintf("connector returned HTTP %d: %s", e.Status, e.Message)
}

// IsFatal returns true if err indicates a failure that will not be resolved
// by retrying the same request.
//
// A 4xx response means the request itself was rejected. Transport errors and
// 5xx responses are presumed transient.
func IsFatal(err error) bool {
	var e APIError
	if errors.As(err, &e) {
		return e.Status >= 400 && e.Status < 500
	}

	return false
}
