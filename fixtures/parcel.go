// Package fixtures contains test fixtures for the adapter.
package fixtures

import (
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// NewRecord returns a record for use in tests.
func NewRecord(traceID string) *process.Record {
	return &process.Record{
		TraceID:     traceID,
		AssetID:     "<asset>",
		ProviderURL: "https://provider.example.com",
	}
}

// NewParcel returns a parcel for use in tests.
func NewParcel(id string, ch process.Channel) process.Parcel {
	return process.Parcel{
		MessageID: id,
		CauseID:   id,
		TraceID:   "<trace-" + id + ">",
		Channel:   ch,
		Record:    NewRecord("<trace-" + id + ">"),
	}
}
