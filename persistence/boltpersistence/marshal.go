package boltpersistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/x/bboltx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// queueItemRecord is the on-disk representation of a queue item.
type queueItemRecord struct {
	ID             string `json:"id"`
	Channel        string `json:"channel"`
	FailureCount   uint   `json:"failure_count"`
	CreatedAt      int64  `json:"created_at"`
	NextAttemptAt  int64  `json:"next_attempt_at"`
	LeaseOwner     string `json:"lease_owner,omitempty"`
	LeaseExpiresAt int64  `json:"lease_expires_at,omitempty"`
	Revision       uint64 `json:"revision"`
	MediaType      string `json:"media_type"`
	Data           []byte `json:"data"`
}

// correlationRecord is the on-disk representation of a correlation item.
type correlationRecord struct {
	CreatedAt int64  `json:"created_at"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

func recordFromItem(item persistence.QueueItem) queueItemRecord {
	return queueItemRecord{
		ID:             item.ID,
		Channel:        string(item.Channel),
		FailureCount:   item.FailureCount,
		CreatedAt:      marshalTime(item.CreatedAt),
		NextAttemptAt:  marshalTime(item.NextAttemptAt),
		LeaseOwner:     item.LeaseOwner,
		LeaseExpiresAt: marshalTime(item.LeaseExpiresAt),
		Revision:       item.Revision,
		MediaType:      item.Packet.MediaType,
		Data:           item.Packet.Data,
	}
}

func (rec queueItemRecord) toItem() persistence.QueueItem {
	return persistence.QueueItem{
		ID:             rec.ID,
		Channel:        process.Channel(rec.Channel),
		FailureCount:   rec.FailureCount,
		CreatedAt:      unmarshalTime(rec.CreatedAt),
		NextAttemptAt:  unmarshalTime(rec.NextAttemptAt),
		LeaseOwner:     rec.LeaseOwner,
		LeaseExpiresAt: unmarshalTime(rec.LeaseExpiresAt),
		Revision:       rec.Revision,
		Packet: marshalkit.Packet{
			MediaType: rec.MediaType,
			Data:      rec.Data,
		},
	}
}

// marshalQueueItemRecord marshals a queue item record to its binary
// representation.
func marshalQueueItemRecord(rec queueItemRecord) []byte {
	data, err := json.Marshal(rec)
	bboltx.Must(err)
	return data
}

// unmarshalQueueItemRecord unmarshals a queue item record from its binary
// representation.
func unmarshalQueueItemRecord(data []byte) queueItemRecord {
	var rec queueItemRecord
	bboltx.Must(json.Unmarshal(data, &rec))
	return rec
}

// marshalCorrelationRecord marshals a correlation record to its binary
// representation.
func marshalCorrelationRecord(rec correlationRecord) []byte {
	data, err := json.Marshal(rec)
	bboltx.Must(err)
	return data
}

// unmarshalCorrelationRecord unmarshals a correlation record from its binary
// representation.
func unmarshalCorrelationRecord(data []byte) correlationRecord {
	var rec correlationRecord
	bboltx.Must(json.Unmarshal(data, &rec))
	return rec
}

// marshalTime marshals a time to the number of milliseconds since the Unix
// epoch. The zero-value is marshaled to zero.
func marshalTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

// unmarshalTime is the inverse of marshalTime().
func unmarshalTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.UnixMilli(n)
}

// marshalOrderKey marshals a next-attempt time to its key within the order
// bucket. The keys sort lexicographically in chronological order.
func marshalOrderKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", t.UnixMilli()))
}
