package process

import (
	"github.com/google/uuid"
)

// Packer puts records and data-references into parcels.
type Packer struct {
	// GenerateID is a function used to generate new message and trace IDs.
	// If it is nil, a UUID is generated.
	GenerateID func() string
}

// PackInitial returns a parcel containing a freshly created record for the
// given asset, addressed to the INITIAL channel.
func (p *Packer) PackInitial(assetID, providerURL string) Parcel {
	id := p.generateID()
	traceID := p.generateID()

	return Parcel{
		MessageID: id,
		CauseID:   id,
		TraceID:   traceID,
		Channel:   ChannelInitial,
		Record: &Record{
			TraceID:     traceID,
			AssetID:     assetID,
			ProviderURL: providerURL,
		},
	}
}

// PackReference returns a parcel containing an externally pushed
// data-reference, addressed to the DATA_REFERENCE channel.
//
// The parcel has no trace ID; the process it belongs to is only discovered
// when the reference is matched against a parked record.
func (p *Packer) PackReference(ref DataReference) Parcel {
	id := p.generateID()

	return Parcel{
		MessageID: id,
		CauseID:   id,
		Channel:   ChannelDataReference,
		Reference: &ref,
	}
}

// PackNext returns a parcel that advances the process in cause to the given
// channel, carrying the same record and trace ID.
func (p *Packer) PackNext(cause Parcel, ch Channel) Parcel {
	return Parcel{
		MessageID: p.generateID(),
		CauseID:   cause.MessageID,
		TraceID:   cause.TraceID,
		Channel:   ch,
		Record:    cause.Record,
	}
}

// PackResult returns a parcel that carries the given terminal record to the
// RESULT channel, caused by the parcel in cause.
//
// It is used when the record being published is not the one carried by the
// causing parcel, such as when a data-reference parcel completes a parked
// record.
func (p *Packer) PackResult(cause Parcel, rec *Record) Parcel {
	return Parcel{
		MessageID: p.generateID(),
		CauseID:   cause.MessageID,
		TraceID:   rec.TraceID,
		Channel:   ChannelResult,
		Record:    rec,
	}
}

// PackTerminal returns a parcel that carries the given terminal record to
// the RESULT channel without a causing parcel.
//
// It is used when a record is terminated by the adapter itself, such as when
// a parked record is failed because its external protocol state will never
// produce the awaited event.
func (p *Packer) PackTerminal(rec *Record) Parcel {
	id := p.generateID()

	return Parcel{
		MessageID: id,
		CauseID:   id,
		TraceID:   rec.TraceID,
		Channel:   ChannelResult,
		Record:    rec,
	}
}

func (p *Packer) generateID() string {
	if p.GenerateID != nil {
		return p.GenerateID()
	}

	return uuid.NewString()
}
