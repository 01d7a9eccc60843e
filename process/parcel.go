package process

// Channel is the name of a logical route used to dispatch a parcel to its
// designated stage handler.
type Channel string

const (
	// ChannelInitial carries newly created records into the pipeline.
	ChannelInitial Channel = "INITIAL"

	// ChannelNegotiation carries records that have started a contract
	// negotiation and are awaiting its confirmation.
	ChannelNegotiation Channel = "NEGOTIATION"

	// ChannelConfirmation carries records whose negotiation has been
	// confirmed and for which a transfer must be started.
	ChannelConfirmation Channel = "CONFIRMATION"

	// ChannelDataReference carries externally pushed data-references.
	ChannelDataReference Channel = "DATA_REFERENCE"

	// ChannelResult carries terminal records back to the waiting caller.
	ChannelResult Channel = "RESULT"
)

// A Parcel is a container for a record (or a data-reference) and the
// meta-data required to route it.
//
// A parcel is immutable once constructed. The trace ID is generated when the
// record is first created and propagated unchanged through all channels.
type Parcel struct {
	// MessageID is a unique identifier for this parcel.
	MessageID string

	// CauseID is the message ID of the parcel that caused this one to be
	// sent. It is equal to MessageID on the first parcel of a process.
	CauseID string

	// TraceID is the ID of the process the parcel belongs to. It is empty on
	// data-reference parcels, whose process is not yet known.
	TraceID string

	// Channel is the route the parcel is dispatched on.
	Channel Channel

	// Record is the process record being advanced. It is nil on
	// data-reference parcels.
	Record *Record `json:",omitempty"`

	// Reference is the externally delivered data-reference. It is nil unless
	// Channel is ChannelDataReference.
	Reference *DataReference `json:",omitempty"`
}
