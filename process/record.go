package process

import (
	"fmt"
)

// A Record tracks a single synchronous data-access request as it advances
// through contract negotiation, transfer initiation and delivery of the
// endpoint data-reference.
//
// A record is created once per inbound request and mutated in place by
// successive stage handlers. It becomes terminal when either an access
// endpoint or an error status is set, after which it must not be mutated
// again.
type Record struct {
	// TraceID correlates the synchronous request with its eventual
	// asynchronous result.
	TraceID string `json:"traceId"`

	// AssetID is the identifier of the asset being requested.
	AssetID string `json:"assetId"`

	// ProviderURL is the address of the providing connector.
	ProviderURL string `json:"providerUrl"`

	// NegotiationID is the identifier of the contract negotiation started on
	// behalf of this request, if any.
	NegotiationID string `json:"negotiationId,omitempty"`

	// AgreementID is the identifier of the contract agreement produced by a
	// confirmed negotiation. It is the correlation key used to reunite the
	// record with the externally delivered data-reference.
	AgreementID string `json:"agreementId,omitempty"`

	// TransferProcessID is the identifier of the transfer process started
	// after the negotiation was confirmed, if any.
	TransferProcessID string `json:"transferProcessId,omitempty"`

	// AccessEndpoint is the data-access endpoint delivered by the provider.
	// It is only set on successful completion.
	AccessEndpoint string `json:"accessEndpoint,omitempty"`

	// AccessToken is the authorization code that accompanies the access
	// endpoint.
	AccessToken string `json:"accessToken,omitempty"`

	// ErrorStatus is the HTTP-equivalent status describing a terminal
	// failure. It is zero unless the record failed.
	ErrorStatus int `json:"errorStatus,omitempty"`

	// ErrorMessage is a human-readable description of a terminal failure.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// A DataReference is the externally delivered half of a completed process,
// pushed by the provider once a transfer has been set up.
type DataReference struct {
	// AgreementID is the contract agreement that this reference fulfills.
	AgreementID string `json:"agreementId"`

	// Endpoint is the data-access endpoint.
	Endpoint string `json:"endpoint"`

	// AuthCode is the authorization code required to use the endpoint.
	AuthCode string `json:"authCode,omitempty"`
}

// IsTerminal returns true if the record has reached a terminal state, either
// by completing with an access endpoint or by failing with an error status.
func (r *Record) IsTerminal() bool {
	return r.AccessEndpoint != "" || r.ErrorStatus != 0
}

// Complete marks the record as successfully completed using the endpoint
// information in ref.
//
// It panics if the record is already terminal.
func (r *Record) Complete(ref DataReference) {
	r.mustNotBeTerminal()

	if ref.AgreementID != "" {
		r.AgreementID = ref.AgreementID
	}

	r.AccessEndpoint = ref.Endpoint
	r.AccessToken = ref.AuthCode
}

// Fail marks the record as failed with the given HTTP-equivalent status and a
// formatted message.
//
// It panics if the record is already terminal.
func (r *Record) Fail(status int, f string, v ...interface{}) {
	r.mustNotBeTerminal()

	r.ErrorStatus = status
	r.ErrorMessage = fmt.Sprintf(f, v...)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// String returns a short human-readable description of the record, suitable
// for log output.
func (r *Record) String() string {
	return fmt.Sprintf("asset %s from %s", r.AssetID, r.ProviderURL)
}

func (r *Record) mustNotBeTerminal() {
	if r.IsTerminal() {
		panic(fmt.Sprintf(
			"record %s is already terminal",
			r.TraceID,
		))
	}
}
