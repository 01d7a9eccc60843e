// Package connector defines the adapter's view of the connector that carries
// out contract negotiations and transfer processes on its behalf.
package connector

import (
	"context"
)

// NegotiationState is the state of a contract negotiation.
type NegotiationState string

const (
	// NegotiationRequested indicates that the negotiation has been submitted
	// to the providing connector and no decision has been made yet.
	NegotiationRequested NegotiationState = "REQUESTED"

	// NegotiationConfirmed indicates that the negotiation succeeded and a
	// contract agreement exists.
	NegotiationConfirmed NegotiationState = "CONFIRMED"

	// NegotiationDeclined indicates that the providing connector rejected
	// the negotiation.
	NegotiationDeclined NegotiationState = "DECLINED"

	// NegotiationError indicates that the negotiation failed.
	NegotiationError NegotiationState = "ERROR"
)

// IsTerminal returns true if no further state changes can occur.
func (s NegotiationState) IsTerminal() bool {
	switch s {
	case NegotiationConfirmed, NegotiationDeclined, NegotiationError:
		return true
	default:
		return false
	}
}

// IsFailed returns true if the negotiation terminated without producing an
// agreement.
func (s NegotiationState) IsFailed() bool {
	switch s {
	case NegotiationDeclined, NegotiationError:
		return true
	default:
		return false
	}
}

// TransferState is the state of a transfer process.
type TransferState string

const (
	// TransferInProgress indicates that the transfer is being carried out.
	TransferInProgress TransferState = "IN_PROGRESS"

	// TransferCompleted indicates that the transfer finished successfully.
	TransferCompleted TransferState = "COMPLETED"

	// TransferError indicates that the transfer failed.
	TransferError TransferState = "ERROR"
)

// IsTerminal returns true if no further state changes can occur.
func (s TransferState) IsTerminal() bool {
	switch s {
	case TransferCompleted, TransferError:
		return true
	default:
		return false
	}
}

// IsFailed returns true if the transfer terminated unsuccessfully.
func (s TransferState) IsFailed() bool {
	return s == TransferError
}

// Negotiation is the observable state of a contract negotiation.
type Negotiation struct {
	// ID is the negotiation's identifier.
	ID string `json:"id"`

	// State is the negotiation's current state.
	State NegotiationState `json:"state"`

	// AgreementID is the identifier of the contract agreement produced by
	// the negotiation. It is empty unless State is NegotiationConfirmed.
	AgreementID string `json:"contractAgreementId,omitempty"`
}

// TransferProcess is the observable state of a transfer process.
type TransferProcess struct {
	// ID is the transfer process's identifier.
	ID string `json:"id"`

	// State is the transfer process's current state.
	State TransferState `json:"state"`
}

// NegotiationRequest is a request to start a contract negotiation for an
// asset offered by a providing connector.
type NegotiationRequest struct {
	// ProviderURL is the address of the providing connector.
	ProviderURL string `json:"connectorAddress"`

	// AssetID is the identifier of the asset to negotiate access to.
	AssetID string `json:"assetId"`
}

// TransferRequest is a request to start a transfer process under an existing
// contract agreement.
type TransferRequest struct {
	// ProviderURL is the address of the providing connector.
	ProviderURL string `json:"connectorAddress"`

	// AssetID is the identifier of the asset being transferred.
	AssetID string `json:"assetId"`

	// AgreementID is the identifier of the contract agreement that permits
	// the transfer.
	AgreementID string `json:"contractAgreementId"`
}

// Client is the interface used by the adapter to drive the connector's
// management API.
type Client interface {
	// InitiateNegotiation starts a contract negotiation and returns its
	// identifier.
	InitiateNegotiation(ctx context.Context, req NegotiationRequest) (string, error)

	// GetNegotiation returns the current state of a negotiation.
	GetNegotiation(ctx context.Context, id string) (Negotiation, error)

	// InitiateTransfer starts a transfer process and returns its identifier.
	InitiateTransfer(ctx context.Context, req TransferRequest) (string, error)

	// GetTransferProcess returns the current state of a transfer process.
	GetTransferProcess(ctx context.Context, id string) (TransferProcess, error)
}

// NegotiationEvent describes a state change to a contract negotiation,
// delivered asynchronously by the connector.
type NegotiationEvent struct {
	// NegotiationID is the identifier of the negotiation that changed.
	NegotiationID string `json:"negotiationId"`

	// State is the negotiation's new state.
	State NegotiationState `json:"state"`

	// AgreementID is the identifier of the contract agreement produced by
	// the negotiation, if any.
	AgreementID string `json:"contractAgreementId,omitempty"`
}

// EventListener is an interface for observing negotiation state changes.
type EventListener interface {
	// NotifyNegotiationUpdate informs the listener of a negotiation state
	// change.
	NotifyNegotiationUpdate(ctx context.Context, ev NegotiationEvent) error
}
