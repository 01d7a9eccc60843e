package fixtures

import (
	"context"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
)

// ConnectorStub is a test implementation of the connector.Client interface.
type ConnectorStub struct {
	InitiateNegotiationFunc func(context.Context, connector.NegotiationRequest) (string, error)
	GetNegotiationFunc      func(context.Context, string) (connector.Negotiation, error)
	InitiateTransferFunc    func(context.Context, connector.TransferRequest) (string, error)
	GetTransferProcessFunc  func(context.Context, string) (connector.TransferProcess, error)
}

// InitiateNegotiation calls s.InitiateNegotiationFunc if it is non-nil,
// otherwise it returns a fixed negotiation ID.
func (s *ConnectorStub) InitiateNegotiation(
	ctx context.Context,
	req connector.NegotiationRequest,
) (string, error) {
	if s.InitiateNegotiationFunc != nil {
		return s.InitiateNegotiationFunc(ctx, req)
	}

	return "<negotiation>", nil
}

// GetNegotiation calls s.GetNegotiationFunc if it is non-nil, otherwise it
// returns a negotiation in the REQUESTED state.
func (s *ConnectorStub) GetNegotiation(
	ctx context.Context,
	id string,
) (connector.Negotiation, error) {
	if s.GetNegotiationFunc != nil {
		return s.GetNegotiationFunc(ctx, id)
	}

	return connector.Negotiation{
		ID:    id,
		State: connector.NegotiationRequested,
	}, nil
}

// InitiateTransfer calls s.InitiateTransferFunc if it is non-nil, otherwise
// it returns a fixed transfer process ID.
func (s *ConnectorStub) InitiateTransfer(
	ctx context.Context,
	req connector.TransferRequest,
) (string, error) {
	if s.InitiateTransferFunc != nil {
		return s.InitiateTransferFunc(ctx, req)
	}

	return "<transfer>", nil
}

// GetTransferProcess calls s.GetTransferProcessFunc if it is non-nil,
// otherwise it returns a transfer process in the IN_PROGRESS state.
func (s *ConnectorStub) GetTransferProcess(
	ctx context.Context,
	id string,
) (connector.TransferProcess, error) {
	if s.GetTransferProcessFunc != nil {
		return s.GetTransferProcessFunc(ctx, id)
	}

	return connector.TransferProcess{
		ID:    id,
		State: connector.TransferInProgress,
	}, nil
}
