package handler

import (
	"context"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Confirmation handles parcels on the CONFIRMATION channel.
//
// It starts the transfer process permitted by the record's contract
// agreement, then offers the record into the correlation store. If the
// data-reference for the agreement has already been delivered the record
// completes immediately, otherwise it remains parked until the
// data-reference arrives.
type Confirmation struct {
	// Connector is the client used to start the transfer.
	Connector connector.Client

	// Correlation is the store the record is offered into.
	Correlation *correlation.Store

	// Packer is used to pack the completed record into a parcel.
	Packer *process.Packer

	// Bus is the bus that the completed parcel is sent on.
	Bus *bus.Bus

	// Logger is the target for log messages about the records being handled.
	Logger logging.Logger
}

// HandleMessage starts the transfer for the record in p and offers the
// record to the rendezvous with its data-reference.
func (h *Confirmation) HandleMessage(ctx context.Context, p process.Parcel) error {
	rec := p.Record

	// A retried parcel may already have started its transfer. Starting a
	// second one would leak an orphaned transfer process on the connector.
	if rec.TransferProcessID == "" {
		id, err := h.Connector.InitiateTransfer(
			ctx,
			connector.TransferRequest{
				ProviderURL: rec.ProviderURL,
				AssetID:     rec.AssetID,
				AgreementID: rec.AgreementID,
			},
		)
		if err != nil {
			return fmt.Errorf("unable to initiate transfer: %w", err)
		}

		rec.TransferProcessID = id

		logging.Debug(
			h.Logger,
			"started transfer process %s for trace %s",
			id,
			rec.TraceID,
		)
	}

	ref, err := h.Correlation.OfferRequest(ctx, rec.AgreementID, rec)
	if err != nil {
		return err
	}

	if ref == nil {
		return nil
	}

	rec.Complete(*ref)
	h.Bus.Send(ctx, h.Packer.PackNext(p, process.ChannelResult))
	return nil
}
