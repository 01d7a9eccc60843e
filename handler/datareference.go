package handler

import (
	"context"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// DataReference handles parcels on the DATA_REFERENCE channel.
//
// It offers each externally delivered data-reference into the correlation
// store. If the record for the reference's agreement is already parked the
// record completes and is advanced to the RESULT channel, otherwise the
// reference is parked until the record arrives.
type DataReference struct {
	// Correlation is the store the reference is offered into.
	Correlation *correlation.Store

	// Packer is used to pack the completed record into a parcel.
	Packer *process.Packer

	// Bus is the bus that the completed parcel is sent on.
	Bus *bus.Bus

	// Logger is the target for log messages about the references being
	// handled.
	Logger logging.Logger
}

// HandleMessage offers the data-reference in p to the rendezvous with its
// record.
func (h *DataReference) HandleMessage(ctx context.Context, p process.Parcel) error {
	ref := p.Reference

	if ref.AgreementID == "" {
		return fmt.Errorf(
			"data-reference %s does not identify a contract agreement",
			p.MessageID,
		)
	}

	rec, err := h.Correlation.OfferResult(ctx, ref.AgreementID, *ref)
	if err != nil {
		return err
	}

	if rec == nil {
		return nil
	}

	rec.Complete(*ref)
	h.Bus.Send(ctx, h.Packer.PackResult(p, rec))
	return nil
}
