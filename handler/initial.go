// Package handler contains the stage handlers that advance a process from
// its initial request to a terminal result.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Initial handles parcels on the INITIAL channel.
//
// It starts a contract negotiation for the requested asset and advances the
// record to the NEGOTIATION channel.
type Initial struct {
	// Connector is the client used to start the negotiation.
	Connector connector.Client

	// Packer is used to pack the advanced record into a parcel.
	Packer *process.Packer

	// Bus is the bus that the advanced parcel is sent on.
	Bus *bus.Bus

	// Logger is the target for log messages about the records being handled.
	Logger logging.Logger
}

// HandleMessage starts a contract negotiation for the record in p.
func (h *Initial) HandleMessage(ctx context.Context, p process.Parcel) error {
	rec := p.Record

	if strings.TrimSpace(rec.AssetID) == "" ||
		strings.TrimSpace(rec.ProviderURL) == "" {
		rec.Fail(
			http.StatusBadRequest,
			"asset ID and provider URL must not be blank",
		)

		h.Bus.Send(ctx, h.Packer.PackNext(p, process.ChannelResult))
		return nil
	}

	id, err := h.Connector.InitiateNegotiation(
		ctx,
		connector.NegotiationRequest{
			ProviderURL: rec.ProviderURL,
			AssetID:     rec.AssetID,
		},
	)
	if err != nil {
		return fmt.Errorf("unable to initiate negotiation: %w", err)
	}

	rec.NegotiationID = id

	logging.Debug(
		h.Logger,
		"started negotiation %s for trace %s",
		id,
		rec.TraceID,
	)

	h.Bus.Send(ctx, h.Packer.PackNext(p, process.ChannelNegotiation))
	return nil
}
