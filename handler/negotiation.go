package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Negotiation handles parcels on the NEGOTIATION channel.
//
// It parks each record until the connector reports the outcome of the
// record's contract negotiation, then advances the record to the
// CONFIRMATION channel, or fails it if the negotiation did not produce an
// agreement.
//
// The parcel and the negotiation's terminal event arrive through independent
// call paths and may do so in either order; whichever arrives second
// completes the pair.
type Negotiation struct {
	// Packer is used to pack the advanced record into a parcel.
	Packer *process.Packer

	// Bus is the bus that the advanced parcel is sent on.
	Bus *bus.Bus

	// Logger is the target for log messages about the records being handled.
	Logger logging.Logger

	m       sync.Mutex
	pending map[string]process.Parcel
	events  map[string]parkedEvent
}

// parkedEvent is a terminal event retained until the record that is awaiting
// it arrives, or until it is discarded as stale.
type parkedEvent struct {
	Event    connector.NegotiationEvent
	ParkedAt time.Time
}

// HandleMessage parks the record in p until the outcome of its negotiation
// is known, or resolves it immediately if the outcome arrived first.
func (h *Negotiation) HandleMessage(ctx context.Context, p process.Parcel) error {
	id := p.Record.NegotiationID

	h.m.Lock()

	pe, ok := h.events[id]
	if ok {
		delete(h.events, id)
	} else {
		if h.pending == nil {
			h.pending = map[string]process.Parcel{}
		}
		h.pending[id] = p
	}

	h.m.Unlock()

	if ok {
		h.resolve(ctx, p, pe.Event)
	} else {
		logging.Debug(
			h.Logger,
			"parked trace %s awaiting the outcome of negotiation %s",
			p.Record.TraceID,
			id,
		)
	}

	return nil
}

// NotifyNegotiationUpdate resolves the record that is awaiting the outcome
// of the negotiation in ev, or parks the event if the record has not arrived
// yet.
//
// Events that are not terminal are ignored.
func (h *Negotiation) NotifyNegotiationUpdate(
	ctx context.Context,
	ev connector.NegotiationEvent,
) error {
	if !ev.State.IsTerminal() {
		return nil
	}

	h.m.Lock()

	p, ok := h.pending[ev.NegotiationID]
	if ok {
		delete(h.pending, ev.NegotiationID)
	} else {
		if h.events == nil {
			h.events = map[string]parkedEvent{}
		}
		h.events[ev.NegotiationID] = parkedEvent{
			Event:    ev,
			ParkedAt: time.Now(),
		}
	}

	h.m.Unlock()

	if ok {
		h.resolve(ctx, p, ev)
	} else {
		logging.Debug(
			h.Logger,
			"parked %s event for negotiation %s, no record is awaiting it",
			ev.State,
			ev.NegotiationID,
		)
	}

	return nil
}

// PendingNegotiationIDs returns the IDs of the negotiations that a parked
// record is awaiting the outcome of.
func (h *Negotiation) PendingNegotiationIDs() []string {
	h.m.Lock()
	defer h.m.Unlock()

	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}

	return ids
}

// DiscardStaleEvents discards parked events that no record has claimed since
// before cutoff, returning the number discarded.
//
// A record that arrives after its event has been discarded parks as usual and
// is resolved by the reconciliation sweep, which queries the connector for
// the negotiation's outcome directly.
func (h *Negotiation) DiscardStaleEvents(cutoff time.Time) int {
	h.m.Lock()
	defer h.m.Unlock()

	n := 0
	for id, pe := range h.events {
		if pe.ParkedAt.Before(cutoff) {
			delete(h.events, id)
			n++
		}
	}

	return n
}

func (h *Negotiation) resolve(
	ctx context.Context,
	p process.Parcel,
	ev connector.NegotiationEvent,
) {
	rec := p.Record

	if ev.State == connector.NegotiationConfirmed {
		rec.AgreementID = ev.AgreementID
		h.Bus.Send(ctx, h.Packer.PackNext(p, process.ChannelConfirmation))
		return
	}

	rec.Fail(
		http.StatusBadGateway,
		"negotiation %s terminated in the %s state",
		ev.NegotiationID,
		ev.State,
	)

	h.Bus.Send(ctx, h.Packer.PackNext(p, process.ChannelResult))
}
