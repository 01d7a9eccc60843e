package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/handler"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// defaultEventRetention is how long an unclaimed negotiation event is kept
// before the reconciler discards it.
const defaultEventRetention = 1 * time.Hour

// reconciler periodically checks parked state against the connector. A
// process whose negotiation or transfer has already terminated in failure
// will never receive the event or data-reference it is waiting for; the
// reconciler resolves it explicitly so that a retried request can start over.
type reconciler struct {
	// Connector is the client used to query negotiation and transfer state.
	Connector connector.Client

	// Correlation is the store that parked requests are read from.
	Correlation *correlation.Store

	// Negotiations is the handler that parks records awaiting negotiation
	// outcomes, and events that no record has claimed. It may be nil.
	Negotiations *handler.Negotiation

	// EventRetention is how long an unclaimed negotiation event is kept
	// before it is discarded. If it is zero, defaultEventRetention is used.
	EventRetention time.Duration

	// Packer is used to pack failed records into terminal parcels.
	Packer *process.Packer

	// Bus is the bus that terminal parcels are sent on.
	Bus *bus.Bus

	// Interval is the duration between consecutive sweeps.
	Interval time.Duration

	// Logger is the target for log messages about reconciliation.
	Logger logging.Logger
}

// Run sweeps the parked requests at a fixed interval until ctx is canceled.
func (r *reconciler) Run(ctx context.Context) error {
	for {
		if err := linger.Sleep(ctx, r.Interval); err != nil {
			return err
		}

		if err := r.sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logging.Log(
				r.Logger,
				"unable to reconcile parked requests: %s",
				err,
			)
		}
	}
}

// sweep checks each parked request and each record awaiting a negotiation
// outcome once, resolving those whose process has already terminated on the
// connector's side.
func (r *reconciler) sweep(ctx context.Context) error {
	requests, err := r.Correlation.ListRequests(ctx)
	if err != nil {
		return err
	}

	for _, req := range requests {
		if err := r.reconcile(ctx, req); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			// A failure to check one request must not stop the others
			// from being checked.
			logging.Log(
				r.Logger,
				"unable to reconcile the parked request for agreement %s: %s",
				req.Key,
				err,
			)
		}
	}

	return r.sweepNegotiations(ctx)
}

// sweepNegotiations resolves records that are awaiting a negotiation outcome
// that was delivered while no record was parked, or that was never delivered
// at all, by querying the connector for the negotiation's current state. It
// also discards unclaimed events once they exceed the retention period.
func (r *reconciler) sweepNegotiations(ctx context.Context) error {
	if r.Negotiations == nil {
		return nil
	}

	for _, id := range r.Negotiations.PendingNegotiationIDs() {
		n, err := r.Connector.GetNegotiation(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logging.Log(
				r.Logger,
				"unable to reconcile the record awaiting negotiation %s: %s",
				id,
				err,
			)

			continue
		}

		if !n.State.IsTerminal() {
			continue
		}

		if err := r.Negotiations.NotifyNegotiationUpdate(
			ctx,
			connector.NegotiationEvent{
				NegotiationID: n.ID,
				State:         n.State,
				AgreementID:   n.AgreementID,
			},
		); err != nil {
			return err
		}
	}

	retention := r.EventRetention
	if retention == 0 {
		retention = defaultEventRetention
	}

	if n := r.Negotiations.DiscardStaleEvents(
		time.Now().Add(-retention),
	); n > 0 {
		logging.Debug(
			r.Logger,
			"discarded %d stale negotiation events",
			n,
		)
	}

	return nil
}

// reconcile checks a single parked request, terminating its process if the
// connector reports that the negotiation or transfer has failed.
func (r *reconciler) reconcile(
	ctx context.Context,
	req correlation.ParkedRequest,
) error {
	rec := req.Record

	if rec.TransferProcessID != "" {
		tp, err := r.Connector.GetTransferProcess(ctx, rec.TransferProcessID)
		if err != nil {
			return err
		}

		if !tp.State.IsFailed() {
			return nil
		}

		return r.terminate(
			ctx,
			req,
			"transfer process %s terminated in the %s state",
			tp.ID,
			tp.State,
		)
	}

	if rec.NegotiationID != "" {
		n, err := r.Connector.GetNegotiation(ctx, rec.NegotiationID)
		if err != nil {
			return err
		}

		if !n.State.IsFailed() {
			return nil
		}

		return r.terminate(
			ctx,
			req,
			"negotiation %s terminated in the %s state",
			n.ID,
			n.State,
		)
	}

	return nil
}

// terminate removes a parked request and publishes a terminal error record
// for its process.
//
// If the request is no longer parked it was matched by a concurrently
// arriving data-reference, and the process completes through the ordinary
// path instead; no terminal record is published for it.
func (r *reconciler) terminate(
	ctx context.Context,
	req correlation.ParkedRequest,
	format string,
	args ...interface{},
) error {
	removed, err := r.Correlation.RemoveRequest(ctx, req.Key)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	rec := req.Record
	rec.Fail(http.StatusBadGateway, format, args...)

	logging.Debug(
		r.Logger,
		"terminated the parked request for agreement %s: %s",
		req.Key,
		rec.ErrorMessage,
	)

	r.Bus.Send(ctx, r.Packer.PackTerminal(rec))

	return nil
}
