package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/handler"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/lockmap"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type reconciler", func() {
	var (
		ctx           context.Context
		cancel        context.CancelFunc
		conn          *fixtures.ConnectorStub
		store         *correlation.Store
		negotiations  *handler.Negotiation
		results       chan process.Parcel
		confirmations chan process.Parcel
		rec           *reconciler
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		dataStore, err := (&memorypersistence.Provider{}).Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(dataStore.Close)

		conn = &fixtures.ConnectorStub{}

		store = &correlation.Store{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
			Locks:     &lockmap.Map{},
			Logger:    logging.DiscardLogger{},
		}

		b := &bus.Bus{}
		results = make(chan process.Parcel, 1)
		b.AddListener(
			process.ChannelResult,
			bus.ListenerFunc(
				func(_ context.Context, p process.Parcel) error {
					results <- p
					return nil
				},
			),
		)

		confirmations = make(chan process.Parcel, 1)
		b.AddListener(
			process.ChannelConfirmation,
			bus.ListenerFunc(
				func(_ context.Context, p process.Parcel) error {
					confirmations <- p
					return nil
				},
			),
		)

		packer := &process.Packer{}

		negotiations = &handler.Negotiation{
			Packer: packer,
			Bus:    b,
			Logger: logging.DiscardLogger{},
		}

		rec = &reconciler{
			Connector:    conn,
			Correlation:  store,
			Negotiations: negotiations,
			Packer:       packer,
			Bus:          b,
			Interval:     10 * time.Millisecond,
			Logger:       logging.DiscardLogger{},
		}
	})

	// park stores a waiting record under the given agreement key.
	park := func(r *process.Record) {
		r.AgreementID = "<agreement>"

		ref, err := store.OfferRequest(ctx, r.AgreementID, r)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ref).To(BeNil())
	}

	Describe("func sweep()", func() {
		It("terminates a request whose transfer has failed", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			r.TransferProcessID = "<transfer>"
			park(r)

			conn.GetTransferProcessFunc = func(
				_ context.Context,
				id string,
			) (connector.TransferProcess, error) {
				Expect(id).To(Equal("<transfer>"))
				return connector.TransferProcess{
					ID:    id,
					State: connector.TransferError,
				}, nil
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			var p process.Parcel
			Expect(results).To(Receive(&p))
			Expect(p.Channel).To(Equal(process.ChannelResult))
			Expect(p.TraceID).To(Equal("<trace>"))
			Expect(p.Record.ErrorStatus).To(Equal(502))
			Expect(p.Record.ErrorMessage).To(Equal(
				"transfer process <transfer> terminated in the ERROR state",
			))

			requests, err := store.ListRequests(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(requests).To(BeEmpty())
		})

		It("terminates a request whose negotiation has failed", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			park(r)

			conn.GetNegotiationFunc = func(
				_ context.Context,
				id string,
			) (connector.Negotiation, error) {
				Expect(id).To(Equal("<negotiation>"))
				return connector.Negotiation{
					ID:    id,
					State: connector.NegotiationDeclined,
				}, nil
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			var p process.Parcel
			Expect(results).To(Receive(&p))
			Expect(p.Record.ErrorStatus).To(Equal(502))
			Expect(p.Record.ErrorMessage).To(Equal(
				"negotiation <negotiation> terminated in the DECLINED state",
			))
		})

		It("leaves a request parked while its process is still progressing", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			r.TransferProcessID = "<transfer>"
			park(r)

			// The stub reports the transfer as IN_PROGRESS by default.
			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(results).ToNot(Receive())

			requests, err := store.ListRequests(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(requests).To(HaveLen(1))
		})

		It("does not publish an error for a request matched during the sweep", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			r.TransferProcessID = "<transfer>"
			park(r)

			conn.GetTransferProcessFunc = func(
				_ context.Context,
				id string,
			) (connector.TransferProcess, error) {
				// The data-reference arrives while the sweep is querying
				// the connector, and the record completes through the
				// ordinary path before the sweep can terminate it.
				matched, err := store.OfferResult(
					ctx,
					"<agreement>",
					process.DataReference{
						AgreementID: "<agreement>",
						Endpoint:    "https://data.example.com/api",
						AuthCode:    "<token>",
					},
				)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(matched).NotTo(BeNil())

				return connector.TransferProcess{
					ID:    id,
					State: connector.TransferError,
				}, nil
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(results).ToNot(Receive())
		})

		It("leaves a request parked if the connector can not be queried", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			r.TransferProcessID = "<transfer>"
			park(r)

			conn.GetTransferProcessFunc = func(
				context.Context,
				string,
			) (connector.TransferProcess, error) {
				return connector.TransferProcess{}, errors.New("<error>")
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(results).ToNot(Receive())

			requests, err := store.ListRequests(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(requests).To(HaveLen(1))
		})
	})

	Describe("func sweepNegotiations()", func() {
		// parkNegotiation parks a record that is awaiting the outcome of
		// the negotiation "<negotiation>".
		parkNegotiation := func() process.Parcel {
			p := rec.Packer.PackInitial("<asset>", "https://provider.example.com")
			p.Record.NegotiationID = "<negotiation>"
			p = rec.Packer.PackNext(p, process.ChannelNegotiation)

			err := negotiations.HandleMessage(ctx, p)
			Expect(err).ShouldNot(HaveOccurred())

			return p
		}

		It("advances a record whose confirmation event was never delivered", func() {
			parked := parkNegotiation()

			conn.GetNegotiationFunc = func(
				_ context.Context,
				id string,
			) (connector.Negotiation, error) {
				Expect(id).To(Equal("<negotiation>"))
				return connector.Negotiation{
					ID:          id,
					State:       connector.NegotiationConfirmed,
					AgreementID: "<agreement>",
				}, nil
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			var p process.Parcel
			Expect(confirmations).To(Receive(&p))
			Expect(p.TraceID).To(Equal(parked.TraceID))
			Expect(p.Record.AgreementID).To(Equal("<agreement>"))
		})

		It("fails a record whose negotiation failed without an event", func() {
			parkNegotiation()

			conn.GetNegotiationFunc = func(
				_ context.Context,
				id string,
			) (connector.Negotiation, error) {
				return connector.Negotiation{
					ID:    id,
					State: connector.NegotiationDeclined,
				}, nil
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			var p process.Parcel
			Expect(results).To(Receive(&p))
			Expect(p.Record.ErrorStatus).To(Equal(502))
			Expect(p.Record.ErrorMessage).To(Equal(
				"negotiation <negotiation> terminated in the DECLINED state",
			))
		})

		It("leaves a record parked while its negotiation is still progressing", func() {
			parkNegotiation()

			// The stub reports the negotiation as REQUESTED by default.
			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(confirmations).ToNot(Receive())
			Expect(results).ToNot(Receive())
			Expect(negotiations.PendingNegotiationIDs()).To(
				ConsistOf("<negotiation>"),
			)
		})

		It("leaves a record parked if the connector can not be queried", func() {
			parkNegotiation()

			conn.GetNegotiationFunc = func(
				context.Context,
				string,
			) (connector.Negotiation, error) {
				return connector.Negotiation{}, errors.New("<error>")
			}

			err := rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(confirmations).ToNot(Receive())
			Expect(results).ToNot(Receive())
		})

		It("discards an unclaimed event once it exceeds the retention period", func() {
			err := negotiations.NotifyNegotiationUpdate(
				ctx,
				connector.NegotiationEvent{
					NegotiationID: "<negotiation>",
					State:         connector.NegotiationConfirmed,
					AgreementID:   "<agreement>",
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			rec.EventRetention = time.Nanosecond
			time.Sleep(time.Millisecond)

			err = rec.sweep(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			// The event is gone, so a record that arrives afterwards parks
			// until a later sweep queries the connector for the outcome.
			parkNegotiation()
			Expect(confirmations).ToNot(Receive())
		})
	})

	Describe("func Run()", func() {
		It("sweeps at each interval until the context is canceled", func() {
			r := fixtures.NewRecord("<trace>")
			r.NegotiationID = "<negotiation>"
			park(r)

			conn.GetNegotiationFunc = func(
				_ context.Context,
				id string,
			) (connector.Negotiation, error) {
				return connector.Negotiation{
					ID:    id,
					State: connector.NegotiationError,
				}, nil
			}

			runCtx, cancelRun := context.WithCancel(ctx)

			done := make(chan error, 1)
			go func() {
				done <- rec.Run(runCtx)
			}()

			Eventually(results).Should(Receive())

			cancelRun()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
