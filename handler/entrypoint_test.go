package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/handler"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/queue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type EntryPoint", func() {
	var (
		ctx        context.Context
		cancel     context.CancelFunc
		dataStore  persistence.DataStore
		b          *bus.Bus
		packer     *process.Packer
		route      *fixtures.ListenerStub
		entryPoint *EntryPoint
		results    []process.Parcel
		parcel     process.Parcel
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		var err error
		dataStore, err = (&memorypersistence.Provider{}).Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(dataStore.Close)

		b = &bus.Bus{}

		n := 0
		packer = &process.Packer{
			GenerateID: func() string {
				n++
				return fmt.Sprintf("<id-%d>", n)
			},
		}

		route = &fixtures.ListenerStub{}

		entryPoint = &EntryPoint{
			Routes: map[process.Channel]bus.Listener{
				process.ChannelInitial: route,
			},
			Queue: &queue.Queue{
				DataStore: dataStore,
				Marshaler: fixtures.Marshaler,
			},
			Packer: packer,
			Bus:    b,
			BackoffStrategy: func(error, uint) time.Duration {
				return 3 * time.Second
			},
			Logger: logging.DiscardLogger{},
		}

		results = nil
		b.AddListener(
			process.ChannelResult,
			bus.ListenerFunc(
				func(_ context.Context, p process.Parcel) error {
					results = append(results, p)
					return nil
				},
			),
		)

		parcel = packer.PackInitial("<asset>", "https://provider.example.com")
	})

	// queued returns the items on the queue.
	queued := func() []persistence.QueueItem {
		items, err := dataStore.QueueRepository().AcquireQueueItems(
			ctx,
			10,
			"<inspector>",
			0,
		)
		Expect(err).ShouldNot(HaveOccurred())
		return items
	}

	Describe("func HandleMessage()", func() {
		It("dispatches the parcel to the handler for its channel", func() {
			handled := false
			route.HandleMessageFunc = func(_ context.Context, p process.Parcel) error {
				Expect(p).To(Equal(parcel))
				handled = true
				return nil
			}

			err := entryPoint.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(handled).To(BeTrue())
			Expect(queued()).To(BeEmpty())
			Expect(results).To(BeEmpty())
		})

		It("enqueues the parcel for retry when the handler fails", func() {
			route.HandleMessageFunc = func(context.Context, process.Parcel) error {
				return errors.New("<error>")
			}

			before := time.Now()

			err := entryPoint.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(results).To(BeEmpty())

			items := queued()
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal(parcel.MessageID))
			Expect(items[0].Channel).To(Equal(process.ChannelInitial))
			Expect(items[0].FailureCount).To(BeNumerically("==", 1))
			Expect(items[0].NextAttemptAt).To(
				BeTemporally("~", before.Add(3*time.Second), time.Second),
			)

			p, err := process.UnmarshalParcel(fixtures.Marshaler, items[0].Packet)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(p).To(Equal(parcel))
		})

		It("abandons the parcel when the handler fails fatally", func() {
			route.HandleMessageFunc = func(context.Context, process.Parcel) error {
				return connector.APIError{
					Status:  http.StatusBadRequest,
					Message: "no such asset",
				}
			}

			err := entryPoint.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(queued()).To(BeEmpty())
			Expect(results).To(HaveLen(1))
			Expect(results[0].TraceID).To(Equal(parcel.TraceID))
			Expect(results[0].Record.ErrorStatus).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("func Dispatch()", func() {
		It("returns the handler's error verbatim", func() {
			route.HandleMessageFunc = func(context.Context, process.Parcel) error {
				return errors.New("<error>")
			}

			err := entryPoint.Dispatch(ctx, parcel)
			Expect(err).To(MatchError("<error>"))
			Expect(queued()).To(BeEmpty())
			Expect(results).To(BeEmpty())
		})

		It("returns an error if no handler is registered for the channel", func() {
			err := entryPoint.Dispatch(
				ctx,
				packer.PackNext(parcel, process.ChannelNegotiation),
			)
			Expect(err).To(MatchError(
				"no handler is registered for channel NEGOTIATION",
			))
		})
	})

	Describe("func Abandon()", func() {
		It("fails the record and publishes it as a result", func() {
			entryPoint.Abandon(ctx, parcel, errors.New("<error>"))

			Expect(results).To(HaveLen(1))
			Expect(results[0].Channel).To(Equal(process.ChannelResult))
			Expect(results[0].TraceID).To(Equal(parcel.TraceID))
			Expect(results[0].Record.ErrorStatus).To(Equal(http.StatusBadGateway))
			Expect(results[0].Record.ErrorMessage).To(Equal("<error>"))
		})

		It("does not mutate a record that is already terminal", func() {
			parcel.Record.Fail(http.StatusBadRequest, "<original>")

			entryPoint.Abandon(ctx, parcel, errors.New("<error>"))

			Expect(results).To(HaveLen(1))
			Expect(results[0].Record.ErrorStatus).To(Equal(http.StatusBadRequest))
			Expect(results[0].Record.ErrorMessage).To(Equal("<original>"))
		})

		It("publishes nothing for a data-reference parcel", func() {
			entryPoint.Abandon(
				ctx,
				packer.PackReference(process.DataReference{
					AgreementID: "<agreement>",
				}),
				errors.New("<error>"),
			)

			Expect(results).To(BeEmpty())
		})
	})
})
