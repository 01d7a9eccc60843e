package handler_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/correlation"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/handler"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/lockmap"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type DataReference", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		store     *correlation.Store
		b         *bus.Bus
		packer    *process.Packer
		handler   *DataReference
		sent      []process.Parcel
		parcel    process.Parcel
		reference process.DataReference
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		dataStore, err := (&memorypersistence.Provider{}).Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(dataStore.Close)

		b = &bus.Bus{}

		store = &correlation.Store{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
			Locks:     &lockmap.Map{},
			Logger:    logging.DiscardLogger{},
		}

		n := 0
		packer = &process.Packer{
			GenerateID: func() string {
				n++
				return fmt.Sprintf("<id-%d>", n)
			},
		}

		handler = &DataReference{
			Correlation: store,
			Packer:      packer,
			Bus:         b,
			Logger:      logging.DiscardLogger{},
		}

		sent = nil
		b.AddListener(
			process.ChannelResult,
			bus.ListenerFunc(
				func(_ context.Context, p process.Parcel) error {
					sent = append(sent, p)
					return nil
				},
			),
		)

		reference = process.DataReference{
			AgreementID: "<agreement>",
			Endpoint:    "https://data.example.com/api",
			AuthCode:    "<token>",
		}

		parcel = packer.PackReference(reference)
	})

	Describe("func HandleMessage()", func() {
		It("parks the data-reference when no record is awaiting it", func() {
			err := handler.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(sent).To(BeEmpty())

			record := fixtures.NewRecord("<trace>")
			record.AgreementID = "<agreement>"

			ref, err := store.OfferRequest(ctx, "<agreement>", record)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ref).NotTo(BeNil())
			Expect(*ref).To(Equal(reference))
		})

		It("completes the record that is awaiting the data-reference", func() {
			record := fixtures.NewRecord("<trace>")
			record.AgreementID = "<agreement>"

			_, err := store.OfferRequest(ctx, "<agreement>", record)
			Expect(err).ShouldNot(HaveOccurred())

			err = handler.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Channel).To(Equal(process.ChannelResult))
			Expect(sent[0].TraceID).To(Equal("<trace>"))
			Expect(sent[0].CauseID).To(Equal(parcel.MessageID))
			Expect(sent[0].Record.AccessEndpoint).To(Equal("https://data.example.com/api"))
			Expect(sent[0].Record.AccessToken).To(Equal("<token>"))
		})

		It("returns an error if the data-reference has no agreement ID", func() {
			parcel.Reference.AgreementID = ""

			err := handler.HandleMessage(ctx, parcel)
			Expect(err).To(MatchError(fmt.Sprintf(
				"data-reference %s does not identify a contract agreement",
				parcel.MessageID,
			)))
		})
	})
})
