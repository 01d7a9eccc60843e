package queue_test

import (
	"context"
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/queue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Queue", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		dataStore persistence.DataStore
		q         *Queue
		parcel    process.Parcel
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		var err error
		dataStore, err = (&memorypersistence.Provider{}).Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(dataStore.Close)

		q = &Queue{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
		}

		parcel = fixtures.NewParcel("<id>", process.ChannelNegotiation)
	})

	Describe("func Enqueue()", func() {
		It("stores the parcel for dispatch at the given time", func() {
			next := time.Now().Add(-1 * time.Second)

			err := q.Enqueue(ctx, parcel, 2, next)
			Expect(err).ShouldNot(HaveOccurred())

			items, err := dataStore.QueueRepository().AcquireQueueItems(
				ctx,
				1,
				"<owner>",
				0,
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal("<id>"))
			Expect(items[0].Channel).To(Equal(process.ChannelNegotiation))
			Expect(items[0].FailureCount).To(BeNumerically("==", 2))
			Expect(items[0].NextAttemptAt).To(BeTemporally("~", next, time.Second))

			p, err := process.UnmarshalParcel(fixtures.Marshaler, items[0].Packet)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(p).To(Equal(parcel))
		})

		It("does nothing if the parcel is already enqueued", func() {
			err := q.Enqueue(ctx, parcel, 1, time.Now())
			Expect(err).ShouldNot(HaveOccurred())

			err = q.Enqueue(ctx, parcel, 1, time.Now())
			Expect(err).ShouldNot(HaveOccurred())

			items, err := dataStore.QueueRepository().AcquireQueueItems(
				ctx,
				10,
				"<owner>",
				0,
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(items).To(HaveLen(1))
		})
	})
})
