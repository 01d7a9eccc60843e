package providertest

import (
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareQueueRepositoryTests declares a functional test-suite for the queue
// repository.
func declareQueueRepositoryTests(tc *TestContext) {
	ginkgo.Context("queue repository", func() {
		var (
			provider   persistence.Provider
			dataStore  persistence.DataStore
			repository persistence.QueueRepository
			now        time.Time
		)

		saveItem := func(id string, next time.Time) persistence.QueueItem {
			item := persistence.QueueItem{
				ID:            id,
				Channel:       process.ChannelInitial,
				CreatedAt:     now,
				NextAttemptAt: next,
				Packet: packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel(id, process.ChannelInitial),
				),
			}

			persist(
				tc.Context,
				dataStore,
				persistence.SaveQueueItem{Item: item},
			)

			return item
		}

		ginkgo.BeforeEach(func() {
			var close func()
			provider, close = tc.Out.NewProvider()
			if close != nil {
				ginkgo.DeferCleanup(close)
			}

			var err error
			dataStore, err = provider.Open(tc.Context)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			ginkgo.DeferCleanup(func() { dataStore.Close() })

			repository = dataStore.QueueRepository()

			now = time.Now().Truncate(time.Millisecond)
		})

		ginkgo.Describe("func AcquireQueueItems()", func() {
			ginkgo.It("returns an empty result if the queue is empty", func() {
				items, err := repository.AcquireQueueItems(
					tc.Context,
					10,
					"<owner>",
					time.Minute,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.BeEmpty())
			})

			ginkgo.It("does not return items that are not yet due", func() {
				saveItem("<message-0>", now.Add(1*time.Hour))
				saveItem("<message-1>", now)

				items, err := repository.AcquireQueueItems(
					tc.Context,
					10,
					"<owner>",
					time.Minute,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				gomega.Expect(items[0].ID).To(gomega.Equal("<message-1>"))
			})

			ginkgo.It("returns items in order of their next attempt time", func() {
				saveItem("<message-0>", now.Add(-1*time.Second))
				saveItem("<message-1>", now.Add(-3*time.Second))
				saveItem("<message-2>", now.Add(-2*time.Second))

				items, err := repository.AcquireQueueItems(
					tc.Context,
					10,
					"<owner>",
					time.Minute,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(3))
				gomega.Expect(items[0].ID).To(gomega.Equal("<message-1>"))
				gomega.Expect(items[1].ID).To(gomega.Equal("<message-2>"))
				gomega.Expect(items[2].ID).To(gomega.Equal("<message-0>"))
			})

			ginkgo.It("limits the number of items returned", func() {
				saveItem("<message-0>", now.Add(-2*time.Second))
				saveItem("<message-1>", now.Add(-1*time.Second))

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner>",
					time.Minute,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				gomega.Expect(items[0].ID).To(gomega.Equal("<message-0>"))
			})

			ginkgo.It("records the lease on the returned items", func() {
				saveItem("<message-0>", now)

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner>",
					time.Minute,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				gomega.Expect(items[0].LeaseOwner).To(gomega.Equal("<owner>"))
				gomega.Expect(items[0].LeaseExpiresAt).To(
					gomega.BeTemporally(">", now),
				)
			})

			ginkgo.It("does not return items that are leased by another consumer", func() {
				saveItem("<message-0>", now)

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-1>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))

				items, err = repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-2>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.BeEmpty())
			})

			ginkgo.It("returns items with an expired lease", func() {
				saveItem("<message-0>", now)

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-1>",
					0,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))

				items, err = repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-2>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				gomega.Expect(items[0].LeaseOwner).To(gomega.Equal("<owner-2>"))
			})

			ginkgo.It("invalidates the revision held by the previous lease owner", func() {
				saveItem("<message-0>", now)

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-1>",
					0,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				stale := items[0]

				_, err = repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-2>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				op := persistence.RemoveQueueItem{Item: stale}
				err = dataStore.Persist(
					tc.Context,
					persistence.Batch{op},
				)
				gomega.Expect(err).To(gomega.Equal(
					persistence.ConflictError{Cause: op},
				))
			})

			ginkgo.It("shares leases between data-stores opened from the same provider", func() {
				if !tc.Out.IsShared {
					ginkgo.Skip("provider does not share data between data-stores")
				}

				saveItem("<message-0>", now)

				other, err := provider.Open(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				ginkgo.DeferCleanup(func() { other.Close() })

				items, err := repository.AcquireQueueItems(
					tc.Context,
					1,
					"<owner-1>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))

				items, err = other.QueueRepository().AcquireQueueItems(
					tc.Context,
					1,
					"<owner-2>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.BeEmpty())
			})
		})
	})
}
