package providertest

import (
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareQueueOperationTests declares a functional test-suite for persistence
// operations related to the message queue.
func declareQueueOperationTests(tc *TestContext) {
	ginkgo.Context("queue operations", func() {
		var (
			dataStore persistence.DataStore
			now       time.Time

			item0, item1 persistence.QueueItem
		)

		ginkgo.BeforeEach(func() {
			var tearDown func()
			dataStore, tearDown = tc.SetupDataStore()
			ginkgo.DeferCleanup(tearDown)

			// Only millisecond precision is guaranteed for persisted times.
			now = time.Now().Truncate(time.Millisecond)

			item0 = persistence.QueueItem{
				ID:            "<message-0>",
				Channel:       process.ChannelInitial,
				CreatedAt:     now,
				NextAttemptAt: now,
				Packet: packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel("<message-0>", process.ChannelInitial),
				),
			}

			item1 = persistence.QueueItem{
				ID:            "<message-1>",
				Channel:       process.ChannelNegotiation,
				CreatedAt:     now,
				NextAttemptAt: now,
				Packet: packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel("<message-1>", process.ChannelNegotiation),
				),
			}
		})

		ginkgo.Describe("type persistence.SaveQueueItem", func() {
			ginkgo.When("the item is not on the queue", func() {
				ginkgo.It("saves the item with an initial revision", func() {
					persist(
						tc.Context,
						dataStore,
						persistence.SaveQueueItem{Item: item0},
					)

					// The revision is bumped both by the save and by the
					// acquisition performed to inspect the item.
					loaded := loadQueueItem(tc.Context, dataStore)
					gomega.Expect(cmp.Diff(
						item0,
						loaded,
						cmpopts.IgnoreFields(
							persistence.QueueItem{},
							"LeaseOwner",
							"LeaseExpiresAt",
							"Revision",
						),
						cmpopts.EquateApproxTime(time.Millisecond),
					)).To(gomega.BeEmpty())
					gomega.Expect(loaded.Revision).To(
						gomega.BeNumerically("==", 2),
					)
				})

				ginkgo.It("does not save the item when an OCC conflict occurs", func() {
					op := persistence.SaveQueueItem{Item: item0}
					op.Item.Revision = 123

					err := dataStore.Persist(
						tc.Context,
						persistence.Batch{op},
					)
					gomega.Expect(err).To(gomega.Equal(
						persistence.ConflictError{Cause: op},
					))

					items, err := dataStore.QueueRepository().AcquireQueueItems(
						tc.Context,
						10,
						"<owner>",
						time.Minute,
					)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(items).To(gomega.BeEmpty())
				})
			})

			ginkgo.When("the item is already on the queue", func() {
				ginkgo.BeforeEach(func() {
					persist(
						tc.Context,
						dataStore,
						persistence.SaveQueueItem{Item: item0},
					)
				})

				ginkgo.It("updates the item at the current revision", func() {
					acquired := loadQueueItem(tc.Context, dataStore)

					acquired.FailureCount = 3
					acquired.NextAttemptAt = now.Add(1 * time.Hour)

					persist(
						tc.Context,
						dataStore,
						persistence.SaveQueueItem{Item: acquired},
					)

					loaded := loadQueueItem(tc.Context, dataStore)
					gomega.Expect(loaded.FailureCount).To(
						gomega.BeNumerically("==", 3),
					)
					gomega.Expect(loaded.NextAttemptAt).To(
						gomega.BeTemporally("==", now.Add(1*time.Hour)),
					)
				})

				ginkgo.It("does not update the item when an OCC conflict occurs", func() {
					op := persistence.SaveQueueItem{Item: item0}
					op.Item.Revision = 123
					op.Item.FailureCount = 456

					err := dataStore.Persist(
						tc.Context,
						persistence.Batch{op},
					)
					gomega.Expect(err).To(gomega.Equal(
						persistence.ConflictError{Cause: op},
					))

					loaded := loadQueueItem(tc.Context, dataStore)
					gomega.Expect(loaded.FailureCount).To(
						gomega.BeNumerically("==", 0),
					)
				})

				ginkgo.It("releases any lease held on the item", func() {
					items, err := dataStore.QueueRepository().AcquireQueueItems(
						tc.Context,
						1,
						"<owner-1>",
						time.Hour,
					)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(items).To(gomega.HaveLen(1))

					item := items[0]
					item.NextAttemptAt = now

					persist(
						tc.Context,
						dataStore,
						persistence.SaveQueueItem{Item: item},
					)

					items, err = dataStore.QueueRepository().AcquireQueueItems(
						tc.Context,
						1,
						"<owner-2>",
						time.Hour,
					)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(items).To(gomega.HaveLen(1))
				})
			})
		})

		ginkgo.Describe("type persistence.RemoveQueueItem", func() {
			ginkgo.When("the item is on the queue", func() {
				ginkgo.BeforeEach(func() {
					persist(
						tc.Context,
						dataStore,
						persistence.SaveQueueItem{Item: item0},
						persistence.SaveQueueItem{Item: item1},
					)
				})

				ginkgo.It("removes the item at the current revision", func() {
					items, err := dataStore.QueueRepository().AcquireQueueItems(
						tc.Context,
						10,
						"<owner>",
						0,
					)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(items).To(gomega.HaveLen(2))

					persist(
						tc.Context,
						dataStore,
						persistence.RemoveQueueItem{Item: items[0]},
					)

					items, err = dataStore.QueueRepository().AcquireQueueItems(
						tc.Context,
						10,
						"<owner>",
						0,
					)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(items).To(gomega.HaveLen(1))
				})

				ginkgo.It("does not remove the item when an OCC conflict occurs", func() {
					op := persistence.RemoveQueueItem{Item: item0}
					op.Item.Revision = 123

					err := dataStore.Persist(
						tc.Context,
						persistence.Batch{op},
					)
					gomega.Expect(err).To(gomega.Equal(
						persistence.ConflictError{Cause: op},
					))
				})
			})

			ginkgo.When("the item is not on the queue", func() {
				ginkgo.It("causes an OCC conflict", func() {
					op := persistence.RemoveQueueItem{Item: item0}
					op.Item.Revision = 1

					err := dataStore.Persist(
						tc.Context,
						persistence.Batch{op},
					)
					gomega.Expect(err).To(gomega.Equal(
						persistence.ConflictError{Cause: op},
					))
				})
			})
		})

		ginkgo.Describe("type persistence.ReleaseQueueLease", func() {
			ginkgo.It("allows the item to be re-acquired immediately", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveQueueItem{Item: item0},
				)

				items, err := dataStore.QueueRepository().AcquireQueueItems(
					tc.Context,
					1,
					"<owner-1>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))

				persist(
					tc.Context,
					dataStore,
					persistence.ReleaseQueueLease{ID: item0.ID},
				)

				items, err = dataStore.QueueRepository().AcquireQueueItems(
					tc.Context,
					1,
					"<owner-2>",
					time.Hour,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
			})

			ginkgo.It("tolerates items that do not exist", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.ReleaseQueueLease{ID: "<unknown>"},
				)
			})
		})
	})
}
