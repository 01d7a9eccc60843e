package providertest

import (
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareCorrelationOperationTests declares a functional test-suite for
// persistence operations related to the correlation store.
func declareCorrelationOperationTests(tc *TestContext) {
	ginkgo.Context("correlation operations", func() {
		var (
			dataStore persistence.DataStore
			item      persistence.CorrelationItem
		)

		ginkgo.BeforeEach(func() {
			var tearDown func()
			dataStore, tearDown = tc.SetupDataStore()
			ginkgo.DeferCleanup(tearDown)

			item = persistence.CorrelationItem{
				Key:       "<trace>",
				Kind:      persistence.CorrelationRequest,
				CreatedAt: time.Now().Truncate(time.Millisecond),
				Packet: packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel("<message-0>", process.ChannelInitial),
				),
			}
		})

		ginkgo.Describe("type persistence.SaveCorrelationItem", func() {
			ginkgo.It("saves a new item", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				loaded, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					item.Kind,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(loaded.Packet).To(gomega.Equal(item.Packet))
			})

			ginkgo.It("replaces an existing item with the same key and kind", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				item.Packet = packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel("<message-1>", process.ChannelResult),
				)

				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				loaded, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					item.Kind,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(loaded.Packet).To(gomega.Equal(item.Packet))
			})

			ginkgo.It("does not save an item while the opposite kind holds the key", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				op := persistence.SaveCorrelationItem{Item: item}
				op.Item.Kind = persistence.CorrelationResult

				err := dataStore.Persist(
					tc.Context,
					persistence.Batch{op},
				)
				gomega.Expect(err).To(gomega.Equal(
					persistence.ConflictError{Cause: op},
				))

				_, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					persistence.CorrelationResult,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())

				_, ok, err = dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
			})

			ginkgo.It("saves an item under a key released by the opposite kind", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				persist(
					tc.Context,
					dataStore,
					persistence.RemoveCorrelationItem{Item: item},
				)

				result := item
				result.Kind = persistence.CorrelationResult

				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: result},
				)

				_, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					persistence.CorrelationResult,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
			})
		})

		ginkgo.Describe("type persistence.RemoveCorrelationItem", func() {
			ginkgo.It("removes the item", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				persist(
					tc.Context,
					dataStore,
					persistence.RemoveCorrelationItem{Item: item},
				)

				_, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					item.Kind,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("does not remove an item that does not exist", func() {
				op := persistence.RemoveCorrelationItem{Item: item}

				err := dataStore.Persist(
					tc.Context,
					persistence.Batch{op},
				)
				gomega.Expect(err).To(gomega.Equal(
					persistence.ConflictError{Cause: op},
				))
			})

			ginkgo.It("does not remove an item of the opposite kind", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveCorrelationItem{Item: item},
				)

				op := persistence.RemoveCorrelationItem{Item: item}
				op.Item.Kind = persistence.CorrelationResult

				err := dataStore.Persist(
					tc.Context,
					persistence.Batch{op},
				)
				gomega.Expect(err).To(gomega.Equal(
					persistence.ConflictError{Cause: op},
				))

				_, ok, err := dataStore.CorrelationRepository().LoadCorrelationItem(
					tc.Context,
					item.Key,
					item.Kind,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
			})
		})
	})
}
