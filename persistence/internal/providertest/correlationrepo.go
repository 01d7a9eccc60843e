package providertest

import (
	"time"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareCorrelationRepositoryTests declares a functional test-suite for the
// correlation repository.
func declareCorrelationRepositoryTests(tc *TestContext) {
	ginkgo.Context("correlation repository", func() {
		var (
			dataStore  persistence.DataStore
			repository persistence.CorrelationRepository
			now        time.Time
		)

		saveItem := func(
			key string,
			kind persistence.CorrelationKind,
			createdAt time.Time,
		) persistence.CorrelationItem {
			item := persistence.CorrelationItem{
				Key:       key,
				Kind:      kind,
				CreatedAt: createdAt,
				Packet: packParcel(
					tc.In.Marshaler,
					fixtures.NewParcel("<message-"+key+">", process.ChannelInitial),
				),
			}

			persist(
				tc.Context,
				dataStore,
				persistence.SaveCorrelationItem{Item: item},
			)

			return item
		}

		ginkgo.BeforeEach(func() {
			var tearDown func()
			dataStore, tearDown = tc.SetupDataStore()
			ginkgo.DeferCleanup(tearDown)

			repository = dataStore.CorrelationRepository()

			now = time.Now().Truncate(time.Millisecond)
		})

		ginkgo.Describe("func LoadCorrelationItem()", func() {
			ginkgo.It("returns false if no item has the given key", func() {
				_, ok, err := repository.LoadCorrelationItem(
					tc.Context,
					"<unknown>",
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns false if the item has a different kind", func() {
				saveItem("<trace>", persistence.CorrelationRequest, now)

				_, ok, err := repository.LoadCorrelationItem(
					tc.Context,
					"<trace>",
					persistence.CorrelationResult,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns the item with the given key and kind", func() {
				expect := saveItem("<trace>", persistence.CorrelationRequest, now)

				loaded, ok, err := repository.LoadCorrelationItem(
					tc.Context,
					"<trace>",
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(loaded.Packet).To(gomega.Equal(expect.Packet))
				gomega.Expect(loaded.CreatedAt).To(
					gomega.BeTemporally("==", expect.CreatedAt),
				)
			})
		})

		ginkgo.Describe("func LoadCorrelationItems()", func() {
			ginkgo.It("returns an empty result if there are no items", func() {
				items, err := repository.LoadCorrelationItems(
					tc.Context,
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.BeEmpty())
			})

			ginkgo.It("returns only items of the given kind", func() {
				saveItem("<trace-0>", persistence.CorrelationRequest, now)
				saveItem("<trace-1>", persistence.CorrelationResult, now)

				items, err := repository.LoadCorrelationItems(
					tc.Context,
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(1))
				gomega.Expect(items[0].Key).To(gomega.Equal("<trace-0>"))
			})

			ginkgo.It("returns items in order of creation", func() {
				saveItem("<trace-0>", persistence.CorrelationRequest, now.Add(2*time.Second))
				saveItem("<trace-1>", persistence.CorrelationRequest, now)
				saveItem("<trace-2>", persistence.CorrelationRequest, now.Add(1*time.Second))

				items, err := repository.LoadCorrelationItems(
					tc.Context,
					persistence.CorrelationRequest,
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(items).To(gomega.HaveLen(3))
				gomega.Expect(items[0].Key).To(gomega.Equal("<trace-1>"))
				gomega.Expect(items[1].Key).To(gomega.Equal("<trace-2>"))
				gomega.Expect(items[2].Key).To(gomega.Equal("<trace-0>"))
			})
		})
	})
}
