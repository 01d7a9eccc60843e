package providertest

import (
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func declareDataStoreTests(tc *TestContext) {
	ginkgo.Describe("type DataStore (interface)", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			provider, close := tc.Out.NewProvider()
			if close != nil {
				ginkgo.DeferCleanup(close)
			}

			var err error
			dataStore, err = provider.Open(tc.Context)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			ginkgo.DeferCleanup(func() { dataStore.Close() })
		})

		ginkgo.Describe("func Close()", func() {
			ginkgo.It("returns an error if the data-store is already closed", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.Close()
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("prevents operations from being persisted", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.Persist(
					tc.Context,
					persistence.Batch{
						persistence.SaveQueueItem{
							Item: persistence.QueueItem{
								ID:      "<message-0>",
								Channel: process.ChannelInitial,
								Packet: packParcel(
									tc.In.Marshaler,
									fixtures.NewParcel("<message-0>", process.ChannelInitial),
								),
							},
						},
					},
				)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("prevents items from being acquired", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				_, err = dataStore.QueueRepository().AcquireQueueItems(
					tc.Context,
					1,
					"<owner>",
					0,
				)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})
		})
	})
}
