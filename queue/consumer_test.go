package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/queue"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/semaphore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// handlerStub is a test implementation of the Handler interface.
type handlerStub struct {
	DispatchFunc func(context.Context, process.Parcel) error
	AbandonFunc  func(context.Context, process.Parcel, error)
}

func (s *handlerStub) Dispatch(ctx context.Context, p process.Parcel) error {
	if s.DispatchFunc != nil {
		return s.DispatchFunc(ctx, p)
	}

	return nil
}

func (s *handlerStub) Abandon(ctx context.Context, p process.Parcel, cause error) {
	if s.AbandonFunc != nil {
		s.AbandonFunc(ctx, p, cause)
	}
}

var _ = Describe("type Consumer", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		dataStore persistence.DataStore
		q         *Queue
		handler   *handlerStub
		consumer  *Consumer
		parcel    process.Parcel
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		var err error
		dataStore, err = (&memorypersistence.Provider{}).Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(dataStore.Close)

		q = &Queue{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
		}

		handler = &handlerStub{}

		consumer = &Consumer{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
			Handler:   handler,
			Semaphore: semaphore.New(3),
			BackoffStrategy: func(error, uint) time.Duration {
				return 5 * time.Millisecond
			},
			RetryLimit:   3,
			PollInterval: 5 * time.Millisecond,
			Logger:       logging.DiscardLogger{},
		}

		parcel = fixtures.NewParcel("<id>", process.ChannelNegotiation)
	})

	// start runs the consumer until the test completes.
	start := func(c *Consumer) {
		runCtx, stop := context.WithCancel(ctx)
		DeferCleanup(stop)

		go func() {
			c.Run(runCtx)
		}()
	}

	It("dispatches a due parcel and removes it from the queue", func() {
		dispatched := make(chan process.Parcel, 1)
		handler.DispatchFunc = func(_ context.Context, p process.Parcel) error {
			dispatched <- p
			return nil
		}

		err := q.Enqueue(ctx, parcel, 1, time.Now())
		Expect(err).ShouldNot(HaveOccurred())

		start(consumer)

		var p process.Parcel
		Eventually(dispatched, "3s").Should(Receive(&p))
		Expect(p).To(Equal(parcel))

		Eventually(func() []persistence.QueueItem {
			items, err := dataStore.QueueRepository().AcquireQueueItems(
				ctx,
				10,
				"<inspector>",
				0,
			)
			Expect(err).ShouldNot(HaveOccurred())
			return items
		}, "3s").Should(BeEmpty())
	})

	It("does not dispatch a parcel before it is due", func() {
		dispatched := make(chan process.Parcel, 1)
		handler.DispatchFunc = func(_ context.Context, p process.Parcel) error {
			dispatched <- p
			return nil
		}

		err := q.Enqueue(ctx, parcel, 1, time.Now().Add(1*time.Hour))
		Expect(err).ShouldNot(HaveOccurred())

		start(consumer)

		Consistently(dispatched, "250ms").ShouldNot(Receive())
	})

	It("retries a parcel that fails, up to the retry limit", func() {
		var (
			m        sync.Mutex
			attempts int
		)

		handler.DispatchFunc = func(context.Context, process.Parcel) error {
			m.Lock()
			attempts++
			m.Unlock()
			return errors.New("<error>")
		}

		abandoned := make(chan error, 1)
		handler.AbandonFunc = func(_ context.Context, _ process.Parcel, cause error) {
			abandoned <- cause
		}

		err := q.Enqueue(ctx, parcel, 1, time.Now())
		Expect(err).ShouldNot(HaveOccurred())

		start(consumer)

		Eventually(abandoned, "3s").Should(Receive(MatchError("<error>")))

		// The item entered the queue with one failure recorded, so it is
		// dispatched twice more before the limit of three is reached.
		m.Lock()
		n := attempts
		m.Unlock()
		Expect(n).To(Equal(2))

		Eventually(func() []persistence.QueueItem {
			items, err := dataStore.QueueRepository().AcquireQueueItems(
				ctx,
				10,
				"<inspector>",
				0,
			)
			Expect(err).ShouldNot(HaveOccurred())
			return items
		}, "3s").Should(BeEmpty())
	})

	It("abandons a parcel that fails fatally without retrying it", func() {
		fatal := errors.New("<fatal>")

		dispatches := make(chan struct{}, 10)
		handler.DispatchFunc = func(context.Context, process.Parcel) error {
			dispatches <- struct{}{}
			return fatal
		}

		abandoned := make(chan error, 1)
		handler.AbandonFunc = func(_ context.Context, _ process.Parcel, cause error) {
			abandoned <- cause
		}

		consumer.IsFatal = func(err error) bool {
			return errors.Is(err, fatal)
		}

		err := q.Enqueue(ctx, parcel, 1, time.Now())
		Expect(err).ShouldNot(HaveOccurred())

		start(consumer)

		Eventually(abandoned, "3s").Should(Receive(MatchError("<fatal>")))
		Expect(dispatches).To(HaveLen(1))
	})

	It("removes an item whose parcel can not be unmarshaled", func() {
		err := dataStore.Persist(
			ctx,
			persistence.Batch{
				persistence.SaveQueueItem{
					Item: persistence.QueueItem{
						ID:            "<corrupt>",
						Channel:       process.ChannelNegotiation,
						CreatedAt:     time.Now(),
						NextAttemptAt: time.Now(),
						Packet: marshalkit.Packet{
							MediaType: "application/json; type=Parcel",
							Data:      []byte("{"),
						},
					},
				},
			},
		)
		Expect(err).ShouldNot(HaveOccurred())

		start(consumer)

		Eventually(func() []persistence.QueueItem {
			items, err := dataStore.QueueRepository().AcquireQueueItems(
				ctx,
				10,
				"<inspector>",
				0,
			)
			Expect(err).ShouldNot(HaveOccurred())
			return items
		}, "3s").Should(BeEmpty())
	})

	It("never dispatches an item to two consumers concurrently", func() {
		var (
			m       sync.Mutex
			counts  = map[string]int{}
			total   int
			entries = 25
		)

		record := func(p process.Parcel) {
			m.Lock()
			defer m.Unlock()
			counts[p.MessageID]++
			total++
		}

		handler.DispatchFunc = func(_ context.Context, p process.Parcel) error {
			record(p)
			return nil
		}

		second := &Consumer{
			DataStore: dataStore,
			Marshaler: fixtures.Marshaler,
			Handler:   handler,
			Semaphore: semaphore.New(3),
			BackoffStrategy: func(error, uint) time.Duration {
				return 5 * time.Millisecond
			},
			RetryLimit:   3,
			PollInterval: 5 * time.Millisecond,
			Logger:       logging.DiscardLogger{},
		}

		for i := 0; i < entries; i++ {
			p := fixtures.NewParcel(
				fmt.Sprintf("<id-%d>", i),
				process.ChannelNegotiation,
			)

			err := q.Enqueue(ctx, p, 1, time.Now())
			Expect(err).ShouldNot(HaveOccurred())
		}

		start(consumer)
		start(second)

		Eventually(func() int {
			m.Lock()
			defer m.Unlock()
			return total
		}, "5s").Should(Equal(entries))

		Consistently(func() int {
			m.Lock()
			defer m.Unlock()
			return total
		}, "250ms").Should(Equal(entries))

		m.Lock()
		defer m.Unlock()
		for id, n := range counts {
			Expect(n).To(Equal(1), id)
		}
	})
})
