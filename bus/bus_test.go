package bus_test

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Bus", func() {
	var (
		ctx    context.Context
		logger *logging.BufferedLogger
		b      *Bus
		parcel process.Parcel
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = &logging.BufferedLogger{}
		b = &Bus{
			Logger: logger,
		}
		parcel = fixtures.NewParcel("<id>", process.ChannelInitial)
	})

	Describe("func Send()", func() {
		It("delivers the parcel to each listener on the channel, in order", func() {
			var order []string

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(_ context.Context, p process.Parcel) error {
					Expect(p).To(Equal(parcel))
					order = append(order, "first")
					return nil
				}),
			)

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(_ context.Context, p process.Parcel) error {
					Expect(p).To(Equal(parcel))
					order = append(order, "second")
					return nil
				}),
			)

			b.Send(ctx, parcel)

			Expect(order).To(Equal([]string{"first", "second"}))
		})

		It("does not deliver the parcel to listeners on other channels", func() {
			b.AddListener(
				process.ChannelResult,
				ListenerFunc(func(context.Context, process.Parcel) error {
					Fail("unexpected delivery")
					return nil
				}),
			)

			b.Send(ctx, parcel)
		})

		It("does nothing if the channel has no listeners", func() {
			b.Send(ctx, parcel)
		})

		It("logs the produced parcel", func() {
			b.Send(ctx, parcel)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▲    INITIAL ● asset <asset> from https://provider.example.com",
				},
			))
		})

		It("continues delivery when a listener returns an error", func() {
			delivered := false

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(context.Context, process.Parcel) error {
					return errors.New("<error>")
				}),
			)

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(context.Context, process.Parcel) error {
					delivered = true
					return nil
				}),
			)

			b.Send(ctx, parcel)

			Expect(delivered).To(BeTrue())
			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "listener on channel INITIAL failed to handle message <id>: <error>",
				},
			))
		})

		It("continues delivery when a listener panics", func() {
			delivered := false

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(context.Context, process.Parcel) error {
					panic("<panic>")
				}),
			)

			b.AddListener(
				process.ChannelInitial,
				ListenerFunc(func(context.Context, process.Parcel) error {
					delivered = true
					return nil
				}),
			)

			b.Send(ctx, parcel)

			Expect(delivered).To(BeTrue())
			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "listener on channel INITIAL failed to handle message <id>: listener panicked: <panic>",
				},
			))
		})
	})
})
