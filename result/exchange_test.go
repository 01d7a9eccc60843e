package result_test

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/result"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Exchange", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		logger   *logging.BufferedLogger
		exchange *Exchange
		record   *process.Record
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		logger = &logging.BufferedLogger{
			CaptureDebug: true,
		}
		exchange = &Exchange{
			Logger: logger,
		}

		record = fixtures.NewRecord("<trace>")
	})

	Describe("func Pull()", func() {
		It("returns a result published before the pull", func() {
			exchange.Expect("<trace>")
			exchange.Publish("<trace>", record)

			r, err := exchange.Pull(ctx, "<trace>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(r).To(Equal(record))
		})

		It("returns a result published while pulling", func() {
			exchange.Expect("<trace>")

			go func() {
				time.Sleep(10 * time.Millisecond)
				exchange.Publish("<trace>", record)
			}()

			r, err := exchange.Pull(ctx, "<trace>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(r).To(Equal(record))
		})

		It("returns an error if the deadline is exceeded", func() {
			exchange.Expect("<trace>")

			pullCtx, cancelPull := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancelPull()

			_, err := exchange.Pull(pullCtx, "<trace>")
			Expect(err).To(Equal(context.DeadlineExceeded))
		})

		It("returns an error if no result is expected", func() {
			_, err := exchange.Pull(ctx, "<trace>")
			Expect(err).To(MatchError("no result is expected for trace <trace>"))
		})

		It("removes the registration, even when it times out", func() {
			exchange.Expect("<trace>")

			pullCtx, cancelPull := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancelPull()

			_, err := exchange.Pull(pullCtx, "<trace>")
			Expect(err).Should(HaveOccurred())

			_, err = exchange.Pull(ctx, "<trace>")
			Expect(err).To(MatchError("no result is expected for trace <trace>"))
		})
	})

	Describe("func Publish()", func() {
		It("discards results that no caller is waiting for", func() {
			exchange.Publish("<trace>", record)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "discarded result of trace <trace>, no caller is waiting",
					IsDebug: true,
				},
			))
		})

		It("discards all but the first result for a trace ID", func() {
			exchange.Expect("<trace>")
			exchange.Publish("<trace>", record)

			duplicate := fixtures.NewRecord("<trace>")
			duplicate.Fail(502, "<error>")
			exchange.Publish("<trace>", duplicate)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "discarded duplicate result of trace <trace>",
					IsDebug: true,
				},
			))

			r, err := exchange.Pull(ctx, "<trace>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(r).To(Equal(record))
		})
	})

	Describe("func HandleMessage()", func() {
		It("publishes the record carried by the parcel", func() {
			exchange.Expect("<trace-<id>>")

			parcel := fixtures.NewParcel("<id>", process.ChannelResult)
			err := exchange.HandleMessage(ctx, parcel)
			Expect(err).ShouldNot(HaveOccurred())

			r, err := exchange.Pull(ctx, "<trace-<id>>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(r).To(Equal(parcel.Record))
		})

		It("returns an error if the parcel does not carry a record", func() {
			parcel := fixtures.NewParcel("<id>", process.ChannelResult)
			parcel.Record = nil

			err := exchange.HandleMessage(ctx, parcel)
			Expect(err).To(MatchError("parcel <id> does not carry a record"))
		})
	})
})
