package mlog_test

import (
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/fixtures"
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/internal/mlog"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func LogConsume()", func() {
	It("logs in the expected format", func() {
		logger := &logging.BufferedLogger{}

		LogConsume(
			logger,
			fixtures.NewParcel("<id>", process.ChannelInitial),
			0,
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▼    INITIAL ● asset <asset> from https://provider.example.com",
			},
		))
	})

	It("shows the retry icon when the failure count is non-zero", func() {
		logger := &logging.BufferedLogger{}

		LogConsume(
			logger,
			fixtures.NewParcel("<id>", process.ChannelInitial),
			1,
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▼ ↻  INITIAL ● asset <asset> from https://provider.example.com",
			},
		))
	})
})

var _ = Describe("func LogProduce()", func() {
	It("logs in the expected format", func() {
		logger := &logging.BufferedLogger{}

		LogProduce(
			logger,
			fixtures.NewParcel("<id>", process.ChannelResult),
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▲    RESULT ● asset <asset> from https://provider.example.com",
			},
		))
	})
})

var _ = Describe("func LogNack()", func() {
	It("logs in the expected format", func() {
		logger := &logging.BufferedLogger{}

		LogNack(
			logger,
			fixtures.NewParcel("<id>", process.ChannelNegotiation),
			errors.New("<error>"),
			5*time.Second,
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▽ ✖  NEGOTIATION ● <error> ● next retry in 5s",
			},
		))
	})
})

var _ = Describe("func LogAbandon()", func() {
	It("logs in the expected format", func() {
		logger := &logging.BufferedLogger{}

		LogAbandon(
			logger,
			fixtures.NewParcel("<id>", process.ChannelNegotiation),
			errors.New("<error>"),
		)

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "= <id>  ∵ <id>  ⋲ <trace-<id>>  ▽ ✖  NEGOTIATION ● <error> ● abandoned",
			},
		))
	})
})
