package process_test

import (
	"fmt"

	. "github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Packer", func() {
	var packer *Packer

	BeforeEach(func() {
		n := 0
		packer = &Packer{
			GenerateID: func() string {
				n++
				return fmt.Sprintf("<id-%d>", n)
			},
		}
	})

	Describe("func PackInitial()", func() {
		It("creates a record with a fresh trace ID", func() {
			p := packer.PackInitial("<asset>", "<provider>")

			Expect(p.Channel).To(Equal(ChannelInitial))
			Expect(p.TraceID).NotTo(BeEmpty())
			Expect(p.Record.TraceID).To(Equal(p.TraceID))
			Expect(p.Record.AssetID).To(Equal("<asset>"))
			Expect(p.Record.ProviderURL).To(Equal("<provider>"))
		})

		It("uses the message ID as its own cause", func() {
			p := packer.PackInitial("<asset>", "<provider>")

			Expect(p.CauseID).To(Equal(p.MessageID))
		})

		It("generates UUIDs if no generator is provided", func() {
			packer.GenerateID = nil

			p := packer.PackInitial("<asset>", "<provider>")

			Expect(p.MessageID).To(HaveLen(36))
			Expect(p.TraceID).To(HaveLen(36))
			Expect(p.MessageID).NotTo(Equal(p.TraceID))
		})
	})

	Describe("func PackReference()", func() {
		It("carries the data-reference without a trace ID", func() {
			p := packer.PackReference(DataReference{
				AgreementID: "<agreement>",
				Endpoint:    "<endpoint>",
			})

			Expect(p.Channel).To(Equal(ChannelDataReference))
			Expect(p.TraceID).To(BeEmpty())
			Expect(p.Record).To(BeNil())
			Expect(p.Reference.AgreementID).To(Equal("<agreement>"))
		})
	})

	Describe("func PackNext()", func() {
		It("propagates the trace ID and record unchanged", func() {
			cause := packer.PackInitial("<asset>", "<provider>")
			next := packer.PackNext(cause, ChannelNegotiation)

			Expect(next.Channel).To(Equal(ChannelNegotiation))
			Expect(next.TraceID).To(Equal(cause.TraceID))
			Expect(next.Record).To(BeIdenticalTo(cause.Record))
			Expect(next.CauseID).To(Equal(cause.MessageID))
			Expect(next.MessageID).NotTo(Equal(cause.MessageID))
		})
	})

	Describe("func PackTerminal()", func() {
		It("carries the record without a causing parcel", func() {
			rec := &Record{
				TraceID: "<trace>",
			}

			p := packer.PackTerminal(rec)

			Expect(p.Channel).To(Equal(ChannelResult))
			Expect(p.TraceID).To(Equal("<trace>"))
			Expect(p.CauseID).To(Equal(p.MessageID))
			Expect(p.Record).To(BeIdenticalTo(rec))
		})
	})

	Describe("func PackResult()", func() {
		It("adopts the trace ID of the record, not the causing parcel", func() {
			cause := packer.PackReference(DataReference{
				AgreementID: "<agreement>",
			})

			rec := &Record{
				TraceID: "<trace>",
			}

			p := packer.PackResult(cause, rec)

			Expect(p.Channel).To(Equal(ChannelResult))
			Expect(p.TraceID).To(Equal("<trace>"))
			Expect(p.CauseID).To(Equal(cause.MessageID))
			Expect(p.Record).To(BeIdenticalTo(rec))
		})
	})
})
