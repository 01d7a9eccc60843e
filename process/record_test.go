package process_test

import (
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Record", func() {
	var record *Record

	BeforeEach(func() {
		record = &Record{
			TraceID:     "<trace>",
			AssetID:     "<asset>",
			ProviderURL: "<provider>",
		}
	})

	Describe("func IsTerminal()", func() {
		It("returns false for a record that is still in flight", func() {
			Expect(record.IsTerminal()).To(BeFalse())
		})

		It("returns true once an access endpoint is set", func() {
			record.Complete(DataReference{
				Endpoint: "<endpoint>",
			})

			Expect(record.IsTerminal()).To(BeTrue())
		})

		It("returns true once an error status is set", func() {
			record.Fail(502, "<error>")

			Expect(record.IsTerminal()).To(BeTrue())
		})
	})

	Describe("func Complete()", func() {
		It("merges the data-reference into the record", func() {
			record.Complete(DataReference{
				AgreementID: "<agreement>",
				Endpoint:    "<endpoint>",
				AuthCode:    "<auth>",
			})

			Expect(record.AgreementID).To(Equal("<agreement>"))
			Expect(record.AccessEndpoint).To(Equal("<endpoint>"))
			Expect(record.AccessToken).To(Equal("<auth>"))
		})

		It("retains the existing agreement ID if the reference has none", func() {
			record.AgreementID = "<agreement>"

			record.Complete(DataReference{
				Endpoint: "<endpoint>",
			})

			Expect(record.AgreementID).To(Equal("<agreement>"))
		})

		It("panics if the record is already terminal", func() {
			record.Fail(502, "<error>")

			Expect(func() {
				record.Complete(DataReference{
					Endpoint: "<endpoint>",
				})
			}).To(Panic())
		})
	})

	Describe("func Fail()", func() {
		It("sets the error status and message", func() {
			record.Fail(502, "negotiation %s failed", "<negotiation>")

			Expect(record.ErrorStatus).To(Equal(502))
			Expect(record.ErrorMessage).To(Equal("negotiation <negotiation> failed"))
		})

		It("panics if the record is already terminal", func() {
			record.Complete(DataReference{
				Endpoint: "<endpoint>",
			})

			Expect(func() {
				record.Fail(502, "<error>")
			}).To(Panic())
		})
	})

	Describe("func Clone()", func() {
		It("returns a copy that does not share state with the original", func() {
			clone := record.Clone()
			clone.AssetID = "<other>"

			Expect(record.AssetID).To(Equal("<asset>"))
		})
	})
})
