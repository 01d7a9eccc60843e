package persistence_test

import (
	. "github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Batch", func() {
	Describe("func MustValidate()", func() {
		It("panics if the batch contains multiple operations for the same entity", func() {
			batch := Batch{
				SaveQueueItem{
					Item: QueueItem{ID: "<id>"},
				},
				RemoveQueueItem{
					Item: QueueItem{ID: "<id>"},
				},
			}

			Expect(func() {
				batch.MustValidate()
			}).To(Panic())
		})

		It("does not panic if the batch contains operations for distinct entities", func() {
			batch := Batch{
				SaveQueueItem{
					Item: QueueItem{ID: "<id>"},
				},
				SaveCorrelationItem{
					Item: CorrelationItem{
						Key:  "<id>",
						Kind: CorrelationRequest,
					},
				},
				RemoveCorrelationItem{
					Item: CorrelationItem{
						Key:  "<id>",
						Kind: CorrelationResult,
					},
				},
			}

			Expect(func() {
				batch.MustValidate()
			}).NotTo(Panic())
		})
	})
})

var _ = Describe("type ConflictError", func() {
	Describe("func Error()", func() {
		It("includes the operation type in the error message", func() {
			err := ConflictError{
				Cause: SaveQueueItem{},
			}

			Expect(err.Error()).To(Equal(
				"optimistic concurrency conflict in persistence.SaveQueueItem operation",
			))
		})
	})
})
