package providertest

import (
	"context"

	"github.com/dogmatiq/marshalkit"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/onsi/gomega"
)

// persist persists a batch of operations and asserts that there was no
// failure.
func persist(
	ctx context.Context,
	p persistence.Persister,
	batch ...persistence.Operation,
) {
	err := p.Persist(ctx, batch)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
}

// packParcel marshals a parcel for storage in a queue or correlation item.
func packParcel(
	m marshalkit.ValueMarshaler,
	p process.Parcel,
) marshalkit.Packet {
	return process.MustMarshalParcel(m, p)
}

// loadQueueItem acquires and returns the sole item on the queue, releasing
// the lease so that subsequent loads observe it again.
func loadQueueItem(
	ctx context.Context,
	ds persistence.DataStore,
) persistence.QueueItem {
	items, err := ds.QueueRepository().AcquireQueueItems(
		ctx,
		1,
		"<inspector>",
		0,
	)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
	gomega.Expect(items).To(gomega.HaveLen(1))

	return items[0]
}
