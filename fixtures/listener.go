package fixtures

import (
	"context"

	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// ListenerStub is a test implementation of the bus.Listener interface.
type ListenerStub struct {
	HandleMessageFunc func(context.Context, process.Parcel) error
}

// HandleMessage calls s.HandleMessageFunc if it is non-nil.
func (s *ListenerStub) HandleMessage(ctx context.Context, p process.Parcel) error {
	if s.HandleMessageFunc != nil {
		return s.HandleMessageFunc(ctx, p)
	}

	return nil
}
