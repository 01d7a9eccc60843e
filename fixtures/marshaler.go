package fixtures

import (
	"reflect"

	"github.com/dogmatiq/marshalkit"
	"github.com/dogmatiq/marshalkit/codec"
	"github.com/dogmatiq/marshalkit/codec/json"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// Marshaler is a marshaler that can marshal the adapter's parcel, record and
// data-reference types.
var Marshaler marshalkit.Marshaler

func init() {
	var err error
	Marshaler, err = codec.NewMarshaler(
		[]reflect.Type{
			reflect.TypeOf(process.Parcel{}),
			reflect.TypeOf(process.Record{}),
			reflect.TypeOf(process.DataReference{}),
		},
		[]codec.Codec{
			&json.Codec{},
		},
	)
	if err != nil {
		panic(err)
	}
}
