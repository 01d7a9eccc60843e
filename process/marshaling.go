package process

import (
	"fmt"

	"github.com/dogmatiq/marshalkit"
)

// MarshalParcel marshals a parcel to a packet using m.
func MarshalParcel(m marshalkit.ValueMarshaler, p Parcel) (marshalkit.Packet, error) {
	return m.Marshal(p)
}

// MustMarshalParcel marshals a parcel to a packet using m, or panics if it is
// unable to do so.
func MustMarshalParcel(m marshalkit.ValueMarshaler, p Parcel) marshalkit.Packet {
	pkt, err := MarshalParcel(m, p)
	if err != nil {
		panic(err)
	}

	return pkt
}

// UnmarshalParcel unmarshals a parcel from a packet using m.
func UnmarshalParcel(m marshalkit.ValueMarshaler, pkt marshalkit.Packet) (Parcel, error) {
	v, err := m.Unmarshal(pkt)
	if err != nil {
		return Parcel{}, err
	}

	switch p := v.(type) {
	case Parcel:
		return p, nil
	case *Parcel:
		return *p, nil
	default:
		return Parcel{}, fmt.Errorf("packet does not contain a parcel (%T)", v)
	}
}

// MarshalRecord marshals a record to a packet using m.
func MarshalRecord(m marshalkit.ValueMarshaler, r *Record) (marshalkit.Packet, error) {
	return m.Marshal(*r)
}

// UnmarshalRecord unmarshals a record from a packet using m.
func UnmarshalRecord(m marshalkit.ValueMarshaler, pkt marshalkit.Packet) (*Record, error) {
	v, err := m.Unmarshal(pkt)
	if err != nil {
		return nil, err
	}

	switch r := v.(type) {
	case Record:
		return &r, nil
	case *Record:
		return r, nil
	default:
		return nil, fmt.Errorf("packet does not contain a record (%T)", v)
	}
}

// MarshalDataReference marshals a data-reference to a packet using m.
func MarshalDataReference(m marshalkit.ValueMarshaler, ref DataReference) (marshalkit.Packet, error) {
	return m.Marshal(ref)
}

// UnmarshalDataReference unmarshals a data-reference from a packet using m.
func UnmarshalDataReference(m marshalkit.ValueMarshaler, pkt marshalkit.Packet) (DataReference, error) {
	v, err := m.Unmarshal(pkt)
	if err != nil {
		return DataReference{}, err
	}

	switch ref := v.(type) {
	case DataReference:
		return ref, nil
	case *DataReference:
		return *ref, nil
	default:
		return DataReference{}, fmt.Errorf("packet does not contain a data-reference (%T)", v)
	}
}
