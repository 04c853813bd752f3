package serde

import (
	json "github.com/goccy/go-json"
	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"
)

var cidBuilder = cid.V1Builder{
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: 0, // default
}

// Serializes a structure or value. Map keys are emitted in sorted order, so equal values
// always serialize to equal bytes.
func Serialize(o interface{}) ([]byte, error) {
	if raw, ok := o.(RawBytes); ok {
		return raw.MarshalJSON()
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize %T: %w", o, err)
	}
	return data, nil
}

func MustSerialize(o interface{}) []byte {
	s, err := Serialize(o)
	if err != nil {
		panic(err)
	}
	return s
}

// Deserializes data into the value pointed to by out.
func Deserialize(data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return xerrors.Errorf("failed to deserialize %T: %w", out, err)
	}
	return nil
}

// Computes the content identifier of serialized bytes.
func Sum(data []byte) (cid.Cid, error) {
	return cidBuilder.Sum(data)
}

// Serializes an object and computes its content identifier.
func Put(o interface{}) (cid.Cid, []byte, error) {
	data, err := Serialize(o)
	if err != nil {
		return cid.Undef, nil, err
	}
	c, err := Sum(data)
	if err != nil {
		return cid.Undef, nil, xerrors.Errorf("failed to compute cid: %w", err)
	}
	return c, data, nil
}

// Wraps already-serialized bytes so they pass through Serialize unchanged.
type RawBytes []byte

func (b RawBytes) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *RawBytes) UnmarshalJSON(data []byte) error {
	*b = append((*b)[0:0], data...)
	return nil
}
