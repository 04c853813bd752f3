package serde_test

import (
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borroe/borroe-actors/actors/serde"
)

type sample struct {
	Owner    addr.Address
	Amount   big.Int
	Balances map[string]big.Int
}

func TestSerializeIsDeterministic(t *testing.T) {
	owner, err := addr.NewIDAddress(101)
	require.NoError(t, err)

	s := sample{
		Owner:  owner,
		Amount: big.NewInt(1000),
		Balances: map[string]big.Int{
			"t0103": big.NewInt(3),
			"t0101": big.NewInt(1),
			"t0102": big.NewInt(2),
		},
	}

	c1, data1, err := serde.Put(&s)
	require.NoError(t, err)
	c2, data2, err := serde.Put(&s)
	require.NoError(t, err)
	assert.Equal(t, data1, data2)
	assert.True(t, c1.Equals(c2))

	var out sample
	require.NoError(t, serde.Deserialize(data1, &out))
	assert.Equal(t, owner, out.Owner)
	assert.True(t, out.Amount.Equals(big.NewInt(1000)))
	assert.True(t, out.Balances["t0102"].Equals(big.NewInt(2)))
}

func TestRawBytesPassThrough(t *testing.T) {
	inner := serde.MustSerialize(map[string]int{"a": 1})

	data, err := serde.Serialize(serde.RawBytes(inner))
	require.NoError(t, err)
	assert.Equal(t, inner, data)

	wrapped := struct{ Params serde.RawBytes }{Params: inner}
	outer := serde.MustSerialize(&wrapped)

	var decoded struct{ Params serde.RawBytes }
	require.NoError(t, serde.Deserialize(outer, &decoded))
	assert.JSONEq(t, string(inner), string(decoded.Params))

	empty, err := serde.Serialize(serde.RawBytes(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(empty))
}

func TestDeserializeError(t *testing.T) {
	var out sample
	err := serde.Deserialize([]byte("{garbage"), &out)
	require.Error(t, err)
}
