package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningOrderValueEmptyIsArray(t *testing.T) {
	v, err := SigningOrder{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	var nilOrder SigningOrder
	v, err = nilOrder.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestSigningOrderScan(t *testing.T) {
	var o SigningOrder
	require.NoError(t, o.Scan(`[{"signer_id":"u1","order":1},{"signer_id":"u2","order":2}]`))
	require.Len(t, o, 2)
	assert.Equal(t, "u1", o[0].SignerID)
	assert.Equal(t, 2, o[1].Order)

	var fromNil SigningOrder
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)

	assert.Error(t, o.Scan(42))
}

func TestSigningOrderHelpers(t *testing.T) {
	o := SigningOrder{{SignerID: "u1", Order: 1}, {SignerID: "u2", Order: 2}}
	assert.Equal(t, []string{"u1", "u2"}, o.SignerIDs())
	assert.True(t, o.Contains("u2"))
	assert.False(t, o.Contains("u3"))
}
