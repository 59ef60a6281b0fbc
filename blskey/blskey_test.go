package blskey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	sk := GenerateSecretKey()
	pk := sk.PublicKey()
	msg := []byte("masternode")

	sig := sk.Sign(msg)
	assert.True(t, Verify(pk, msg, sig))
	assert.False(t, Verify(pk, []byte("other"), sig))

	other := GenerateSecretKey().PublicKey()
	assert.False(t, Verify(other, msg, sig))
}

func TestLegacyEncodingRoundTrip(t *testing.T) {
	for i := 0; i < 8; i++ {
		pk := GenerateSecretKey().PublicKey()
		assert.Zero(t, pk[0]&0x60, "reserved bits must be clear")

		lib, err := pk.Library()
		require.NoError(t, err)
		assert.Equal(t, pk, FromLibrary(lib))
	}
}

func TestKnownLegacyKeyParses(t *testing.T) {
	// one with the sign bit set, one without
	for _, h := range []string{
		"81fc56c400756e2f053ea015d7a61606f668a10f5ee0808f86df9443778021b802174b1d9cdb0cde3c3a4fe5803d02b5",
		"0af86a598d2d39412c1c35e458938dc965de475fe6ca5872c5533425d7602da45ca17c0e9ea6e74a00c50ae99fff1921",
	} {
		pk, err := PublicKeyFromHex(h)
		require.NoError(t, err)
		lib, err := pk.Library()
		require.NoError(t, err, h)
		assert.Equal(t, h, FromLibrary(lib).String())
	}
}

func TestZeroKey(t *testing.T) {
	var pk PublicKey
	assert.True(t, pk.IsZero())
	c := pk.compressed()
	assert.Equal(t, byte(0xc0), c[0])
}

func TestPublicKeyFromBytesRejects(t *testing.T) {
	_, err := PublicKeyFromBytes(make([]byte, 47))
	assert.Error(t, err)

	bad := make([]byte, PublicKeySize)
	bad[0] = 0x40
	_, err = PublicKeyFromBytes(bad)
	assert.Error(t, err)

	_, err = PublicKeyFromHex("zz")
	assert.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	pk := GenerateSecretKey().PublicKey()
	text, err := pk.MarshalText()
	require.NoError(t, err)

	var got PublicKey
	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, pk, got)
}

func TestAggregate(t *testing.T) {
	msg := []byte("quorum")
	var pks []PublicKey
	var sigs []Signature
	for i := 0; i < 4; i++ {
		sk := GenerateSecretKey()
		pks = append(pks, sk.PublicKey())
		sigs = append(sigs, sk.Sign(msg))
	}

	agg, err := Aggregate(sigs)
	require.NoError(t, err)
	assert.True(t, VerifyAggregate(pks, msg, agg))
	assert.False(t, VerifyAggregate(pks[:3], msg, agg))
	assert.False(t, VerifyAggregate(nil, msg, agg))

	_, err = Aggregate(nil)
	assert.Error(t, err)
}

func TestSecretKeyFromBytesLength(t *testing.T) {
	_, err := SecretKeyFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}
