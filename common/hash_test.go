package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStringRoundTrip(t *testing.T) {
	const s = "b2303aca677ae2091c882e44b58f57869fa88a6db1f4e1a5d71975e5387fa195"
	h, err := NewHashFromStr(s)
	require.NoError(t, err)
	require.Equal(t, s, h.String())
	// internal order is reversed
	require.Equal(t, byte(0x95), h[0])
	require.Equal(t, byte(0xb2), h[31])
}

func TestNewHashFromStrRejectsBadInput(t *testing.T) {
	_, err := NewHashFromStr("abcd")
	require.Error(t, err)

	_, err = NewHashFromStr("zz303aca677ae2091c882e44b58f57869fa88a6db1f4e1a5d71975e5387fa195")
	require.Error(t, err)
}

func TestDoubleSHA256Parts(t *testing.T) {
	whole := DoubleSHA256([]byte("hello world"))
	parts := DoubleSHA256([]byte("hello "), []byte("world"))
	require.Equal(t, whole, parts)
	require.Equal(t, "2344b7a9b50f3cc2761a40722c05361f73119f4d5d6cc129da369e0db8d462bc", whole.String())
}

func TestBase58CheckRoundTrip(t *testing.T) {
	payload := make([]byte, KeyIDSize)
	payload[0] = 7
	addr := EncodeCheck(68, payload)
	require.True(t, IsValidBase58(addr))

	version, decoded, err := DecodeCheck(addr)
	require.NoError(t, err)
	require.Equal(t, byte(68), version)
	require.Equal(t, payload, decoded)

	// flipping a character breaks the checksum
	broken := []byte(addr)
	if broken[5] == 'a' {
		broken[5] = 'b'
	} else {
		broken[5] = 'a'
	}
	_, _, err = DecodeCheck(string(broken))
	require.Error(t, err)
}

func TestHash160(t *testing.T) {
	id := Hash160([]byte{0x02, 0x03})
	require.Equal(t, "7e065bf1d3f0454a428d5ff590dd04eb8216b689", id.String())
}
