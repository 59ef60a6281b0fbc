package masternode

import (
	"bytes"
	"fmt"
	"net/netip"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	fuzz "github.com/google/gofuzz"
	"github.com/mezonai/mnlight/blskey"
	"github.com/mezonai/mnlight/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Expected operator keys of the canonical 15-entry list, legacy encoding. Entry i
// uses the secret key whose first byte is i; entry 0 has no key.
var goldenOperatorKeys = []string{
	"000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000",
	"81fc56c400756e2f053ea015d7a61606f668a10f5ee0808f86df9443778021b802174b1d9cdb0cde3c3a4fe5803d02b5",
	"94d1b65f578d88762686be66526fb646c6633f3b0f94cf242b6f99ec1f4bd27dfbc8966865ec548642994f552f4ccf1f",
	"8e8e746c281e151f60e2242ac348ae2a8618bcb79e93f8599083626251f21395d52034ce863b4f4a563af55b7802cf3d",
	"92a966944c688559cfe3f28aca9aa626b442dc4bb507670a1ab02795d397ef6aa1c1f57dbc5b0b1e9dd733d3c2b8623b",
	"0af86a598d2d39412c1c35e458938dc965de475fe6ca5872c5533425d7602da45ca17c0e9ea6e74a00c50ae99fff1921",
	"0cde8c12693642604b23d14f8d300bca62783d054bd6e856037155046f57f7753ff9129bed5a85471de55011756f5381",
	"90a085450a88e359b47daa6fdd49daa7607d6315863db1b68fb6a7083de7d34753621c6ba949258e3afe492d054c91f5",
	"16f73d53f6a4f1239713e45716f347dba9566937430c21b849f5e1fa028e5d0bad2bd7b65719356ece764dad57fdabe4",
	"15922ebf2744e3fb8d0ebd71588b969f3a5dfda143cb89c5d1f654218e2a84a2f8fdda4dab80fb5510d66f34d3d323ab",
	"869526009cadd1fdc8dfb7d16078ac0c4f6e6d141dd60f6f9fcd22b312095c3f72601687e95c6923ef6898aecaeacb66",
	"1193b013818bcd2a8e6006397a1c15d9bd7ee0c8baf19d141350c100cb4271966d83669d3b162c0b261b9728ba442f28",
	"84fbee633abc17b103afcc60e83eeac93b6064f7ebf37be60783bada61312b6d54e9f3682073fdb7a1aba572533e05d2",
	"851db193bb7522485665abd5e9f8abc18939f3090e0b15caed82a1cc1d2baa9c752653f1e3fbfdda5d2f971878a69c4a",
	"943b0210854f46f8465668aa24a386e08cca47e35d8f37d2c3f564011c2c4b9c9678ccbe09c001c77b25ba6258aea2fa",
}

// Entry hashes of the canonical 15-entry list.
var goldenEntryHashes = []string{
	"373b549f6380d8f7b04d7b04d7c58a749c5cbe3bf41536785ba819879c4870f1",
	"3a1010e28226558560e5296bcee6bf0b9b963b73a1514f5aa2885e270f6b90c1",
	"85d3d93b28689128daf3a41d706ae5002f447b9b6372776f0ca9d53b31146884",
	"8930eee6bd2e7971a7090edfb79f74c00a12280e59adfc2cc99d406a01e368f9",
	"dc2e69caa0ef97e8f5cf40a9530641bd4933dd8c9ad533054537728f7e5f58c2",
	"3e4a0e0a0d2ed397fa27221de3047de21f50d17d0ba43738cbdb9fee96c7cb46",
	"eb18476a1496e1cb912b1d4dd93314b78c6a679d83cae8e144a717b967dc4b8c",
	"6c0d01fa40ac11d7b523facd2bf5632c83f7e4df3f60fd1b364ea90f6c852156",
	"c9e3e69d54e6e95b280ae102593fe114cf4620fa89dd88da1a146ada08815d68",
	"1023f67f735e8e9403d5f083e7a17489619b1790feac4f6b133e9dda15999ae6",
	"5d5fc77944f7c72df236a5baf460c7b9a947144d54d0953521f1494c8a2f7aaa",
	"ac7db66820de3c7506f8c6415fd352e36ac5f27c6adbdfb74de3e109d0d277df",
	"cbc25ca965d0fa69a1fdc1d796b8ee2726a0e2137414e92fb9541630e3189901",
	"ac9934c4049ae952d41fb38e7e9659a558a5ce748bdb7fb613741598d1b16a27",
	"a61177eb14450bb8c56e5f0547035e0f3a70fe46f36901351cc568b2e48e29d0",
}

const goldenRoot = "b2303aca677ae2091c882e44b58f57869fa88a6db1f4e1a5d71975e5387fa195"

// goldenOperatorKey derives the operator key of entry i from its secret key.
func goldenOperatorKey(t *testing.T, i int) blskey.PublicKey {
	t.Helper()
	if i == 0 {
		return blskey.PublicKey{}
	}
	var buf [blskey.SecretKeySize]byte
	buf[0] = byte(i)
	sk, err := blskey.SecretKeyFromBytes(buf[:])
	require.NoError(t, err)
	return sk.PublicKey()
}

func goldenEntries(t *testing.T) []Entry {
	t.Helper()
	out := make([]Entry, 0, len(goldenOperatorKeys))
	for i := range goldenOperatorKeys {
		id, err := common.NewHashFromStr(fmt.Sprintf("%064x", i))
		require.NoError(t, err)
		pk := goldenOperatorKey(t, i)

		e := Entry{
			RegistrationTxID:  id,
			ConfirmationHash:  id,
			ServiceAddress:    netip.AddrPortFrom(netip.AddrFrom4([4]byte{0, 0, 0, byte(i)}), uint16(i)),
			OperatorPublicKey: pk,
			IsValid:           true,
		}
		e.VotingKeyID[0] = byte(i)
		out = append(out, e)
	}
	return out
}

func TestGoldenOperatorKeysFromSecretKeys(t *testing.T) {
	for i, want := range goldenOperatorKeys {
		pk := goldenOperatorKey(t, i)
		assert.Equal(t, want, pk.String(), "entry %d", i)

		parsed, err := blskey.PublicKeyFromHex(want)
		require.NoError(t, err)
		assert.Equal(t, parsed, pk, "entry %d", i)
	}
}

// fuzzEntries produces n entries with distinct ids from the given seed.
func fuzzEntries(seed int64, n int) []Entry {
	f := fuzz.NewWithSeed(seed).NilChance(0)
	out := make([]Entry, 0, n)
	seen := make(map[common.Hash]bool, n)
	for len(out) < n {
		var e Entry
		var ip [4]byte
		var port uint16
		f.Fuzz(&e.RegistrationTxID)
		f.Fuzz(&e.ConfirmationHash)
		f.Fuzz(&e.VotingKeyID)
		f.Fuzz(&e.IsValid)
		f.Fuzz(&ip)
		f.Fuzz(&port)
		if seen[e.RegistrationTxID] {
			continue
		}
		seen[e.RegistrationTxID] = true
		e.ServiceAddress = netip.AddrPortFrom(netip.AddrFrom4(ip), port)
		out = append(out, e)
	}
	return out
}

func TestGoldenEntryHashes(t *testing.T) {
	for i, e := range goldenEntries(t) {
		assert.Equal(t, goldenEntryHashes[i], e.Hash().String(), "entry %d", i)
	}
}

func TestEntryLayout(t *testing.T) {
	e := goldenEntries(t)[3]
	raw := e.Serialize()
	require.Len(t, raw, EntrySize)
	assert.Equal(t, 151, EntrySize)

	assert.Equal(t, byte(3), raw[0])
	assert.Equal(t, byte(3), raw[32])
	// IPv4-mapped address then big-endian port
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0, 0, 0, 3}, raw[64:80])
	assert.Equal(t, []byte{0, 3}, raw[80:82])
	assert.Equal(t, e.OperatorPublicKey[:], raw[82:130])
	assert.Equal(t, byte(3), raw[130])
	assert.Equal(t, byte(1), raw[150])
}

func TestEntrySerializationDeterministic(t *testing.T) {
	for _, e := range fuzzEntries(7, 50) {
		first := e.Serialize()
		assert.True(t, bytes.Equal(first, e.Serialize()))
		assert.Equal(t, e.Hash(), e.Hash())

		back, err := DeserializeEntry(first)
		require.NoError(t, err)
		assert.Equal(t, e, *back)
		assert.Equal(t, e.Hash(), back.Hash())
	}
}

func TestDeserializeEntryRejects(t *testing.T) {
	raw := goldenEntries(t)[1].Serialize()

	_, err := DeserializeEntry(raw[:EntrySize-1])
	assert.Error(t, err)

	bad := append([]byte(nil), raw...)
	bad[EntrySize-1] = 2
	_, err = DeserializeEntry(bad)
	assert.Error(t, err)

	// reserved flag bits in the operator key
	bad = append([]byte(nil), raw...)
	bad[82] |= 0x20
	_, err = DeserializeEntry(bad)
	assert.Error(t, err)
}

func TestVotingKeyID(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	id := NewVotingKeyID(priv.PubKey())
	assert.Equal(t, common.Hash160(priv.PubKey().SerializeCompressed()), id)

	e := Entry{VotingKeyID: id}
	addr := e.VotingAddress(68)
	version, payload, err := common.DecodeCheck(addr)
	require.NoError(t, err)
	assert.Equal(t, byte(68), version)
	assert.Equal(t, id[:], payload)
}
