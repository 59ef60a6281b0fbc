package block

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mezonai/mnlight/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	return &Header{
		Version:            2,
		PrevBlock:          common.DoubleSHA256([]byte("prev")),
		MerkleRoot:         common.DoubleSHA256([]byte("txs")),
		Time:               1505224800,
		Bits:               0x207fffff,
		Nonce:              12345,
		MasternodeListRoot: common.DoubleSHA256([]byte("mnlist")),
	}
}

func TestHeaderSerializeRoundTrip(t *testing.T) {
	h := sampleHeader()
	raw := h.Serialize()
	require.Len(t, raw, HeaderSize)
	assert.Equal(t, 112, HeaderSize)

	got, err := Deserialize(raw)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, h.BlockHash(), got.BlockHash())

	fromHex, err := FromHex(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, fromHex)
}

func TestHeaderLayout(t *testing.T) {
	h := &Header{Version: 1, Time: 0x01020304, Bits: 0x207fffff, Nonce: 7}
	h.PrevBlock[0] = 0xaa
	h.MasternodeListRoot[31] = 0xbb
	raw := h.Serialize()

	assert.Equal(t, []byte{1, 0, 0, 0}, raw[0:4])
	assert.Equal(t, byte(0xaa), raw[4])
	assert.Equal(t, []byte{4, 3, 2, 1}, raw[68:72])
	assert.Equal(t, []byte{0xff, 0xff, 0x7f, 0x20}, raw[72:76])
	assert.Equal(t, []byte{7, 0, 0, 0}, raw[76:80])
	assert.Equal(t, byte(0xbb), raw[111])
}

func TestHashCoversCommitment(t *testing.T) {
	h := sampleHeader()
	before := h.BlockHash()
	h.MasternodeListRoot[0] ^= 1
	assert.NotEqual(t, before, h.BlockHash())
}

func TestDeserializeRejectsBadLength(t *testing.T) {
	_, err := Deserialize(make([]byte, HeaderSize-1))
	assert.Error(t, err)
	_, err = FromHex("nothex")
	assert.Error(t, err)
}

func TestCompactRoundTrip(t *testing.T) {
	for _, bits := range []uint32{0x207fffff, 0x1d00ffff, 0x1e0ffff0, 0x1b0404cb, 0x03123456} {
		target, negative, overflow := CompactToTarget(bits)
		assert.False(t, negative)
		assert.False(t, overflow)
		assert.Equal(t, bits, TargetToCompact(target), "bits %08x", bits)
	}
}

func TestCompactFlags(t *testing.T) {
	_, negative, _ := CompactToTarget(0x04923456)
	assert.True(t, negative)

	_, _, overflow := CompactToTarget(0xff123456)
	assert.True(t, overflow)

	_, err := TargetFromBits(0x00000000)
	assert.Error(t, err)
	_, err = TargetFromBits(0x04923456)
	assert.Error(t, err)
}

func TestCalcWork(t *testing.T) {
	// work of a difficulty-1 block
	assert.Equal(t, uint256.NewInt(0x100010001), CalcWork(0x1d00ffff))
	assert.Equal(t, uint256.NewInt(2), CalcWork(0x207fffff))
	assert.True(t, CalcWork(0x1b0404cb).Gt(CalcWork(0x1d00ffff)))
	assert.True(t, CalcWork(0).IsZero())
}

func TestCheckProofOfWork(t *testing.T) {
	limit, err := TargetFromBits(0x207fffff)
	require.NoError(t, err)

	h := sampleHeader()
	for HashToInt(h.BlockHash()).Gt(limit) {
		h.Nonce++
	}
	assert.NoError(t, CheckProofOfWork(h, limit))

	h.Nonce++
	for !HashToInt(h.BlockHash()).Gt(limit) {
		h.Nonce++
	}
	assert.Error(t, CheckProofOfWork(h, limit))

	easier := *h
	easier.Bits = 0x217fffff
	assert.Error(t, CheckProofOfWork(&easier, limit))
}

func TestCalcRetarget(t *testing.T) {
	limit, err := TargetFromBits(0x207fffff)
	require.NoError(t, err)

	same, err := CalcRetarget(0x1d00ffff, 600, 600, limit)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1d00ffff), same)

	// clamped to a quarter of the timespan
	fast, err := CalcRetarget(0x1d00ffff, 1, 600, limit)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1c3fffc0), fast)

	capped, err := CalcRetarget(0x207fffff, 6000, 600, limit)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x207fffff), capped)

	_, err = CalcRetarget(0x1d00ffff, 600, 0, limit)
	assert.Error(t, err)
}

func TestStoredHeaderRoundTrip(t *testing.T) {
	genesis := sampleHeader()
	g := NewGenesisStored(genesis)
	assert.Equal(t, uint32(0), g.Height)

	next := sampleHeader()
	next.PrevBlock = g.Hash()
	child := g.Build(next)
	assert.Equal(t, uint32(1), child.Height)
	assert.True(t, child.MoreWorkThan(g))
	assert.Equal(t, uint256.NewInt(4), child.ChainWork)

	got, err := DeserializeStored(child.Serialize())
	require.NoError(t, err)
	assert.Equal(t, child.Header, got.Header)
	assert.Equal(t, child.Height, got.Height)
	assert.True(t, child.ChainWork.Eq(got.ChainWork))

	_, err = DeserializeStored([]byte{1})
	assert.Error(t, err)
}

func TestVerifyMerkleRoot(t *testing.T) {
	txs := []common.Hash{common.DoubleSHA256([]byte("a")), common.DoubleSHA256([]byte("b"))}
	b := &Block{Header: *sampleHeader(), TxHashes: txs}
	b.Header.MerkleRoot = TxMerkleRoot(txs)
	assert.NoError(t, b.VerifyMerkleRoot())

	b.TxHashes = txs[:1]
	assert.Error(t, b.VerifyMerkleRoot())

	b.TxHashes = nil
	assert.Error(t, b.VerifyMerkleRoot())
}
